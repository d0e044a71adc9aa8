package address

import "fmt"

// InvalidAddressError is returned when an address is constructed with a
// negative component.
type InvalidAddressError struct {
	Component string
	Value     int
}

func (err *InvalidAddressError) Error() string {
	return fmt.Sprintf("invalid address: %s index %d is negative", err.Component, err.Value)
}

// IsConfiguration marks the error as a caller mistake for exit-code mapping.
func (err *InvalidAddressError) IsConfiguration() bool { return true }

// MalformedAddressError is returned when Parse is given text that is not a
// dot-separated list of up to three non-negative integers.
type MalformedAddressError struct {
	Text   string
	Reason string
}

func (err *MalformedAddressError) Error() string {
	return fmt.Sprintf("malformed address %q: %s", err.Text, err.Reason)
}

// IsConfiguration marks the error as a caller mistake for exit-code mapping.
func (err *MalformedAddressError) IsConfiguration() bool { return true }
