// Package worker describes the worker processes deployed onto agents.
package worker

import (
	"fmt"
	"maps"

	"github.com/wesleyorama2/simfleet/internal/address"
)

// Common worker types. The set is open: vendor drivers may define further
// client flavors.
const (
	TypeMember     = "member"
	TypeJavaClient = "javaclient"
)

// Class splits worker types into cluster members and clients.
type Class int

const (
	Member Class = iota
	Client
)

func (c Class) String() string {
	switch c {
	case Member:
		return "member"
	case Client:
		return "client"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// ParseClass converts the textual form used in fleet configuration files.
func ParseClass(s string) (Class, error) {
	switch s {
	case "member":
		return Member, nil
	case "client":
		return Client, nil
	default:
		return 0, fmt.Errorf("unknown worker class %q (expected member or client)", s)
	}
}

// Parameters describe one worker to be started.
//
// Address is left as the zero address while the worker only exists in a
// deployment plan; the registry assigns the real address on commit.
type Parameters struct {
	Address     address.SimulatorAddress `json:"address" yaml:"address"`
	WorkerType  string                   `json:"workerType" yaml:"workerType"`
	VersionSpec string                   `json:"versionSpec" yaml:"versionSpec"`
	Env         map[string]string        `json:"env,omitempty" yaml:"env,omitempty"`
}

// Clone returns a deep copy.
func (p *Parameters) Clone() *Parameters {
	c := *p
	c.Env = maps.Clone(p.Env)
	return &c
}

// WithAddress returns a copy bound to addr.
func (p *Parameters) WithAddress(addr address.SimulatorAddress) *Parameters {
	c := p.Clone()
	c.Address = addr
	return c
}

func (p *Parameters) String() string {
	addr := "unassigned"
	if !p.Address.IsZero() {
		addr = p.Address.String()
	}
	return fmt.Sprintf("%s[%s, %s]", p.WorkerType, addr, p.VersionSpec)
}
