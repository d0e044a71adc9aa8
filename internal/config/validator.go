package config

import (
	"fmt"
	"strings"

	"github.com/wesleyorama2/simfleet/internal/worker"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors struct {
	Errors []*ValidationError
}

func (e *ValidationErrors) Error() string {
	if len(e.Errors) == 0 {
		return "no validation errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// IsConfiguration marks validation failures as configuration errors.
func (e *ValidationErrors) IsConfiguration() bool { return true }

// Add adds an error to the collection.
func (e *ValidationErrors) Add(field, message string) {
	e.Errors = append(e.Errors, &ValidationError{Field: field, Message: message})
}

// HasErrors returns true if there are any errors.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Errors) > 0
}

// Validate validates the fleet configuration.
//
// Returns nil if valid, or a ValidationErrors containing all validation errors.
func (c *FleetConfig) Validate() error {
	errs := &ValidationErrors{}

	validateAgents(c.Agents, errs)

	if c.DedicatedMemberMachines < 0 {
		errs.Add("dedicatedMemberMachines", "must not be negative")
	} else if c.DedicatedMemberMachines > len(c.Agents) {
		errs.Add("dedicatedMemberMachines",
			fmt.Sprintf("%d exceeds the number of agents %d", c.DedicatedMemberMachines, len(c.Agents)))
	}

	validateVendor(&c.Vendor, errs)
	c.validateWorkers(errs)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func validateAgents(agents []AgentConfig, errs *ValidationErrors) {
	if len(agents) == 0 {
		errs.Add("agents", "at least one agent is required")
	}

	seen := make(map[string]int, len(agents))
	for i, agent := range agents {
		prefix := fmt.Sprintf("agents[%d]", i)
		if agent.PublicAddress == "" {
			errs.Add(prefix+".publicAddress", "publicAddress is required")
			continue
		}
		if first, ok := seen[agent.PublicAddress]; ok {
			errs.Add(prefix+".publicAddress",
				fmt.Sprintf("duplicate address %s, already used by agents[%d]", agent.PublicAddress, first))
			continue
		}
		seen[agent.PublicAddress] = i
	}
}

func validateVendor(v *VendorConfig, errs *ValidationErrors) {
	for workerType, wt := range v.WorkerTypes {
		prefix := "vendor.workerTypes." + workerType
		if workerType == "" {
			errs.Add("vendor.workerTypes", "worker type name must not be empty")
			continue
		}
		if _, err := worker.ParseClass(wt.Class); err != nil {
			errs.Add(prefix+".class", err.Error())
		}
	}
}

func (c *FleetConfig) validateWorkers(errs *ValidationErrors) {
	w := c.Workers
	if w.Members < 0 {
		errs.Add("workers.members", "must not be negative")
	}
	if w.Clients < 0 {
		errs.Add("workers.clients", "must not be negative")
	}

	if w.Members > 0 {
		c.expectClass("workers.members", worker.TypeMember, worker.Member, errs)
	}
	if w.Clients > 0 {
		c.expectClass("workers.clientType", w.ClientType, worker.Client, errs)
		if len(c.Agents) > 0 && c.DedicatedMemberMachines == len(c.Agents) {
			errs.Add("workers.clients",
				"the number of agents is not sufficient for dedicated members and client workers")
		}
	}
}

func (c *FleetConfig) expectClass(field, workerType string, want worker.Class, errs *ValidationErrors) {
	wt, ok := c.Vendor.WorkerTypes[workerType]
	if !ok {
		errs.Add(field, fmt.Sprintf("worker type %q is not declared in vendor.workerTypes", workerType))
		return
	}
	class, err := worker.ParseClass(wt.Class)
	if err != nil {
		// Already reported by validateVendor.
		return
	}
	if class != want {
		errs.Add(field, fmt.Sprintf("worker type %q is a %s type, expected %s", workerType, class, want))
	}
}
