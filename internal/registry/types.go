package registry

import (
	"fmt"

	"github.com/wesleyorama2/simfleet/internal/address"
	"github.com/wesleyorama2/simfleet/internal/worker"
)

// WorkerMode records which worker classes an agent may host.
type WorkerMode int

const (
	// Mixed agents host members and clients. Every agent is mixed until
	// dedicated member machines are assigned.
	Mixed WorkerMode = iota
	// MembersOnly agents are reserved for cluster members.
	MembersOnly
	// ClientsOnly agents are the remainder once member machines are reserved.
	ClientsOnly
)

func (m WorkerMode) String() string {
	switch m {
	case Mixed:
		return "mixed"
	case MembersOnly:
		return "members-only"
	case ClientsOnly:
		return "clients-only"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Accepts reports whether a worker of class c may be placed on an agent in this mode.
func (m WorkerMode) Accepts(c worker.Class) bool {
	switch m {
	case Mixed:
		return true
	case MembersOnly:
		return c == worker.Member
	case ClientsOnly:
		return c == worker.Client
	default:
		return false
	}
}

func (m WorkerMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *WorkerMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "", "mixed":
		*m = Mixed
	case "members-only":
		*m = MembersOnly
	case "clients-only":
		*m = ClientsOnly
	default:
		return fmt.Errorf("unknown worker mode %q", string(text))
	}
	return nil
}

// WorkerData is a committed worker with a concrete address.
type WorkerData struct {
	worker.Parameters
}

// AgentAddress returns the address of the agent hosting the worker.
func (w WorkerData) AgentAddress() address.SimulatorAddress {
	return w.Address.Parent()
}

// AgentData is a snapshot of one provisioned machine and its workers.
type AgentData struct {
	Address        address.SimulatorAddress
	PublicAddress  string
	PrivateAddress string
	WorkerMode     WorkerMode
	Workers        []WorkerData
}

// IsDedicated reports whether the agent is reserved for members.
func (a AgentData) IsDedicated() bool {
	return a.WorkerMode == MembersOnly
}

// DedicatedMemberCount is 1 for an agent reserved for members and 0 otherwise.
func (a AgentData) DedicatedMemberCount() int {
	if a.IsDedicated() {
		return 1
	}
	return 0
}

// WorkerCount returns the number of workers on the agent.
func (a AgentData) WorkerCount() int {
	return len(a.Workers)
}

func (a AgentData) String() string {
	return fmt.Sprintf("agent %s (%s/%s, %s, %d workers)",
		a.Address, a.PublicAddress, a.PrivateAddress, a.WorkerMode, len(a.Workers))
}

// State is the serializable form of a registry.
type State struct {
	NextAgentIndex int          `json:"nextAgentIndex" yaml:"nextAgentIndex"`
	Agents         []AgentState `json:"agents" yaml:"agents"`
}

// AgentState is the serializable form of one agent.
type AgentState struct {
	Address         address.SimulatorAddress `json:"address" yaml:"address"`
	PublicAddress   string                   `json:"publicAddress" yaml:"publicAddress"`
	PrivateAddress  string                   `json:"privateAddress" yaml:"privateAddress"`
	WorkerMode      WorkerMode               `json:"workerMode" yaml:"workerMode"`
	NextWorkerIndex int                      `json:"nextWorkerIndex" yaml:"nextWorkerIndex"`
	Workers         []worker.Parameters      `json:"workers" yaml:"workers"`
}
