// Package address defines the hierarchical identifier space of a fleet.
//
// Every entity known to the coordinator is located by a SimulatorAddress:
//
//	0       the coordinator (fleet root)
//	1       agent 1
//	1.2     worker 2 on agent 1
//	1.2.3   test 3 on worker 2 of agent 1
//
// Index 0 is the wildcard sentinel for an unused level, so trailing zero
// levels are omitted from the textual form.
package address

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Level identifies how deep in the hierarchy an address points.
type Level int

const (
	Coordinator Level = iota
	Agent
	Worker
	Test
)

func (l Level) String() string {
	switch l {
	case Coordinator:
		return "coordinator"
	case Agent:
		return "agent"
	case Worker:
		return "worker"
	case Test:
		return "test"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// SimulatorAddress is an immutable (agent, worker, test) index tuple.
// The zero value is the coordinator address and doubles as the
// "unassigned" placeholder for workers that have not been committed yet.
type SimulatorAddress struct {
	agentIndex  int
	workerIndex int
	testIndex   int
}

// CoordinatorAddress returns the root of the address space.
func CoordinatorAddress() SimulatorAddress {
	return SimulatorAddress{}
}

// AgentAddress returns the address of the agent with the given index.
func AgentAddress(agentIndex int) (SimulatorAddress, error) {
	return newAddress(agentIndex, 0, 0)
}

// WorkerAddress returns the address of a worker on the given agent.
func WorkerAddress(agentIndex, workerIndex int) (SimulatorAddress, error) {
	return newAddress(agentIndex, workerIndex, 0)
}

// TestAddress returns the address of a test running on the given worker.
func TestAddress(agentIndex, workerIndex, testIndex int) (SimulatorAddress, error) {
	return newAddress(agentIndex, workerIndex, testIndex)
}

func newAddress(agentIndex, workerIndex, testIndex int) (SimulatorAddress, error) {
	for _, c := range []struct {
		name  string
		value int
	}{
		{"agent", agentIndex},
		{"worker", workerIndex},
		{"test", testIndex},
	} {
		if c.value < 0 {
			return SimulatorAddress{}, &InvalidAddressError{Component: c.name, Value: c.value}
		}
	}
	return SimulatorAddress{agentIndex: agentIndex, workerIndex: workerIndex, testIndex: testIndex}, nil
}

// MustAgent is like AgentAddress but panics on a negative index.
// Intended for indices the caller allocated itself.
func MustAgent(agentIndex int) SimulatorAddress {
	addr, err := AgentAddress(agentIndex)
	if err != nil {
		panic(err)
	}
	return addr
}

// MustWorker is like WorkerAddress but panics on a negative index.
func MustWorker(agentIndex, workerIndex int) SimulatorAddress {
	addr, err := WorkerAddress(agentIndex, workerIndex)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a SimulatorAddress) AgentIndex() int  { return a.agentIndex }
func (a SimulatorAddress) WorkerIndex() int { return a.workerIndex }
func (a SimulatorAddress) TestIndex() int   { return a.testIndex }

// IsZero reports whether a is the coordinator / unassigned address.
func (a SimulatorAddress) IsZero() bool {
	return a == SimulatorAddress{}
}

// Level returns the deepest non-wildcard level of the address.
func (a SimulatorAddress) Level() Level {
	switch {
	case a.testIndex > 0:
		return Test
	case a.workerIndex > 0:
		return Worker
	case a.agentIndex > 0:
		return Agent
	default:
		return Coordinator
	}
}

// Parent returns the address one level up. The parent of the coordinator is
// the coordinator.
func (a SimulatorAddress) Parent() SimulatorAddress {
	switch a.Level() {
	case Test:
		return SimulatorAddress{agentIndex: a.agentIndex, workerIndex: a.workerIndex}
	case Worker:
		return SimulatorAddress{agentIndex: a.agentIndex}
	default:
		return SimulatorAddress{}
	}
}

// String formats the address as dot-separated indices with trailing wildcard
// levels omitted.
func (a SimulatorAddress) String() string {
	parts := []int{a.agentIndex, a.workerIndex, a.testIndex}
	n := len(parts)
	for n > 1 && parts[n-1] == 0 {
		n--
	}
	var sb strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.Itoa(parts[i]))
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler.
func (a SimulatorAddress) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *SimulatorAddress) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse reads the textual form produced by String.
func Parse(text string) (SimulatorAddress, error) {
	if text == "" {
		return SimulatorAddress{}, &MalformedAddressError{Text: text, Reason: "empty address"}
	}
	parts := strings.Split(text, ".")
	if len(parts) > 3 {
		return SimulatorAddress{}, &MalformedAddressError{Text: text, Reason: "more than three levels"}
	}
	var indices [3]int
	for i, part := range parts {
		if part == "" {
			return SimulatorAddress{}, &MalformedAddressError{Text: text, Reason: "empty component"}
		}
		for _, r := range part {
			if r < '0' || r > '9' {
				return SimulatorAddress{}, &MalformedAddressError{
					Text:   text,
					Reason: fmt.Sprintf("component %q is not a non-negative integer", part),
				}
			}
		}
		value, err := strconv.Atoi(part)
		if err != nil {
			return SimulatorAddress{}, &MalformedAddressError{Text: text, Reason: err.Error()}
		}
		indices[i] = value
	}
	return SimulatorAddress{agentIndex: indices[0], workerIndex: indices[1], testIndex: indices[2]}, nil
}

// Compare orders addresses lexicographically by (agent, worker, test).
func Compare(a, b SimulatorAddress) int {
	switch {
	case a.agentIndex != b.agentIndex:
		return cmpInt(a.agentIndex, b.agentIndex)
	case a.workerIndex != b.workerIndex:
		return cmpInt(a.workerIndex, b.workerIndex)
	default:
		return cmpInt(a.testIndex, b.testIndex)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts before b.
func (a SimulatorAddress) Less(b SimulatorAddress) bool {
	return Compare(a, b) < 0
}

// Sort sorts addresses in place in tuple order.
func Sort(addresses []SimulatorAddress) {
	sort.SliceStable(addresses, func(i, j int) bool {
		return addresses[i].Less(addresses[j])
	})
}
