// Package plan computes where new workers should be started.
//
// A DeploymentPlan is built from a point-in-time snapshot of the agents and
// never touches the registry. Callers launch the planned workers and commit
// the ones that started back into the registry, which assigns their
// permanent addresses.
//
// Placement is greedy least-loaded: every new worker goes to the eligible
// agent currently hosting the fewest workers, counting both the workers
// already committed to the registry and the ones planned so far. Ties go to
// the lowest agent index, which makes plans deterministic and lets repeated
// small deployments converge on the same layout one large deployment would
// produce.
//
// Eligibility follows the agent's worker mode. Once dedicated member machines
// are assigned, members only go to the reserved agents and clients only to
// the remaining ones.
package plan

import (
	"maps"
	"slices"

	"github.com/wesleyorama2/simfleet/internal/address"
	"github.com/wesleyorama2/simfleet/internal/fleeterr"
	"github.com/wesleyorama2/simfleet/internal/registry"
	"github.com/wesleyorama2/simfleet/internal/vendor"
	"github.com/wesleyorama2/simfleet/internal/worker"
)

// agentLayout tracks one agent's load while the plan is being built.
type agentLayout struct {
	address address.SimulatorAddress
	mode    registry.WorkerMode
	members int
	clients int
	planned []*worker.Parameters
}

func (l *agentLayout) workerCount() int {
	return l.members + l.clients
}

func (l *agentLayout) clone() *agentLayout {
	c := *l
	c.planned = slices.Clone(l.planned)
	return &c
}

// DeploymentPlan is a computed, not yet committed assignment of new workers to agents.
type DeploymentPlan struct {
	driver  vendor.Driver
	layouts []*agentLayout
}

// AgentSource is anything that can hand out an agent snapshot, such as a
// *registry.ComponentRegistry.
type AgentSource interface {
	Agents() []registry.AgentData
}

// NewFromRegistry builds a plan over the current state of the registry.
func NewFromRegistry(driver vendor.Driver, source AgentSource) (*DeploymentPlan, error) {
	return New(driver, source.Agents())
}

// New builds a plan over the given agents, which must be in index order.
// It fails with a configuration error if there are no agents.
func New(driver vendor.Driver, agents []registry.AgentData) (*DeploymentPlan, error) {
	if len(agents) == 0 {
		return nil, fleeterr.Configurationf("no agents running")
	}

	layouts := make([]*agentLayout, len(agents))
	for i, agent := range agents {
		layout := &agentLayout{address: agent.Address, mode: agent.WorkerMode}
		for _, w := range agent.Workers {
			// Workers of a type the driver no longer knows still occupy the agent.
			if class, err := driver.Classify(w.WorkerType); err == nil && class == worker.Member {
				layout.members++
			} else {
				layout.clients++
			}
		}
		layouts[i] = layout
	}
	return &DeploymentPlan{driver: driver, layouts: layouts}, nil
}

// AddToPlan places count workers of workerType. It may be called repeatedly
// to mix member and client batches in one plan. The request is either
// satisfied completely or the plan is left unchanged and an error returned.
func (p *DeploymentPlan) AddToPlan(count int, workerType string) error {
	if count < 0 {
		return fleeterr.Configurationf("worker count for %q can't be negative, was %d", workerType, count)
	}
	if count == 0 {
		return nil
	}

	class, err := p.driver.Classify(workerType)
	if err != nil {
		return err
	}

	eligible := p.eligible(class)
	if len(eligible) == 0 {
		if class == worker.Client {
			return fleeterr.Configurationf(
				"the number of agents is not sufficient for dedicated members and client workers: "+
					"all %d agents are reserved for members, %d %s workers can't be placed",
				len(p.layouts), count, workerType)
		}
		return fleeterr.Configurationf("no agent accepts member workers, %d %s workers can't be placed",
			count, workerType)
	}

	template, err := p.driver.LoadWorkerParameters(workerType, vendor.VersionSpecKey)
	if err != nil {
		return err
	}

	// Work on copies so that a failure never leaves a half-applied request behind.
	working := make([]*agentLayout, len(eligible))
	for i, idx := range eligible {
		working[i] = p.layouts[idx].clone()
	}
	for i := 0; i < count; i++ {
		layout := leastLoaded(working)
		layout.planned = append(layout.planned, template.Clone())
		if class == worker.Member {
			layout.members++
		} else {
			layout.clients++
		}
	}
	for i, idx := range eligible {
		p.layouts[idx] = working[i]
	}
	return nil
}

// eligible returns the indices of the layouts accepting class, in agent order.
func (p *DeploymentPlan) eligible(class worker.Class) []int {
	var result []int
	for i, layout := range p.layouts {
		if layout.mode.Accepts(class) {
			result = append(result, i)
		}
	}
	return result
}

// leastLoaded returns the layout with the fewest workers; the first one wins ties.
func leastLoaded(layouts []*agentLayout) *agentLayout {
	best := layouts[0]
	for _, layout := range layouts[1:] {
		if layout.workerCount() < best.workerCount() {
			best = layout
		}
	}
	return best
}

// WorkerDeployment returns the planned workers per agent. Every agent of the
// snapshot has an entry, possibly empty. The returned parameters are copies
// with unassigned addresses.
func (p *DeploymentPlan) WorkerDeployment() map[address.SimulatorAddress][]*worker.Parameters {
	deployment := make(map[address.SimulatorAddress][]*worker.Parameters, len(p.layouts))
	for _, layout := range p.layouts {
		planned := make([]*worker.Parameters, len(layout.planned))
		for i, params := range layout.planned {
			planned[i] = params.Clone()
		}
		deployment[layout.address] = planned
	}
	return deployment
}

// Agents returns the agent addresses of the plan in index order.
func (p *DeploymentPlan) Agents() []address.SimulatorAddress {
	agents := make([]address.SimulatorAddress, len(p.layouts))
	for i, layout := range p.layouts {
		agents[i] = layout.address
	}
	return agents
}

// WorkerCount returns the total number of planned workers.
func (p *DeploymentPlan) WorkerCount() int {
	total := 0
	for _, layout := range p.layouts {
		total += len(layout.planned)
	}
	return total
}

// Counts returns how many members and clients are planned on an agent.
func (p *DeploymentPlan) Counts(agent address.SimulatorAddress) (members, clients int) {
	for _, layout := range p.layouts {
		if layout.address != agent {
			continue
		}
		for _, params := range layout.planned {
			if class, err := p.driver.Classify(params.WorkerType); err == nil && class == worker.Member {
				members++
			} else {
				clients++
			}
		}
	}
	return members, clients
}

// VersionSpecs returns the distinct version specs of all planned workers, sorted.
// These are the product builds that must be available before launch.
func (p *DeploymentPlan) VersionSpecs() []string {
	specs := make(map[string]struct{})
	for _, layout := range p.layouts {
		for _, params := range layout.planned {
			specs[params.VersionSpec] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(specs))
}
