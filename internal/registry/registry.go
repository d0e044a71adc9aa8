// Package registry holds the authoritative inventory of agents and workers
// known to the coordinator.
//
// # Thread Safety
//
// ComponentRegistry is safe for concurrent use. All mutations take an
// exclusive lock and every accessor returns a copy, so callers never observe
// a registry torn mid-mutation and cannot change it behind its back.
package registry

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/wesleyorama2/simfleet/internal/address"
	"github.com/wesleyorama2/simfleet/internal/fleeterr"
	"github.com/wesleyorama2/simfleet/internal/worker"
)

type agentEntry struct {
	address         address.SimulatorAddress
	publicAddress   string
	privateAddress  string
	mode            WorkerMode
	workers         []WorkerData
	nextWorkerIndex int
}

func (e *agentEntry) snapshot() AgentData {
	workers := make([]WorkerData, len(e.workers))
	for i, w := range e.workers {
		workers[i] = cloneWorker(w)
	}
	return AgentData{
		Address:        e.address,
		PublicAddress:  e.publicAddress,
		PrivateAddress: e.privateAddress,
		WorkerMode:     e.mode,
		Workers:        workers,
	}
}

func cloneWorker(w WorkerData) WorkerData {
	return WorkerData{Parameters: *w.Parameters.Clone()}
}

// ComponentRegistry is the single source of truth for agents and workers.
type ComponentRegistry struct {
	mu             sync.RWMutex
	agents         []*agentEntry
	nextAgentIndex int
	logger         *log.Entry
}

// Option configures a ComponentRegistry.
type Option func(*ComponentRegistry)

// WithLogger sets the logger used to record mutations.
func WithLogger(logger *log.Entry) Option {
	return func(r *ComponentRegistry) {
		r.logger = logger
	}
}

// New creates an empty registry.
func New(opts ...Option) *ComponentRegistry {
	r := &ComponentRegistry{
		nextAgentIndex: 1,
		logger:         log.WithField("component", "registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddAgent registers a machine under the next agent index. The agent is
// mixed unless dedicated member machines are assigned, in which case it only
// takes clients.
func (r *ComponentRegistry) AddAgent(publicAddress, privateAddress string) AgentData {
	r.mu.Lock()
	defer r.mu.Unlock()

	mode := Mixed
	for _, entry := range r.agents {
		if entry.mode == MembersOnly {
			mode = ClientsOnly
			break
		}
	}
	entry := &agentEntry{
		address:         address.MustAgent(r.nextAgentIndex),
		publicAddress:   publicAddress,
		privateAddress:  privateAddress,
		mode:            mode,
		nextWorkerIndex: 1,
	}
	r.nextAgentIndex++
	r.agents = append(r.agents, entry)

	r.logger.WithFields(log.Fields{
		"agent":   entry.address.String(),
		"public":  publicAddress,
		"private": privateAddress,
	}).Debug("agent added")
	return entry.snapshot()
}

// AssignDedicatedMemberMachines reserves the first count agents, in index
// order, for member workers. The remaining agents only take clients. A count
// of zero turns every agent back into a mixed agent.
func (r *ComponentRegistry) AssignDedicatedMemberMachines(count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if count < 0 {
		return fleeterr.Configurationf("dedicated member machine count can't be negative, was %d", count)
	}
	if count > len(r.agents) {
		return fleeterr.Configurationf("dedicated member machine count %d exceeds the number of agents %d",
			count, len(r.agents))
	}

	for i, entry := range r.agents {
		switch {
		case count == 0:
			entry.mode = Mixed
		case i < count:
			entry.mode = MembersOnly
		default:
			entry.mode = ClientsOnly
		}
	}
	r.logger.WithField("count", count).Info("assigned dedicated member machines")
	return nil
}

// AddWorkers commits workers onto the agent at agentAddress. Each worker is
// given the next free worker index on that agent; the passed parameters are
// not modified.
func (r *ComponentRegistry) AddWorkers(agentAddress address.SimulatorAddress, params []*worker.Parameters) ([]WorkerData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, err := r.findAgent(agentAddress)
	if err != nil {
		return nil, err
	}
	if err := checkParameters(agentAddress, params); err != nil {
		return nil, err
	}
	return r.addWorkersLocked(entry, params), nil
}

// AddWorkersFromPlan commits a whole deployment, agent by agent in address
// order. Nothing is committed if any agent is unknown or any parameters are
// nil.
func (r *ComponentRegistry) AddWorkersFromPlan(deployment map[address.SimulatorAddress][]*worker.Parameters) ([]WorkerData, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agents := make([]address.SimulatorAddress, 0, len(deployment))
	for agentAddress := range deployment {
		agents = append(agents, agentAddress)
	}
	address.Sort(agents)

	entries := make([]*agentEntry, len(agents))
	for i, agentAddress := range agents {
		entry, err := r.findAgent(agentAddress)
		if err != nil {
			return nil, err
		}
		if err := checkParameters(agentAddress, deployment[agentAddress]); err != nil {
			return nil, err
		}
		entries[i] = entry
	}

	var added []WorkerData
	for i, entry := range entries {
		added = append(added, r.addWorkersLocked(entry, deployment[agents[i]])...)
	}
	return added, nil
}

func checkParameters(agentAddress address.SimulatorAddress, params []*worker.Parameters) error {
	for _, p := range params {
		if p == nil {
			return fleeterr.Configurationf("nil worker parameters for agent %s", agentAddress)
		}
	}
	return nil
}

func (r *ComponentRegistry) addWorkersLocked(entry *agentEntry, params []*worker.Parameters) []WorkerData {
	added := make([]WorkerData, 0, len(params))
	for _, p := range params {
		addr := address.MustWorker(entry.address.AgentIndex(), entry.nextWorkerIndex)
		entry.nextWorkerIndex++
		w := WorkerData{Parameters: *p.WithAddress(addr)}
		entry.workers = append(entry.workers, w)
		added = append(added, cloneWorker(w))

		r.logger.WithFields(log.Fields{
			"worker":  addr.String(),
			"type":    p.WorkerType,
			"version": p.VersionSpec,
		}).Debug("worker added")
	}
	return added
}

// RemoveWorker drops a single worker, e.g. after it crashed. The indices of
// the surviving workers are left untouched and never handed out again.
func (r *ComponentRegistry) RemoveWorker(workerAddress address.SimulatorAddress) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if workerAddress.Level() != address.Worker {
		return fleeterr.Configurationf("%s is not a worker address", workerAddress)
	}
	entry, err := r.findAgent(workerAddress.Parent())
	if err != nil {
		return err
	}
	for i, w := range entry.workers {
		if w.Address == workerAddress {
			entry.workers = append(entry.workers[:i:i], entry.workers[i+1:]...)
			r.logger.WithField("worker", workerAddress.String()).Info("worker removed")
			return nil
		}
	}
	return fleeterr.Configurationf("worker %s is not registered", workerAddress)
}

// RemoveAgents tears down the whole fleet. Agent indices keep counting up
// afterwards.
func (r *ComponentRegistry) RemoveAgents() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.WithField("agents", len(r.agents)).Info("removing all agents")
	r.agents = nil
}

func (r *ComponentRegistry) findAgent(agentAddress address.SimulatorAddress) (*agentEntry, error) {
	if agentAddress.Level() != address.Agent {
		return nil, fleeterr.Configurationf("%s is not an agent address", agentAddress)
	}
	for _, entry := range r.agents {
		if entry.address == agentAddress {
			return entry, nil
		}
	}
	return nil, fleeterr.Configurationf("agent %s is not registered", agentAddress)
}

// Agents returns a snapshot of all agents in index order.
func (r *ComponentRegistry) Agents() []AgentData {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]AgentData, len(r.agents))
	for i, entry := range r.agents {
		agents[i] = entry.snapshot()
	}
	return agents
}

// AgentCount returns the number of registered agents.
func (r *ComponentRegistry) AgentCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}

// Agent looks up an agent by address.
func (r *ComponentRegistry) Agent(agentAddress address.SimulatorAddress) (AgentData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, err := r.findAgent(agentAddress)
	if err != nil {
		return AgentData{}, false
	}
	return entry.snapshot(), true
}

// Workers returns all workers ordered by address.
func (r *ComponentRegistry) Workers() []WorkerData {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var workers []WorkerData
	for _, entry := range r.agents {
		for _, w := range entry.workers {
			workers = append(workers, cloneWorker(w))
		}
	}
	return workers
}

// WorkerCount returns the total number of workers.
func (r *ComponentRegistry) WorkerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entry := range r.agents {
		count += len(entry.workers)
	}
	return count
}

// Worker looks up a worker by address.
func (r *ComponentRegistry) Worker(workerAddress address.SimulatorAddress) (WorkerData, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if workerAddress.Level() != address.Worker {
		return WorkerData{}, false
	}
	entry, err := r.findAgent(workerAddress.Parent())
	if err != nil {
		return WorkerData{}, false
	}
	for _, w := range entry.workers {
		if w.Address == workerAddress {
			return cloneWorker(w), true
		}
	}
	return WorkerData{}, false
}

// FirstWorker returns the worker with the lowest address.
func (r *ComponentRegistry) FirstWorker() (WorkerData, bool) {
	workers := r.Workers()
	if len(workers) == 0 {
		return WorkerData{}, false
	}
	return workers[0], true
}

// WorkersOfType returns the workers of the given type ordered by address.
func (r *ComponentRegistry) WorkersOfType(workerType string) []WorkerData {
	var result []WorkerData
	for _, w := range r.Workers() {
		if w.WorkerType == workerType {
			result = append(result, w)
		}
	}
	return result
}

// WorkerTypeCounts returns the number of workers per worker type.
func (r *ComponentRegistry) WorkerTypeCounts() map[string]int {
	counts := make(map[string]int)
	for _, w := range r.Workers() {
		counts[w.WorkerType]++
	}
	return counts
}

// State exports the registry in its serializable form.
func (r *ComponentRegistry) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	state := State{NextAgentIndex: r.nextAgentIndex, Agents: make([]AgentState, len(r.agents))}
	for i, entry := range r.agents {
		workers := make([]worker.Parameters, len(entry.workers))
		for j, w := range entry.workers {
			workers[j] = *w.Parameters.Clone()
		}
		state.Agents[i] = AgentState{
			Address:         entry.address,
			PublicAddress:   entry.publicAddress,
			PrivateAddress:  entry.privateAddress,
			WorkerMode:      entry.mode,
			NextWorkerIndex: entry.nextWorkerIndex,
			Workers:         workers,
		}
	}
	return state
}

// Restore replaces the registry content with a previously exported state.
// The state is validated first; on error the registry is left unchanged.
func (r *ComponentRegistry) Restore(state State) error {
	agents, nextAgentIndex, err := restoreAgents(state)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents = agents
	r.nextAgentIndex = nextAgentIndex
	r.logger.WithField("agents", len(agents)).Debug("registry restored")
	return nil
}

func restoreAgents(state State) ([]*agentEntry, int, error) {
	agents := make([]*agentEntry, 0, len(state.Agents))
	highestAgent := 0
	for _, as := range state.Agents {
		if as.Address.Level() != address.Agent {
			return nil, 0, fleeterr.Configurationf("%s is not an agent address", as.Address)
		}
		if as.Address.AgentIndex() <= highestAgent {
			return nil, 0, fleeterr.Configurationf("agent %s is out of order", as.Address)
		}
		highestAgent = as.Address.AgentIndex()

		entry := &agentEntry{
			address:         as.Address,
			publicAddress:   as.PublicAddress,
			privateAddress:  as.PrivateAddress,
			mode:            as.WorkerMode,
			nextWorkerIndex: as.NextWorkerIndex,
		}
		highestWorker := 0
		for _, p := range as.Workers {
			if p.Address.Level() != address.Worker || p.Address.Parent() != as.Address {
				return nil, 0, fleeterr.Configurationf("worker %s does not belong to agent %s", p.Address, as.Address)
			}
			if p.Address.WorkerIndex() <= highestWorker {
				return nil, 0, fleeterr.Configurationf("worker %s is out of order", p.Address)
			}
			highestWorker = p.Address.WorkerIndex()
			entry.workers = append(entry.workers, WorkerData{Parameters: *p.Clone()})
		}
		entry.nextWorkerIndex = max(entry.nextWorkerIndex, highestWorker+1)
		agents = append(agents, entry)
	}
	return agents, max(state.NextAgentIndex, highestAgent+1), nil
}
