// Package coordinator drives the plan, launch and commit cycle that grows and
// shrinks the fleet.
package coordinator

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/wesleyorama2/simfleet/internal/address"
	"github.com/wesleyorama2/simfleet/internal/fleeterr"
	"github.com/wesleyorama2/simfleet/internal/launcher"
	"github.com/wesleyorama2/simfleet/internal/metrics"
	"github.com/wesleyorama2/simfleet/internal/plan"
	"github.com/wesleyorama2/simfleet/internal/registry"
	"github.com/wesleyorama2/simfleet/internal/vendor"
	"github.com/wesleyorama2/simfleet/internal/worker"
)

// ScaleRequest asks for additional workers on top of the ones already running.
type ScaleRequest struct {
	Members     int
	Clients     int
	ClientType  string
	VersionSpec string
}

// FailedLaunch describes a planned worker that did not start.
type FailedLaunch struct {
	Agent      address.SimulatorAddress
	WorkerType string
	Err        error
}

// ScaleResult reports what a Scale call did. It is returned even when some
// launches failed.
type ScaleResult struct {
	Plan    *plan.DeploymentPlan
	Started []registry.WorkerData
	Failed  []FailedLaunch
}

// Coordinator serializes fleet changes so that a plan is always computed
// against the registry state it is committed to.
type Coordinator struct {
	Registry *registry.ComponentRegistry
	Driver   vendor.Driver
	Launcher launcher.Launcher
	Logger   *log.Entry
	Metrics  *metrics.FleetMetrics

	mu sync.Mutex
}

// New creates a coordinator with a default logger and fresh metrics.
func New(reg *registry.ComponentRegistry, driver vendor.Driver, l launcher.Launcher) *Coordinator {
	return &Coordinator{
		Registry: reg,
		Driver:   driver,
		Launcher: l,
		Logger:   log.WithField("component", "coordinator"),
		Metrics:  metrics.New(),
	}
}

// Plan computes where the requested workers would go without launching or
// committing anything. Members are placed before clients. The driver is left
// as it was.
func (c *Coordinator) Plan(req ScaleRequest) (*plan.DeploymentPlan, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.planLocked(req)
}

func (c *Coordinator) planLocked(req ScaleRequest) (*plan.DeploymentPlan, error) {
	if req.Clients > 0 {
		if req.ClientType == "" {
			return nil, fleeterr.Configurationf("client type is required when requesting %d clients", req.Clients)
		}
		class, err := c.Driver.Classify(req.ClientType)
		if err != nil {
			return nil, err
		}
		if class != worker.Client {
			return nil, fleeterr.Configurationf("worker type %q is a %s type, not a client type", req.ClientType, class)
		}
	}
	// The requested version only applies to this plan.
	if req.VersionSpec != "" {
		previous := c.Driver.Get(vendor.VersionSpecKey)
		c.Driver.Set(vendor.VersionSpecKey, req.VersionSpec)
		defer c.Driver.Set(vendor.VersionSpecKey, previous)
	}

	p, err := plan.NewFromRegistry(c.Driver, c.Registry)
	if err != nil {
		return nil, err
	}
	if err := p.AddToPlan(req.Members, worker.TypeMember); err != nil {
		return nil, err
	}
	if err := p.AddToPlan(req.Clients, req.ClientType); err != nil {
		return nil, err
	}
	return p, nil
}

// Scale plans the request, launches every agent's batch concurrently and
// commits the workers that started. Launch failures are collected into the
// returned error; the workers that did start stay registered.
func (c *Coordinator) Scale(ctx context.Context, req ScaleRequest) (*ScaleResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, err := c.planLocked(req)
	if err != nil {
		return nil, err
	}

	agents := c.Registry.Agents()
	deployment := p.WorkerDeployment()
	launched := make([][]launcher.Result, len(agents))

	var g errgroup.Group
	for i, agent := range agents {
		batch := deployment[agent.Address]
		if len(batch) == 0 {
			continue
		}
		g.Go(func() error {
			c.Logger.WithField("agent", agent.Address.String()).
				WithField("workers", len(batch)).Debug("launching workers")
			launched[i] = c.Launcher.Launch(ctx, agent, batch)
			return nil
		})
	}
	_ = g.Wait()

	result := &ScaleResult{Plan: p}
	var merr *multierror.Error
	for i, agent := range agents {
		batch := deployment[agent.Address]
		if len(batch) == 0 {
			continue
		}
		started, failed := c.sortResults(agent.Address, batch, launched[i])
		for _, f := range failed {
			result.Failed = append(result.Failed, f)
			merr = multierror.Append(merr, errors.Wrapf(f.Err, "launching %s worker on agent %s", f.WorkerType, f.Agent))
		}
		if len(started) == 0 {
			continue
		}
		committed, err := c.Registry.AddWorkers(agent.Address, started)
		if err != nil {
			merr = multierror.Append(merr, errors.Wrapf(err, "registering workers on agent %s", agent.Address))
			continue
		}
		for _, w := range committed {
			c.Logger.WithField("worker", w.Address.String()).WithField("type", w.WorkerType).Info("worker started")
		}
		result.Started = append(result.Started, committed...)
	}

	c.observeFleet()
	c.Logger.WithField("started", len(result.Started)).WithField("failed", len(result.Failed)).Info("scale finished")
	return result, merr.ErrorOrNil()
}

// sortResults splits a batch into started and failed workers. A worker the
// launcher did not report on counts as failed.
func (c *Coordinator) sortResults(agent address.SimulatorAddress, batch []*worker.Parameters, results []launcher.Result) ([]*worker.Parameters, []FailedLaunch) {
	reported := make([]bool, len(batch))
	var started []*worker.Parameters
	var failed []FailedLaunch
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(batch) || reported[r.Index] {
			continue
		}
		reported[r.Index] = true
		params := batch[r.Index]
		c.Metrics.RecordLaunch(params.WorkerType, r.Duration, r.Err)
		if r.Err != nil {
			failed = append(failed, FailedLaunch{Agent: agent, WorkerType: params.WorkerType, Err: r.Err})
			continue
		}
		started = append(started, params)
	}
	for i, ok := range reported {
		if !ok {
			err := errors.Errorf("launcher reported no result for worker %d", i)
			c.Metrics.RecordLaunch(batch[i].WorkerType, 0, err)
			failed = append(failed, FailedLaunch{Agent: agent, WorkerType: batch[i].WorkerType, Err: err})
		}
	}
	return started, failed
}

// KillWorker stops a single worker and removes it from the registry.
func (c *Coordinator) KillWorker(ctx context.Context, workerAddress address.SimulatorAddress) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.Registry.Worker(workerAddress)
	if !ok {
		return fleeterr.Configurationf("worker %s is not registered", workerAddress)
	}
	if err := c.Launcher.Stop(ctx, w); err != nil {
		return errors.Wrapf(err, "stopping worker %s", workerAddress)
	}
	if err := c.Registry.RemoveWorker(workerAddress); err != nil {
		return err
	}
	c.observeFleet()
	return nil
}

// Terminate stops every worker. Workers that stopped are removed from the
// registry; the others stay and are reported in the returned error.
func (c *Coordinator) Terminate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	workers := c.Registry.Workers()
	errs := make([]error, len(workers))

	var g errgroup.Group
	for i, w := range workers {
		g.Go(func() error {
			errs[i] = c.Launcher.Stop(ctx, w)
			return nil
		})
	}
	_ = g.Wait()

	var merr *multierror.Error
	for i, w := range workers {
		if errs[i] != nil {
			merr = multierror.Append(merr, errors.Wrapf(errs[i], "stopping worker %s", w.Address))
			continue
		}
		if err := c.Registry.RemoveWorker(w.Address); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	c.observeFleet()
	c.Logger.WithField("workers", len(workers)).Info("terminated workers")
	return merr.ErrorOrNil()
}

func (c *Coordinator) observeFleet() {
	c.Metrics.ObserveFleet(c.Registry.AgentCount(), c.Registry.WorkerTypeCounts())
}
