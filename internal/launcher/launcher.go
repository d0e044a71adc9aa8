// Package launcher is the boundary to whatever actually starts and stops
// worker processes on agents.
package launcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/wesleyorama2/simfleet/internal/registry"
	"github.com/wesleyorama2/simfleet/internal/worker"
)

// Result reports the outcome of starting the worker at Index in the batch
// handed to Launch.
type Result struct {
	Index    int
	Err      error
	Duration time.Duration
}

// Launcher starts and stops workers. Launch must return one Result per
// worker; workers whose Result carries an error are not committed.
type Launcher interface {
	Launch(ctx context.Context, agent registry.AgentData, workers []*worker.Parameters) []Result
	Stop(ctx context.Context, w registry.WorkerData) error
}

// RecordOnly is a Launcher that starts nothing and reports success. It is
// used when the topology is only being recorded, and in tests where specific
// worker types or agents can be made to fail.
type RecordOnly struct {
	mu           sync.Mutex
	failTypes    map[string]error
	failAgents   map[string]error
	launched     int
	stopped      []registry.WorkerData
	failStopping error
}

// NewRecordOnly creates a launcher that succeeds for every worker.
func NewRecordOnly() *RecordOnly {
	return &RecordOnly{
		failTypes:  make(map[string]error),
		failAgents: make(map[string]error),
	}
}

// FailType makes every launch of workerType fail with err.
func (l *RecordOnly) FailType(workerType string, err error) *RecordOnly {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failTypes[workerType] = err
	return l
}

// FailAgent makes every launch on the agent with the given public address fail.
func (l *RecordOnly) FailAgent(publicAddress string, err error) *RecordOnly {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failAgents[publicAddress] = err
	return l
}

// FailStop makes Stop return err.
func (l *RecordOnly) FailStop(err error) *RecordOnly {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failStopping = err
	return l
}

func (l *RecordOnly) Launch(ctx context.Context, agent registry.AgentData, workers []*worker.Parameters) []Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	results := make([]Result, len(workers))
	for i, w := range workers {
		start := time.Now()
		var err error
		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
		case l.failAgents[agent.PublicAddress] != nil:
			err = fmt.Errorf("agent %s: %w", agent.PublicAddress, l.failAgents[agent.PublicAddress])
		case l.failTypes[w.WorkerType] != nil:
			err = l.failTypes[w.WorkerType]
		default:
			l.launched++
		}
		results[i] = Result{Index: i, Err: err, Duration: time.Since(start)}
	}
	return results
}

func (l *RecordOnly) Stop(ctx context.Context, w registry.WorkerData) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.failStopping != nil {
		return l.failStopping
	}
	l.stopped = append(l.stopped, w)
	return nil
}

// Launched returns the number of workers successfully launched so far.
func (l *RecordOnly) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launched
}

// Stopped returns the workers stopped so far, in call order.
func (l *RecordOnly) Stopped() []registry.WorkerData {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]registry.WorkerData(nil), l.stopped...)
}
