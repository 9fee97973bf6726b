// Package localexec runs a planned Instance locally with a bounded,
// dependency-respecting worker pool.
package localexec

import (
	"os/exec"
	"runtime"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/planbench/harness/internal/plan"
)

type runState int32

const (
	unprocessed runState = iota
	processing
	processed
)

// Transition is the event a worker emits on every state change. The worker
// passes it straight to Reporter.Report on its own goroutine; there is no
// separate reporter goroutine, so Report may be called concurrently.
type Transition struct {
	WorkerID int
	RunIndex int
	State    runState
}

// Reporter receives every Transition as it happens. Implementations must
// not block for long, since it shares the critical path with the workers'
// event emission.
type Reporter interface {
	Report(inst *plan.Instance, t Transition)
	Close()
}

// Executor runs every non-skipped Run in inst with up to Width concurrent
// workers, honoring depends edges between solver and learner runs.
type Executor struct {
	Width    int
	Logger   hclog.Logger
	Reporter Reporter

	mu     sync.Mutex
	cond   *sync.Cond
	states []runState
}

// Run executes inst to completion and returns the number of non-skipped
// runs that failed to spawn. It never returns a hard error: execution
// failure of an individual run is treated as non-fatal.
func (e *Executor) Run(inst *plan.Instance) (spawnFailures int) {
	logger := e.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	width := e.Width
	if width <= 0 {
		width = runtime.NumCPU()
	}
	if width < 1 {
		width = 1
	}

	e.states = make([]runState, len(inst.Runs))
	e.cond = sync.NewCond(&e.mu)
	for i, r := range inst.Runs {
		if r.Skip {
			e.states[i] = processed
		}
	}

	var failures int32
	var failMu sync.Mutex

	var g errgroup.Group
	for w := 0; w < width; w++ {
		workerID := w
		g.Go(func() error {
			for {
				idx, ok := e.acquireNext(inst)
				if !ok {
					return nil
				}
				e.emit(inst, Transition{WorkerID: workerID, RunIndex: idx, State: processing})

				// runner.sh always ends with `echo $? > exit_code`, so its own
				// exit status stays 0 regardless of the wrapped job's outcome;
				// an error here means the script itself could not be spawned.
				run := inst.Runs[idx]
				cmd := exec.Command(run.Exe)
				cmd.Dir = run.Dir
				if err := cmd.Run(); err != nil {
					logger.Warn("run failed to execute", "dir", run.Dir, "error", err)
					failMu.Lock()
					failures++
					failMu.Unlock()
				}

				e.mu.Lock()
				e.states[idx] = processed
				e.cond.Broadcast()
				e.mu.Unlock()
				e.emit(inst, Transition{WorkerID: workerID, RunIndex: idx, State: processed})
			}
		})
	}
	_ = g.Wait()
	if e.Reporter != nil {
		e.Reporter.Close()
	}
	return int(failures)
}

func (e *Executor) emit(inst *plan.Instance, t Transition) {
	if e.Reporter != nil {
		e.Reporter.Report(inst, t)
	}
}

// acquireNext performs the first-fit scan of §4.3: it returns the lowest
// emission-order index that is runnable and atomically marks it
// Processing, or (0, false) once no unprocessed runs remain. While runs
// remain but none are currently runnable (blocked on a dependency), it
// waits on the state condition variable, which is broadcast on every
// Processed transition, instead of busy-polling.
func (e *Executor) acquireNext(inst *plan.Instance) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for {
		anyUnprocessed := false
		for i, r := range inst.Runs {
			if e.states[i] != unprocessed {
				continue
			}
			anyUnprocessed = true
			if e.runnable(inst, i, r) {
				e.states[i] = processing
				return i, true
			}
		}
		if !anyUnprocessed {
			return 0, false
		}
		e.cond.Wait()
	}
}

func (e *Executor) runnable(inst *plan.Instance, i int, r plan.Run) bool {
	_ = i
	if r.Kind == plan.KindLearner {
		return true
	}
	if r.Depends == nil {
		return true
	}
	return e.states[*r.Depends] == processed
}
