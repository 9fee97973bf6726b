package localexec

import (
	"fmt"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mitchellh/cli"

	"github.com/planbench/harness/internal/plan"
)

// RunState tracks aggregate progress of one harness invocation the way the
// teacher's runsummary.RunState tracks a `turbo run`: totals by outcome,
// printed as a short summary once execution finishes.
type RunState struct {
	mu        sync.Mutex
	total     int
	skipped   int
	executed  int
	startedAt time.Time
}

// NewRunState seeds totals from inst's Skip flags, known before any run
// executes.
func NewRunState(inst *plan.Instance) *RunState {
	skipped := 0
	for _, r := range inst.Runs {
		if r.Skip {
			skipped++
		}
	}
	return &RunState{
		total:     len(inst.Runs),
		skipped:   skipped,
		startedAt: time.Now(),
	}
}

// Report implements Reporter, counting each run that finishes executing.
func (rs *RunState) Report(_ *plan.Instance, t Transition) {
	if t.State != processed {
		return
	}
	rs.mu.Lock()
	rs.executed++
	rs.mu.Unlock()
}

// Close implements Reporter; it does nothing here, the summary is printed
// explicitly via Summarize once the spawn-failure count is known.
func (rs *RunState) Close() {}

// Summarize prints the run totals to ui: how many runs existed, how many
// were skipped via resume, how many executed, how many of those failed to
// spawn, and total wall-clock time.
func (rs *RunState) Summarize(ui cli.Ui, spawnFailures int) {
	rs.mu.Lock()
	total, skipped, executed := rs.total, rs.skipped, rs.executed
	rs.mu.Unlock()

	ui.Output("")
	ui.Output(fmt.Sprintf("%s  %s total, %s skipped, %s executed",
		color.New(color.Bold).Sprint("Runs:"),
		humanize.Comma(int64(total)), humanize.Comma(int64(skipped)), humanize.Comma(int64(executed))))
	if spawnFailures > 0 {
		ui.Warn(fmt.Sprintf("%s run(s) failed to spawn", humanize.Comma(int64(spawnFailures))))
	}
	ui.Output(fmt.Sprintf("%s  %s", color.New(color.Bold).Sprint("Time:"), time.Since(rs.startedAt).Truncate(time.Millisecond)))
	ui.Output("")
}

// MultiReporter fans a single Transition stream out to several Reporters,
// e.g. a SpinnerReporter for live display and a RunState for the final
// summary.
type MultiReporter struct {
	Reporters []Reporter
}

func (m MultiReporter) Report(inst *plan.Instance, t Transition) {
	for _, r := range m.Reporters {
		r.Report(inst, t)
	}
}

func (m MultiReporter) Close() {
	for _, r := range m.Reporters {
		r.Close()
	}
}
