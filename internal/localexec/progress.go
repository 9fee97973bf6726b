package localexec

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/cli"

	"github.com/planbench/harness/internal/graph"
	"github.com/planbench/harness/internal/plan"
)

// SpinnerReporter implements Reporter by keeping a spinner's message
// current with the names of every run presently Processing. On a
// non-interactive terminal it instead prints one line per transition, a
// streaming fallback suited to non-interactive CI logs.
type SpinnerReporter struct {
	ui  cli.Ui
	tty bool

	mu         sync.Mutex
	sp         *spinner.Spinner
	processing map[int]bool
}

// NewSpinnerReporter builds a reporter writing to ui. The spinner is used
// only when stdout is a terminal; otherwise every transition is printed.
func NewSpinnerReporter(ui cli.Ui) *SpinnerReporter {
	r := &SpinnerReporter{
		ui:         ui,
		tty:        isatty.IsTerminal(os.Stdout.Fd()),
		processing: map[int]bool{},
	}
	if r.tty {
		r.sp = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		r.sp.Start()
	}
	return r
}

// Report implements Reporter.
func (r *SpinnerReporter) Report(inst *plan.Instance, t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch t.State {
	case processing:
		r.processing[t.RunIndex] = true
		if !r.tty {
			r.ui.Output(fmt.Sprintf("%s %s", color.CyanString("•"), graph.Label(inst, t.RunIndex)))
		}
	case processed:
		delete(r.processing, t.RunIndex)
		if !r.tty {
			r.ui.Output(fmt.Sprintf("%s %s", color.GreenString("✓"), graph.Label(inst, t.RunIndex)))
		}
	}

	if r.sp != nil {
		r.sp.Suffix = " " + strings.Join(r.sortedLabels(inst), ", ")
	}
}

func (r *SpinnerReporter) sortedLabels(inst *plan.Instance) []string {
	indices := make([]int, 0, len(r.processing))
	for i := range r.processing {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	labels := make([]string, 0, len(indices))
	for _, i := range indices {
		labels = append(labels, graph.Label(inst, i))
	}
	return labels
}

// Close implements Reporter.
func (r *SpinnerReporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sp != nil {
		r.sp.Stop()
	}
}
