// Package plan expands a suite into an ordered, directory-backed set of
// runs with resolved dependency edges and generated runner scripts.
package plan

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"

	"github.com/planbench/harness/internal/script"
	"github.com/planbench/harness/internal/suite"
)

// RunKind distinguishes a learner run from a solver run.
type RunKind int

const (
	KindLearner RunKind = iota
	KindSolver
)

// Run is one planned instantiation of a runner against a task (and, for a
// solver, a single problem), with its own working directory and script.
type Run struct {
	Dir         string
	Exe         string
	RunnerIndex int
	TaskIndex   int
	Kind        RunKind

	// ProblemIndex is meaningful only when Kind == KindSolver: the index of
	// the problem within Tasks[TaskIndex].Solve.
	ProblemIndex int

	// Depends is meaningful only when Kind == KindSolver: the index into
	// Instance.Runs of the Learner run this solver consumes, or nil.
	Depends *int

	// Skip is true when a prior run directory already holds a complete
	// exit_code and the resume policy says not to redo the work.
	Skip bool
}

// Instance is the planning output: the ordered run list plus the flattened
// runner and task tables the Run indices point into.
type Instance struct {
	Runs    []Run
	Runners []suite.Runner
	Tasks   []suite.Task
}

// Options controls resume behavior against a prior working tree.
type Options struct {
	// ForceLearn re-executes every learner (and, transitively, every
	// solver, since their learned inputs changed).
	ForceLearn bool
	// ForceSolve re-executes every solver, independent of ForceLearn.
	ForceSolve bool
}

// Plan expands s into an Instance rooted at workDir, creating every run
// directory and runner script up front. A failure to create a directory or
// write a script is a fatal planning error; no partial Instance is returned.
func Plan(s *suite.Suite, workDir string, opts Options) (*Instance, error) {
	inst := &Instance{
		Runners: append([]suite.Runner{}, s.Runners...),
		Tasks:   append([]suite.Task{}, s.Tasks...),
	}

	learnDir := filepath.Join(workDir, "learn")
	solveDir := filepath.Join(workDir, "solve")

	for taskIdx, task := range s.Tasks {
		for runnerIdx, runner := range s.Runners {
			if runner.Kind != suite.Learn {
				continue
			}
			i := countKind(inst.Runs, KindLearner)
			dir := filepath.Join(learnDir, strconv.Itoa(i))

			args := append([]string{}, runner.Args...)
			args = append(args, task.Domain)
			args = append(args, task.Learn...)

			exe, err := script.Build(script.Spec{
				Dir:              dir,
				Exe:              runner.Path,
				Args:             args,
				TimeLimitSeconds: s.Limits.TimeLearn,
				MemoryLimitMiB:   s.Limits.MemoryLearn,
			})
			if err != nil {
				return nil, errors.Wrapf(err, "planning learner run for task %q runner %q", task.Name, runner.Name)
			}

			run := Run{
				Dir:         dir,
				Exe:         exe,
				RunnerIndex: runnerIdx,
				TaskIndex:   taskIdx,
				Kind:        KindLearner,
			}
			run.Skip = shouldSkip(run, opts)
			inst.Runs = append(inst.Runs, run)
		}
	}

	for taskIdx, task := range s.Tasks {
		for problemIdx, problem := range task.Solve {
			for runnerIdx, runner := range s.Runners {
				if runner.Kind != suite.Solve {
					continue
				}
				i := countKind(inst.Runs, KindSolver)
				dir := filepath.Join(solveDir, strconv.Itoa(i))

				var depends *int
				if runner.Depends != "" {
					idx, err := resolveDepends(inst.Runs, inst.Runners, taskIdx, runner.Depends)
					if err != nil {
						return nil, errors.Wrapf(err, "planning solver run for task %q runner %q", task.Name, runner.Name)
					}
					depends = &idx
				}

				args := append([]string{}, runner.Args...)
				if depends != nil {
					args = append(args, inst.Runs[*depends].Dir)
				}
				args = append(args, task.Domain, problem)

				exe, err := script.Build(script.Spec{
					Dir:              dir,
					Exe:              runner.Path,
					Args:             args,
					TimeLimitSeconds: s.Limits.TimeSolve,
					MemoryLimitMiB:   s.Limits.MemorySolve,
				})
				if err != nil {
					return nil, errors.Wrapf(err, "planning solver run for task %q runner %q problem %q", task.Name, runner.Name, problem)
				}

				run := Run{
					Dir:          dir,
					Exe:          exe,
					RunnerIndex:  runnerIdx,
					TaskIndex:    taskIdx,
					Kind:         KindSolver,
					ProblemIndex: problemIdx,
					Depends:      depends,
				}
				run.Skip = shouldSkip(run, opts)
				inst.Runs = append(inst.Runs, run)
			}
		}
	}

	return inst, nil
}

func countKind(runs []Run, kind RunKind) int {
	n := 0
	for _, r := range runs {
		if r.Kind == kind {
			n++
		}
	}
	return n
}

// resolveDepends finds the unique already-emitted Learner run for the given
// task whose runner name matches dependsName.
func resolveDepends(runs []Run, runners []suite.Runner, taskIndex int, dependsName string) (int, error) {
	for i, r := range runs {
		if r.Kind != KindLearner || r.TaskIndex != taskIndex {
			continue
		}
		if runners[r.RunnerIndex].Name == dependsName {
			return i, nil
		}
	}
	return 0, errors.Errorf("no learner run named %q found for this task", dependsName)
}

// shouldSkip applies the resume policy of §4.2: a run is marked complete
// without re-execution when its exit_code artifact already exists and the
// relevant force flag wasn't set. force_learn invalidates solve results too,
// since their learn dependency was redone.
func shouldSkip(r Run, opts Options) bool {
	if !hasExitCode(r.Dir) {
		return false
	}
	switch r.Kind {
	case KindLearner:
		return !opts.ForceLearn
	case KindSolver:
		return !opts.ForceLearn && !opts.ForceSolve
	default:
		return false
	}
}

// hasExitCode reports whether dir already holds a completed run's exit
// code file, the on-disk marker the resume policy keys off of.
func hasExitCode(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, script.ExitCodeName))
	return err == nil
}
