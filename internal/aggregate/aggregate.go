// Package aggregate walks a finished Instance's run directories and
// produces learn.csv, solve.csv, and the merged per-run CSV tree.
package aggregate

import (
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/planbench/harness/internal/fsutil"
	"github.com/planbench/harness/internal/pattern"
	"github.com/planbench/harness/internal/plan"
	"github.com/planbench/harness/internal/suite"
)

// Run writes learn.csv, solve.csv, and the merged learn/ and solve/ CSV
// trees under outDir. Output errors are collected and returned together so
// a failure writing one file doesn't prevent attempts at the others.
func Run(s *suite.Suite, inst *plan.Instance, outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return errors.Wrapf(err, "creating output directory %q", outDir)
	}

	var result *multierror.Error
	if err := writeLearnCSV(s, inst, filepath.Join(outDir, "learn.csv")); err != nil {
		result = multierror.Append(result, err)
	}
	if err := writeSolveCSV(s, inst, filepath.Join(outDir, "solve.csv")); err != nil {
		result = multierror.Append(result, err)
	}
	if err := mergeCSVTree(inst, plan.KindLearner, filepath.Join(outDir, "learn")); err != nil {
		result = multierror.Append(result, err)
	}
	if err := mergeCSVTree(inst, plan.KindSolver, filepath.Join(outDir, "solve")); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func writeLearnCSV(s *suite.Suite, inst *plan.Instance, path string) error {
	names := s.AttributeNames(suite.Learn)
	header := append([]string{"domain", "learner", "exit_code"}, names...)
	w := newCSVWriter(header)

	for _, r := range inst.Runs {
		if r.Kind != plan.KindLearner {
			continue
		}
		task := inst.Tasks[r.TaskIndex]
		runner := inst.Runners[r.RunnerIndex]
		row := []string{task.Domain, runner.Name, readExitCode(r.Dir)}
		row = append(row, extractRow(s, runner, r.Dir, names)...)
		w.addRow(row)
	}
	return w.writeFile(path)
}

func writeSolveCSV(s *suite.Suite, inst *plan.Instance, path string) error {
	names := s.AttributeNames(suite.Solve)
	header := append([]string{"domain", "problem", "name", "exit_code"}, names...)
	w := newCSVWriter(header)

	for _, r := range inst.Runs {
		if r.Kind != plan.KindSolver {
			continue
		}
		task := inst.Tasks[r.TaskIndex]
		runner := inst.Runners[r.RunnerIndex]
		problem := problemStem(task.Solve[r.ProblemIndex])
		row := []string{task.Domain, problem, runner.Name, readExitCode(r.Dir)}
		row = append(row, extractRow(s, runner, r.Dir, names)...)
		w.addRow(row)
	}
	return w.writeFile(path)
}

// extractRow reads the run's log once, only if the runner has an attribute
// set, and extracts the requested pattern names from it.
func extractRow(s *suite.Suite, runner suite.Runner, dir string, names []string) []string {
	var set *suite.AttributeSet
	if runner.AttributeSet >= 0 {
		set = &s.Attributes[runner.AttributeSet]
	}
	var content string
	if set != nil {
		c, err := readLog(dir)
		if err == nil {
			content = c
		}
	}
	values := pattern.Extract(set, content, names)
	row := make([]string, len(names))
	for i, n := range names {
		row[i] = values[n]
	}
	return row
}

// problemStem returns a solve problem path's file name without extension,
// e.g. "problems/p01.pddl" -> "p01".
func problemStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// mergeCSVTree computes the union of relative CSV paths produced anywhere
// under any run of kind, then for each such path concatenates it across
// every run that has it: the first line (header) from the first run that
// contributes it, all remaining lines from every contributing run, in
// emission order.
func mergeCSVTree(inst *plan.Instance, kind plan.RunKind, destRoot string) error {
	var runDirs []string
	for _, r := range inst.Runs {
		if r.Kind == kind {
			runDirs = append(runDirs, r.Dir)
		}
	}
	if len(runDirs) == 0 {
		return nil
	}

	paths := mapset.NewThreadUnsafeSet()
	var order []string
	for _, dir := range runDirs {
		found, err := fsutil.FindSuffix(dir, ".csv")
		if err != nil {
			return errors.Wrapf(err, "discovering csv files under %q", dir)
		}
		for _, p := range found {
			if !paths.Contains(p) {
				paths.Add(p)
				order = append(order, p)
			}
		}
	}

	var result *multierror.Error
	for _, rel := range order {
		if err := mergeOnePath(runDirs, rel, filepath.Join(destRoot, rel)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func mergeOnePath(runDirs []string, rel string, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return errors.Wrapf(err, "creating parent of %q", destPath)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return errors.Wrapf(err, "creating %q", destPath)
	}
	defer f.Close()

	wroteHeader := false
	for _, dir := range runDirs {
		src := filepath.Join(dir, rel)
		b, err := os.ReadFile(src)
		if err != nil {
			continue
		}
		lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
		if len(lines) == 0 {
			continue
		}
		if !wroteHeader {
			if _, err := f.WriteString(lines[0] + "\n"); err != nil {
				return errors.Wrapf(err, "writing %q", destPath)
			}
			wroteHeader = true
			lines = lines[1:]
		} else {
			lines = lines[1:]
		}
		for _, line := range lines {
			if _, err := f.WriteString(line + "\n"); err != nil {
				return errors.Wrapf(err, "writing %q", destPath)
			}
		}
	}
	return nil
}
