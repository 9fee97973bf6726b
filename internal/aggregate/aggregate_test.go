package aggregate

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/planbench/harness/internal/plan"
	"github.com/planbench/harness/internal/suite"
)

func writeRun(t *testing.T, dir string, exitCode, log string) {
	t.Helper()
	assert.NilError(t, os.MkdirAll(dir, 0o755))
	if exitCode != "" {
		assert.NilError(t, os.WriteFile(filepath.Join(dir, "exit_code"), []byte(exitCode), 0o644))
	}
	if log != "" {
		assert.NilError(t, os.WriteFile(filepath.Join(dir, "log"), []byte(log), 0o644))
	}
}

func TestRunWritesLearnAndSolveCSV(t *testing.T) {
	workDir := t.TempDir()
	outDir := t.TempDir()

	s := &suite.Suite{
		Attributes: []suite.AttributeSet{
			{Name: "default", Patterns: []suite.Pattern{
				{Name: "states", Regexp: regexp.MustCompile(`States: (\d+)`)},
			}},
		},
		Runners: []suite.Runner{
			{Name: "L", Kind: suite.Learn, AttributeSet: 0},
			{Name: "S", Kind: suite.Solve, AttributeSet: -1},
		},
		Tasks: []suite.Task{
			{Name: "t1", Domain: "D", Solve: []string{"/problems/p1.pddl"}},
		},
	}

	learnDir := filepath.Join(workDir, "learn", "0")
	solveDir := filepath.Join(workDir, "solve", "0")
	writeRun(t, learnDir, "0\n", "States: 42\n")
	writeRun(t, solveDir, "1\n", "")

	depend := 0
	inst := &plan.Instance{
		Runners: s.Runners,
		Tasks:   s.Tasks,
		Runs: []plan.Run{
			{Dir: learnDir, RunnerIndex: 0, TaskIndex: 0, Kind: plan.KindLearner},
			{Dir: solveDir, RunnerIndex: 1, TaskIndex: 0, Kind: plan.KindSolver, ProblemIndex: 0, Depends: &depend},
		},
	}

	assert.NilError(t, Run(s, inst, outDir))

	learnCSV, err := os.ReadFile(filepath.Join(outDir, "learn.csv"))
	assert.NilError(t, err)
	assert.Equal(t, string(learnCSV), "domain,learner,exit_code,states\nD,L,0,42\n")

	solveCSV, err := os.ReadFile(filepath.Join(outDir, "solve.csv"))
	assert.NilError(t, err)
	assert.Equal(t, string(solveCSV), "domain,problem,name,exit_code\nD,p1,S,1\n")
}

func TestRunSentinelExitCodeOnMissing(t *testing.T) {
	workDir := t.TempDir()
	outDir := t.TempDir()

	s := &suite.Suite{
		Runners: []suite.Runner{{Name: "L", Kind: suite.Learn, AttributeSet: -1}},
		Tasks:   []suite.Task{{Name: "t1", Domain: "D"}},
	}
	learnDir := filepath.Join(workDir, "learn", "0")
	writeRun(t, learnDir, "", "")

	inst := &plan.Instance{
		Runners: s.Runners,
		Tasks:   s.Tasks,
		Runs:    []plan.Run{{Dir: learnDir, RunnerIndex: 0, TaskIndex: 0, Kind: plan.KindLearner}},
	}
	assert.NilError(t, Run(s, inst, outDir))

	learnCSV, err := os.ReadFile(filepath.Join(outDir, "learn.csv"))
	assert.NilError(t, err)
	assert.Equal(t, string(learnCSV), "domain,learner,exit_code\nD,L,404\n")
}

func TestMergeCSVTreeConcatenatesRows(t *testing.T) {
	workDir := t.TempDir()
	outDir := t.TempDir()

	s := &suite.Suite{
		Runners: []suite.Runner{{Name: "L", Kind: suite.Learn, AttributeSet: -1}},
		Tasks:   []suite.Task{{Name: "t1", Domain: "D"}},
	}
	run0 := filepath.Join(workDir, "learn", "0")
	run1 := filepath.Join(workDir, "learn", "1")
	writeRun(t, run0, "0\n", "")
	writeRun(t, run1, "0\n", "")
	assert.NilError(t, os.WriteFile(filepath.Join(run0, "metrics.csv"), []byte("x,y\n1,2\n"), 0o644))
	assert.NilError(t, os.WriteFile(filepath.Join(run1, "metrics.csv"), []byte("x,y\n3,4\n"), 0o644))

	inst := &plan.Instance{
		Runners: s.Runners,
		Tasks:   s.Tasks,
		Runs: []plan.Run{
			{Dir: run0, RunnerIndex: 0, TaskIndex: 0, Kind: plan.KindLearner},
			{Dir: run1, RunnerIndex: 0, TaskIndex: 0, Kind: plan.KindLearner},
		},
	}
	assert.NilError(t, Run(s, inst, outDir))

	merged, err := os.ReadFile(filepath.Join(outDir, "learn", "metrics.csv"))
	assert.NilError(t, err)
	assert.Equal(t, string(merged), "x,y\n1,2\n3,4\n")
}
