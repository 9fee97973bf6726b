package plan

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/planbench/harness/internal/script"
	"github.com/planbench/harness/internal/suite"
)

func testSuite() *suite.Suite {
	return &suite.Suite{
		Runners: []suite.Runner{
			{Name: "L", Kind: suite.Learn, Path: "/bin/learner", Args: []string{"--l"}},
			{Name: "S", Kind: suite.Solve, Path: "/bin/solver", Args: []string{"--s"}, Depends: "L"},
		},
		Tasks: []suite.Task{
			{Name: "t1", Domain: "/d/domain.pddl", Learn: []string{"/d/l1.pddl"}, Solve: []string{"/d/p1.pddl"}},
		},
	}
}

func TestPlanEmitsLearnersBeforeSolvers(t *testing.T) {
	s := testSuite()
	workDir := t.TempDir()

	inst, err := Plan(s, workDir, Options{})
	assert.NilError(t, err)
	assert.Equal(t, len(inst.Runs), 2)
	assert.Equal(t, inst.Runs[0].Kind, KindLearner)
	assert.Equal(t, inst.Runs[1].Kind, KindSolver)
	assert.Assert(t, inst.Runs[1].Depends != nil)
	assert.Equal(t, *inst.Runs[1].Depends, 0)
	assert.Equal(t, inst.Runs[0].Dir, filepath.Join(workDir, "learn", "0"))
	assert.Equal(t, inst.Runs[1].Dir, filepath.Join(workDir, "solve", "0"))
}

func TestPlanSkipsCompletedRunsOnResume(t *testing.T) {
	s := testSuite()
	workDir := t.TempDir()

	inst, err := Plan(s, workDir, Options{})
	assert.NilError(t, err)
	assert.Assert(t, !inst.Runs[0].Skip)

	assert.NilError(t, os.WriteFile(filepath.Join(inst.Runs[0].Dir, script.ExitCodeName), []byte("0\n"), 0o644))

	inst2, err := Plan(s, workDir, Options{})
	assert.NilError(t, err)
	assert.Assert(t, inst2.Runs[0].Skip)
	assert.Assert(t, !inst2.Runs[1].Skip)
}

func TestPlanForceLearnReexecutesSolvers(t *testing.T) {
	s := testSuite()
	workDir := t.TempDir()

	inst, err := Plan(s, workDir, Options{})
	assert.NilError(t, err)
	assert.NilError(t, os.WriteFile(filepath.Join(inst.Runs[0].Dir, script.ExitCodeName), []byte("0\n"), 0o644))
	assert.NilError(t, os.WriteFile(filepath.Join(inst.Runs[1].Dir, script.ExitCodeName), []byte("0\n"), 0o644))

	inst2, err := Plan(s, workDir, Options{ForceLearn: true})
	assert.NilError(t, err)
	assert.Assert(t, !inst2.Runs[0].Skip)
	assert.Assert(t, !inst2.Runs[1].Skip)
}
