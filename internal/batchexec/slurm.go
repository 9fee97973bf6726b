// Package batchexec submits a planned Instance to a Slurm cluster as one
// indexed array job per side (learn, solve).
package batchexec

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"

	"github.com/planbench/harness/internal/plan"
)

const defaultMemGB = 16

// side bundles together the per-kind values the submission script needs.
type side struct {
	kind     plan.RunKind
	root     string
	name     string
	memLimit *int
}

// Submit writes and submits one array job per non-empty side that still
// has at least one non-skip run, blocking until sbatch returns. The array
// covers every run of that kind (0..N-1); runner.sh is idempotent, so
// re-running an already-complete index is harmless.
func Submit(inst *plan.Instance, workDir string, memLimitLearn, memLimitSolve *int, logger hclog.Logger) error {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	sides := []side{
		{kind: plan.KindLearner, root: filepath.Join(workDir, "learn"), name: "learn", memLimit: memLimitLearn},
		{kind: plan.KindSolver, root: filepath.Join(workDir, "solve"), name: "solve", memLimit: memLimitSolve},
	}

	for _, sd := range sides {
		total := 0
		pending := false
		for _, r := range inst.Runs {
			if r.Kind != sd.kind {
				continue
			}
			total++
			if !r.Skip {
				pending = true
			}
		}
		if total == 0 || !pending {
			continue
		}
		if err := submitSide(sd, total); err != nil {
			return errors.Wrapf(err, "submitting %s array job", sd.name)
		}
	}
	return nil
}

func submitSide(sd side, n int) error {
	scriptPath, err := writeSubmissionScript(sd)
	if err != nil {
		return err
	}
	defer os.Remove(scriptPath)

	arrayArg := fmt.Sprintf("--array=0-%d", n-1)
	jobNameArg := fmt.Sprintf("--job-name=%s", sd.name)
	cmd := exec.Command("sbatch", "--wait", arrayArg, jobNameArg, scriptPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "sbatch failed: %s", string(out))
	}
	return nil
}

func writeSubmissionScript(sd side) (string, error) {
	f, err := os.CreateTemp(sd.root, "submit-*.sh")
	if err != nil {
		return "", errors.Wrapf(err, "failed to create submission script in %q", sd.root)
	}
	defer f.Close()

	memGB := defaultMemGB
	if sd.memLimit != nil {
		mib := *sd.memLimit
		memGB = (mib + 998) / 999
		if memGB < 1 {
			memGB = 1
		}
	}

	content := fmt.Sprintf(`#!/bin/bash
#SBATCH --mem=%dG
DIR=%s/${SLURM_ARRAY_TASK_ID}
cd ${DIR}
./runner.sh
`, memGB, sd.root)

	if _, err := f.WriteString(content); err != nil {
		return "", errors.Wrapf(err, "failed to write submission script %q", f.Name())
	}
	if err := os.Chmod(f.Name(), 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to make submission script %q executable", f.Name())
	}
	return f.Name(), nil
}
