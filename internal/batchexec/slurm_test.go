package batchexec

import (
	"os"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
)

func intPtr(n int) *int { return &n }

func TestWriteSubmissionScriptDefaultMemory(t *testing.T) {
	root := t.TempDir()
	sd := side{kind: 0, root: root, name: "learn"}

	path, err := writeSubmissionScript(sd)
	assert.NilError(t, err)
	defer os.Remove(path)

	b, err := os.ReadFile(path)
	assert.NilError(t, err)
	content := string(b)
	assert.Assert(t, strings.Contains(content, "#SBATCH --mem=16G"))
	assert.Assert(t, strings.Contains(content, "DIR="+root+"/${SLURM_ARRAY_TASK_ID}"))
	assert.Assert(t, strings.Contains(content, "./runner.sh"))
}

func TestWriteSubmissionScriptMemoryFromLimit(t *testing.T) {
	root := t.TempDir()
	sd := side{kind: 0, root: root, name: "solve", memLimit: intPtr(8000)}

	path, err := writeSubmissionScript(sd)
	assert.NilError(t, err)
	defer os.Remove(path)

	b, err := os.ReadFile(path)
	assert.NilError(t, err)
	assert.Assert(t, strings.Contains(string(b), "#SBATCH --mem=9G"))
}
