package script

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
)

func intPtr(n int) *int { return &n }

func TestBuildPlainScript(t *testing.T) {
	dir := t.TempDir()
	path, err := Build(Spec{
		Dir:  dir,
		Exe:  "/usr/bin/solver",
		Args: []string{"domain.pddl", "problem.pddl"},
	})
	assert.NilError(t, err)
	assert.Equal(t, path, filepath.Join(dir, Name))

	content, err := os.ReadFile(path)
	assert.NilError(t, err)
	want := "#!/bin/bash\n" +
		"$(eval \"/usr/bin/solver out domain.pddl problem.pddl\"&>log)\n" +
		"echo $? > exit_code\n"
	assert.Equal(t, string(content), want)

	info, err := os.Stat(path)
	assert.NilError(t, err)
	assert.Equal(t, info.Mode().Perm(), os.FileMode(0o755))
}

func TestBuildWithLimits(t *testing.T) {
	dir := t.TempDir()
	path, err := Build(Spec{
		Dir:              dir,
		Exe:              "/usr/bin/solver",
		Args:             []string{"d", "p"},
		TimeLimitSeconds: intPtr(5),
		MemoryLimitMiB:   intPtr(1024),
	})
	assert.NilError(t, err)

	content, err := os.ReadFile(path)
	assert.NilError(t, err)
	want := "#!/bin/bash\n" +
		"ulimit -v 1024000\n" +
		"$(eval \"timeout 5s /usr/bin/solver out d p\"&>log)\n" +
		"echo $? > exit_code\n"
	assert.Equal(t, string(content), want)
}

func TestBuildCreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "run", "0")
	_, err := Build(Spec{Dir: dir, Exe: "/bin/true"})
	assert.NilError(t, err)
	_, err = os.Stat(dir)
	assert.NilError(t, err)
}
