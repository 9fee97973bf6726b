package suite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"gotest.tools/v3/assert"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	assert.NilError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadResolvesPathsAndGlobs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "problems", "p1.pddl"), "")
	writeFile(t, filepath.Join(dir, "problems", "p2.pddl"), "")

	suitePath := filepath.Join(dir, "suite.toml")
	writeFile(t, suitePath, `
[[runners]]
name = "learner"
kind = "learn"
path = "learner.sh"

[[runners]]
name = "solver"
kind = "solve"
path = "solver.sh"
depends = "learner"

[[tasks]]
name = "blocks"
domain = "domain.pddl"
learn = ["problems/*.pddl"]
solve = ["problems/*.pddl"]
`)

	s, err := Load(suitePath, hclog.NewNullLogger(), LoadOptions{})
	assert.NilError(t, err)
	assert.Equal(t, len(s.Tasks), 1)
	assert.Equal(t, s.Tasks[0].Domain, filepath.Join(dir, "domain.pddl"))
	assert.Equal(t, len(s.Tasks[0].Learn), 2)
	assert.Equal(t, s.Tasks[0].Learn[0], filepath.Join(dir, "problems", "p1.pddl"))
	assert.Equal(t, s.Runners[0].Path, filepath.Join(dir, "learner.sh"))
}

func TestLoadRejectsUndefinedDepends(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p.pddl"), "")
	suitePath := filepath.Join(dir, "suite.toml")
	writeFile(t, suitePath, `
[[runners]]
name = "solver"
kind = "solve"
path = "solver.sh"
depends = "missing"

[[tasks]]
name = "t"
domain = "p.pddl"
solve = ["p.pddl"]
`)
	_, err := Load(suitePath, hclog.NewNullLogger(), LoadOptions{})
	assert.ErrorContains(t, err, "undefined learn runner")
}

func TestLoadWarnsOnDanglingAttribute(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p.pddl"), "")
	suitePath := filepath.Join(dir, "suite.toml")
	writeFile(t, suitePath, `
[[runners]]
name = "learner"
kind = "learn"
path = "learner.sh"
attribute = "missing-set"

[[tasks]]
name = "t"
domain = "p.pddl"
learn = ["p.pddl"]
`)
	s, err := Load(suitePath, hclog.NewNullLogger(), LoadOptions{})
	assert.NilError(t, err)
	assert.Equal(t, s.Runners[0].AttributeSet, -1)
}

func TestLoadRejectsMultiGroupPattern(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "p.pddl"), "")
	suitePath := filepath.Join(dir, "suite.toml")
	writeFile(t, suitePath, `
[[attributes]]
name = "default"
[[attributes.patterns]]
name = "bad"
pattern = "(a)(b)"

[[runners]]
name = "learner"
kind = "learn"
path = "learner.sh"
attribute = "default"

[[tasks]]
name = "t"
domain = "p.pddl"
learn = ["p.pddl"]
`)
	_, err := Load(suitePath, hclog.NewNullLogger(), LoadOptions{})
	assert.ErrorContains(t, err, "exactly one capturing group")
}
