// Package suite holds the declarative description of a benchmark suite:
// runners, tasks, attribute patterns, and resource limits.
package suite

import (
	"regexp"

	mapset "github.com/deckarep/golang-set"
)

// Kind distinguishes a runner that produces a learned artifact from one
// that consumes it to solve a problem instance.
type Kind int

const (
	Learn Kind = iota
	Solve
)

func (k Kind) String() string {
	if k == Learn {
		return "learn"
	}
	return "solve"
}

// Pattern is a single named extraction rule: a regular expression with
// exactly one capturing group.
type Pattern struct {
	Name   string
	Regexp *regexp.Regexp
}

// AttributeSet is a named collection of patterns applied to a run's log.
type AttributeSet struct {
	Name     string
	Patterns []Pattern
}

// Runner is a named external executable, either a learner or a solver.
type Runner struct {
	Name string
	Kind Kind
	Path string
	Args []string

	// Depends names the Learn runner this Solve runner consumes, or "" if none.
	Depends string

	// Attribute names the attribute set used to parse this runner's log, or
	// "" if the runner has none.
	Attribute string

	// AttributeSet is the index into Suite.Attributes resolved from
	// Attribute at load time, or -1 if Attribute is "" or unresolved.
	AttributeSet int
}

// Task is a named problem family: one domain file plus ordered learn and
// solve problem sets.
type Task struct {
	Name   string
	Domain string
	Learn  []string
	Solve  []string
}

// Limits holds the optional per-kind time and memory ceilings.
type Limits struct {
	TimeLearn   *int
	MemoryLearn *int
	TimeSolve   *int
	MemorySolve *int
}

// Suite is the fully resolved, in-memory benchmark description.
type Suite struct {
	Limits     Limits
	Attributes []AttributeSet
	Runners    []Runner
	Tasks      []Task
}

// Learners returns the runners of kind Learn, in suite order.
func (s *Suite) Learners() []Runner {
	var out []Runner
	for _, r := range s.Runners {
		if r.Kind == Learn {
			out = append(out, r)
		}
	}
	return out
}

// Solvers returns the runners of kind Solve, in suite order.
func (s *Suite) Solvers() []Runner {
	var out []Runner
	for _, r := range s.Runners {
		if r.Kind == Solve {
			out = append(out, r)
		}
	}
	return out
}

// AttributeNames returns the union of pattern names across the attribute
// sets attached to runners of the given kind, in first-seen order.
func (s *Suite) AttributeNames(kind Kind) []string {
	seen := mapset.NewThreadUnsafeSet()
	var names []string
	for _, r := range s.Runners {
		if r.Kind != kind || r.AttributeSet < 0 {
			continue
		}
		for _, p := range s.Attributes[r.AttributeSet].Patterns {
			if !seen.Contains(p.Name) {
				seen.Add(p.Name)
				names = append(names, p.Name)
			}
		}
	}
	return names
}
