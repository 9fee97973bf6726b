package suite

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set"
	"github.com/gobwas/glob"
	"github.com/hashicorp/go-hclog"
	"github.com/karrick/godirwalk"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// LoadOptions controls how a suite file's relative paths are resolved.
type LoadOptions struct {
	// RelativeToWorkDir resolves domain/problem paths against the process's
	// current working directory instead of the suite file's own directory.
	RelativeToWorkDir bool
}

type rawPattern struct {
	Name    string `toml:"name"`
	Pattern string `toml:"pattern"`
}

type rawAttributeSet struct {
	Name     string       `toml:"name"`
	Patterns []rawPattern `toml:"patterns"`
}

type rawRunner struct {
	Name      string   `toml:"name"`
	Kind      string   `toml:"kind"`
	Path      string   `toml:"path"`
	Args      []string `toml:"args"`
	Depends   string   `toml:"depends"`
	Attribute string   `toml:"attribute"`
}

type rawTask struct {
	Name   string   `toml:"name"`
	Domain string   `toml:"domain"`
	Learn  []string `toml:"learn"`
	Solve  []string `toml:"solve"`
}

type rawSuite struct {
	TimeLimitLearn   *int               `toml:"time_limit_learn"`
	MemoryLimitLearn *int               `toml:"memory_limit_learn"`
	TimeLimitSolve   *int               `toml:"time_limit_solve"`
	MemoryLimitSolve *int               `toml:"memory_limit_solve"`
	Attributes       []rawAttributeSet  `toml:"attributes"`
	Runners          []rawRunner        `toml:"runners"`
	Tasks            []rawTask          `toml:"tasks"`
}

// Load reads, parses, globs and validates a suite file at path.
func Load(path string, logger hclog.Logger, opts LoadOptions) (*Suite, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve absolute path of suite %q", path)
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read suite file %q", absPath)
	}

	var raw rawSuite
	if err := toml.Unmarshal(content, &raw); err != nil {
		return nil, errors.Wrapf(err, "failed to parse suite file %q", absPath)
	}

	baseDir := filepath.Dir(absPath)
	if opts.RelativeToWorkDir {
		if wd, err := os.Getwd(); err == nil {
			baseDir = wd
		}
	}

	s := &Suite{
		Limits: Limits{
			TimeLearn:   raw.TimeLimitLearn,
			MemoryLearn: raw.MemoryLimitLearn,
			TimeSolve:   raw.TimeLimitSolve,
			MemorySolve: raw.MemoryLimitSolve,
		},
	}

	for _, ra := range raw.Attributes {
		set := AttributeSet{Name: ra.Name}
		for _, rp := range ra.Patterns {
			re, err := regexp.Compile(rp.Pattern)
			if err != nil {
				return nil, errors.Wrapf(err, "attribute set %q: pattern %q failed to compile", ra.Name, rp.Name)
			}
			if re.NumSubexp() != 1 {
				return nil, errors.Errorf("attribute set %q: pattern %q must have exactly one capturing group, has %d", ra.Name, rp.Name, re.NumSubexp())
			}
			set.Patterns = append(set.Patterns, Pattern{Name: rp.Name, Regexp: re})
		}
		s.Attributes = append(s.Attributes, set)
	}

	for _, rr := range raw.Runners {
		var kind Kind
		switch strings.ToLower(rr.Kind) {
		case "learn":
			kind = Learn
		case "solve":
			kind = Solve
		default:
			return nil, errors.Errorf("runner %q: unknown kind %q, must be \"learn\" or \"solve\"", rr.Name, rr.Kind)
		}
		attrIdx := -1
		if rr.Attribute != "" {
			for i, a := range s.Attributes {
				if a.Name == rr.Attribute {
					attrIdx = i
					break
				}
			}
			if attrIdx < 0 {
				logger.Warn("runner names an attribute set that doesn't exist", "runner", rr.Name, "attribute", rr.Attribute)
			}
		}
		path := rr.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		s.Runners = append(s.Runners, Runner{
			Name:         rr.Name,
			Kind:         kind,
			Path:         path,
			Args:         append([]string{}, rr.Args...),
			Depends:      rr.Depends,
			Attribute:    rr.Attribute,
			AttributeSet: attrIdx,
		})
	}

	for _, rt := range raw.Tasks {
		domain := rt.Domain
		if !filepath.IsAbs(domain) {
			domain = filepath.Join(baseDir, domain)
		}
		learnFiles, err := expandGlobs(baseDir, rt.Learn)
		if err != nil {
			return nil, errors.Wrapf(err, "task %q: failed to expand learn problems", rt.Name)
		}
		solveFiles, err := expandGlobs(baseDir, rt.Solve)
		if err != nil {
			return nil, errors.Wrapf(err, "task %q: failed to expand solve problems", rt.Name)
		}
		s.Tasks = append(s.Tasks, Task{
			Name:   rt.Name,
			Domain: domain,
			Learn:  learnFiles,
			Solve:  solveFiles,
		})
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// validate enforces the Suite invariants: every depends references a
// defined Learn runner, every task has the problems its runner kinds
// require.
func (s *Suite) validate() error {
	learnerNames := mapset.NewThreadUnsafeSet()
	runnerNames := mapset.NewThreadUnsafeSet()
	for _, r := range s.Runners {
		if runnerNames.Contains(r.Name) {
			return errors.Errorf("duplicate runner name %q", r.Name)
		}
		runnerNames.Add(r.Name)
		if r.Kind == Learn {
			learnerNames.Add(r.Name)
		}
	}
	for _, r := range s.Runners {
		if r.Kind == Solve && r.Depends != "" && !learnerNames.Contains(r.Depends) {
			return errors.Errorf("runner %q depends on undefined learn runner %q", r.Name, r.Depends)
		}
	}

	hasLearners := len(s.Learners()) > 0
	hasSolvers := len(s.Solvers()) > 0
	for _, t := range s.Tasks {
		if hasLearners && len(t.Learn) == 0 {
			return errors.Errorf("task %q has no learn problems, but a learn runner is defined", t.Name)
		}
		if hasSolvers && len(t.Solve) == 0 {
			return errors.Errorf("task %q has no solve problems, but a solve runner is defined", t.Name)
		}
		if len(t.Learn) == 0 && len(t.Solve) == 0 {
			return errors.Errorf("task %q has no problems at all", t.Name)
		}
	}
	return nil
}

// expandGlobs expands each glob pattern (resolved relative to baseDir when
// not absolute) into a sorted list of matching regular files, and
// concatenates the expansions in pattern order.
func expandGlobs(baseDir string, patterns []string) ([]string, error) {
	var out []string
	for _, pattern := range patterns {
		full := pattern
		if !filepath.IsAbs(full) {
			full = filepath.Join(baseDir, pattern)
		}
		matches, err := globFiles(full)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to glob pattern %q", pattern)
		}
		out = append(out, matches...)
	}
	return out, nil
}

// globFiles walks the filesystem from the non-magic prefix of pattern and
// returns every regular file whose path matches, sorted lexicographically.
func globFiles(pattern string) ([]string, error) {
	root := globBase(pattern)
	g, err := glob.Compile(pattern, os.PathSeparator)
	if err != nil {
		return nil, err
	}
	var matches []string
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		if g.Match(root) {
			matches = append(matches, root)
		}
		return matches, nil
	}
	err = godirwalk.Walk(root, &godirwalk.Options{
		Unsorted:            true,
		FollowSymbolicLinks: true,
		Callback: func(path string, ent *godirwalk.Dirent) error {
			isDir, derr := ent.IsDirOrSymlinkToDir()
			if derr != nil {
				return nil
			}
			if isDir {
				return nil
			}
			if g.Match(path) {
				matches = append(matches, path)
			}
			return nil
		},
		ErrorCallback: func(_ string, _ error) godirwalk.ErrorAction {
			return godirwalk.SkipNode
		},
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// globBase returns the longest path prefix of pattern that contains no
// glob meta-characters, the directory to start walking from.
func globBase(pattern string) string {
	magic := regexp.MustCompile(`[*?{}\[\]]`)
	parts := strings.Split(pattern, string(os.PathSeparator))
	var safe []string
	for _, p := range parts {
		if magic.MatchString(p) {
			break
		}
		safe = append(safe, p)
	}
	if len(safe) == 0 {
		return string(os.PathSeparator)
	}
	base := strings.Join(safe, string(os.PathSeparator))
	if strings.HasPrefix(pattern, string(os.PathSeparator)) && !strings.HasPrefix(base, string(os.PathSeparator)) {
		base = string(os.PathSeparator) + base
	}
	return base
}
