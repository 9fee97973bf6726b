// Package script generates the per-run shell wrapper that enforces
// resource limits, captures combined output, and records an exit code.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Name is the file name of the generated runner script inside a run's
// working directory.
const Name = "runner.sh"

// LogName and ExitCodeName are the artifact file names a runner script
// produces inside the run's working directory.
const (
	LogName      = "log"
	ExitCodeName = "exit_code"
)

// Spec describes the single job a runner script executes.
type Spec struct {
	// Dir is the run's working directory; it is created if missing.
	Dir string
	// Exe is the absolute path to the job's executable.
	Exe string
	// Args is the argument vector passed to Exe, following the literal
	// "out" argument the harness always inserts first.
	Args []string
	// TimeLimitSeconds wraps the command in `timeout <n>s` when non-nil.
	TimeLimitSeconds *int
	// MemoryLimitMiB emits `ulimit -v <mib*1000>` when non-nil. The
	// multiplication by 1000 rather than 1024 is intentional: it matches
	// the historical behavior existing suites were written against.
	MemoryLimitMiB *int
}

// Build writes dir/runner.sh with executable permissions and returns its
// path. It is safe to call again for the same Dir: the script, and any
// prior log/exit_code it produced, are overwritten on next execution.
func Build(spec Spec) (string, error) {
	if err := os.MkdirAll(spec.Dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create run directory %q", spec.Dir)
	}

	var b strings.Builder
	b.WriteString("#!/bin/bash\n")
	if spec.MemoryLimitMiB != nil {
		fmt.Fprintf(&b, "ulimit -v %d\n", *spec.MemoryLimitMiB*1000)
	}

	var command strings.Builder
	if spec.TimeLimitSeconds != nil {
		fmt.Fprintf(&command, "timeout %ds ", *spec.TimeLimitSeconds)
	}
	command.WriteString(spec.Exe)
	command.WriteString(" out")
	for _, arg := range spec.Args {
		command.WriteString(" ")
		command.WriteString(arg)
	}

	fmt.Fprintf(&b, "$(eval \"%s\"&>%s)\n", command.String(), LogName)
	fmt.Fprintf(&b, "echo $? > %s\n", ExitCodeName)

	path := filepath.Join(spec.Dir, Name)
	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to write runner script %q", path)
	}
	if err := os.Chmod(path, 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to make runner script %q executable", path)
	}
	return path, nil
}
