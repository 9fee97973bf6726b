package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mitchellh/cli"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/planbench/harness/internal/aggregate"
	"github.com/planbench/harness/internal/batchexec"
	"github.com/planbench/harness/internal/config"
	"github.com/planbench/harness/internal/graph"
	"github.com/planbench/harness/internal/localexec"
	"github.com/planbench/harness/internal/logger"
	"github.com/planbench/harness/internal/plan"
	"github.com/planbench/harness/internal/suite"
)

// Execute builds and runs the root command, returning the process exit code.
func Execute(version string) int {
	cfg := config.Default()
	ui := &cli.ColoredUi{
		Ui:          &cli.BasicUi{Writer: os.Stdout, ErrorWriter: os.Stderr, Reader: os.Stdin},
		OutputColor: cli.UiColorNone,
		ErrorColor:  cli.UiColorRed,
		WarnColor:   cli.UiColorYellow,
	}

	root := &cobra.Command{
		Use:     "planbench <suite>",
		Short:   "Run a benchmark suite of learner/solver jobs and aggregate their results",
		Version: version,
		Args:    cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			cfg.SuitePath = args[0]
			return runSuite(cfg, ui)
		},
	}
	root.SilenceUsage = true

	flags := root.Flags()
	flags.StringVar(&cfg.WorkDirBase, "work-dir", cfg.WorkDirBase, "base directory under which a fresh working tree is created")
	flags.StringVar(&cfg.OutDir, "out", cfg.OutDir, "directory results are written to")
	flags.BoolVar(&cfg.KeepWorkingDir, "keep-working-dir", false, "don't remove the working tree after aggregation")
	flags.IntVar(&cfg.Threads, "threads", cfg.Threads, "local worker count; 0 means host parallelism")
	execKind := string(cfg.ExecutionKind)
	flags.StringVar(&execKind, "execution-kind", execKind, "local or slurm")
	flags.StringVar(&cfg.PriorRun, "prior-run", "", "reuse an existing working tree instead of creating one")
	flags.BoolVar(&cfg.ForceLearn, "force-learn", false, "re-execute every learner (and, transitively, every solver)")
	flags.BoolVar(&cfg.ForceSolve, "force-solve", false, "re-execute every solver")
	flags.BoolVar(&cfg.RelativeToWork, "paths-relative-to-work-dir", false, "resolve suite paths against the current directory instead of the suite file's")
	flags.StringVar(&cfg.DotGraph, "dot-graph", "", "also write the dependency graph to this path (.dot, or an image extension if graphviz's dot is on PATH)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "trace, debug, info, warn, or error")
	flags.BoolVar(&cfg.NoColor, "no-color", false, "disable colored output")

	root.PreRunE = func(c *cobra.Command, args []string) error {
		cfg.ExecutionKind = config.ExecutionKind(execKind)
		if cfg.ExecutionKind != config.ExecutionLocal && cfg.ExecutionKind != config.ExecutionSlurm {
			return errors.Errorf("invalid --execution-kind %q, want local or slurm", execKind)
		}
		return nil
	}

	if err := root.Execute(); err != nil {
		ui.Error(err.Error())
		return 1
	}
	return 0
}

func runSuite(cfg *config.Config, ui cli.Ui) error {
	log := logger.New(cfg.LogLevel, cfg.NoColor)

	s, err := suite.Load(cfg.SuitePath, log, suite.LoadOptions{RelativeToWorkDir: cfg.RelativeToWork})
	if err != nil {
		return errors.Wrap(err, "loading suite")
	}

	workDir, cleanup, err := resolveWorkDir(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	inst, err := plan.Plan(s, workDir, plan.Options{ForceLearn: cfg.ForceLearn, ForceSolve: cfg.ForceSolve})
	if err != nil {
		return errors.Wrap(err, "planning")
	}
	log.Info("planned", "runs", len(inst.Runs))

	if cfg.DotGraph != "" {
		g := graph.Build(inst)
		if err := graph.WriteDot(g, cfg.DotGraph); err != nil {
			log.Warn("failed to write dependency graph", "error", err)
		}
	}

	switch cfg.ExecutionKind {
	case config.ExecutionLocal:
		reporter := localexec.MultiReporter{Reporters: []localexec.Reporter{localexec.NewSpinnerReporter(ui)}}
		runState := localexec.NewRunState(inst)
		reporter.Reporters = append(reporter.Reporters, runState)
		exec := &localexec.Executor{Width: cfg.Threads, Logger: log, Reporter: reporter}
		spawnFailures := exec.Run(inst)
		runState.Summarize(ui, spawnFailures)
	case config.ExecutionSlurm:
		if err := batchexec.Submit(inst, workDir, s.Limits.MemoryLearn, s.Limits.MemorySolve, log); err != nil {
			return errors.Wrap(err, "batch execution")
		}
	}

	if err := aggregate.Run(s, inst, cfg.OutDir); err != nil {
		return errors.Wrap(err, "aggregating results")
	}
	ui.Output(fmt.Sprintf("results written to %s", cfg.OutDir))
	return nil
}

// resolveWorkDir picks the working tree: --prior-run reuses an existing one
// verbatim, otherwise a fresh uuid-named directory is created under
// --work-dir. The returned cleanup removes a freshly created tree unless
// --keep-working-dir was set; a reused prior-run tree is never removed.
func resolveWorkDir(cfg *config.Config) (string, func(), error) {
	noop := func() {}
	if cfg.PriorRun != "" {
		return cfg.PriorRun, noop, nil
	}

	dir := filepath.Join(cfg.WorkDirBase, uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", noop, errors.Wrapf(err, "creating working directory %q", dir)
	}
	if cfg.KeepWorkingDir {
		return dir, noop, nil
	}
	return dir, func() { os.RemoveAll(dir) }, nil
}
