// Package graph materializes the depends edges between solver and learner
// runs as an acyclic graph, for optional visualization and debugging.
package graph

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pyr-sh/dag"

	"github.com/planbench/harness/internal/plan"
)

// Label returns the vertex name used for run i, stable across calls for the
// same Instance.
func Label(inst *plan.Instance, i int) string {
	r := inst.Runs[i]
	task := inst.Tasks[r.TaskIndex].Name
	runner := inst.Runners[r.RunnerIndex].Name
	if r.Kind == plan.KindSolver {
		return fmt.Sprintf("%s/%s/solve/%s", task, runner, filepath.Base(inst.Tasks[r.TaskIndex].Solve[r.ProblemIndex]))
	}
	return fmt.Sprintf("%s/%s/learn", task, runner)
}

// Build returns the dependency graph of inst: one vertex per run, one edge
// from every solver to the learner it depends on.
func Build(inst *plan.Instance) *dag.AcyclicGraph {
	g := &dag.AcyclicGraph{}
	for i := range inst.Runs {
		g.Add(Label(inst, i))
	}
	for i, r := range inst.Runs {
		if r.Kind == plan.KindSolver && r.Depends != nil {
			g.Connect(dag.BasicEdge(Label(inst, i), Label(inst, *r.Depends)))
		}
	}
	return g
}

// WriteDot renders g in Graphviz Dot notation to outputPath. When Graphviz's
// `dot` binary is available and outputPath's extension names an image
// format, the Dot source is piped through it. For an empty, .dot or .gv
// extension the raw Dot source is written to outputPath; for an image
// extension without `dot` on PATH it is written to outputPath + ".dot".
func WriteDot(g *dag.AcyclicGraph, outputPath string) error {
	source := string(g.Dot(&dag.DotOpts{Verbose: true, DrawCycles: true}))
	ext := strings.TrimPrefix(filepath.Ext(outputPath), ".")
	if ext == "" || ext == "dot" || ext == "gv" {
		return os.WriteFile(outputPath, []byte(source), 0o644)
	}
	if _, err := exec.LookPath("dot"); err != nil {
		return os.WriteFile(outputPath+".dot", []byte(source), 0o644)
	}
	cmd := exec.Command("dot", "-T"+ext, "-o", outputPath)
	cmd.Stdin = strings.NewReader(source)
	return cmd.Run()
}
