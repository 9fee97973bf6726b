// Command planbench runs a declarative suite of learner/solver jobs and
// aggregates their results.
package main

import (
	"os"

	"github.com/planbench/harness/internal/cmd"
	"github.com/planbench/harness/internal/config"
)

var version = "dev"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		os.Exit(1)
	}
	os.Exit(cmd.Execute(version))
}
