// Package config holds the harness's own invocation settings: built-in
// defaults overridden by command-line flags. A .env file, when present, is
// loaded into the process environment; Config fields are not read from it.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// ExecutionKind selects how planned runs are carried out.
type ExecutionKind string

const (
	ExecutionLocal ExecutionKind = "local"
	ExecutionSlurm ExecutionKind = "slurm"
)

// Config is the fully resolved set of options for one invocation.
type Config struct {
	SuitePath      string
	WorkDirBase    string
	OutDir         string
	KeepWorkingDir bool
	Threads        int
	ExecutionKind  ExecutionKind
	PriorRun       string
	ForceLearn     bool
	ForceSolve     bool
	RelativeToWork bool
	DotGraph       string
	LogLevel       string
	NoColor        bool
}

// Default returns a Config with every flag at its documented default.
func Default() *Config {
	return &Config{
		WorkDirBase:   "/tmp",
		OutDir:        "./results",
		Threads:       1,
		ExecutionKind: ExecutionLocal,
		LogLevel:      "info",
	}
}

// LoadDotEnv loads a .env file from the current directory into the process
// environment if present; it is not an error for the file to be absent.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
