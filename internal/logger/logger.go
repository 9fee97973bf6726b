// Package logger builds the hclog.Logger used throughout the harness.
package logger

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// New returns a logger writing to stderr at the given level ("trace",
// "debug", "info", "warn", "error"), with color following noColor.
func New(level string, noColor bool) hclog.Logger {
	color := hclog.AutoColor
	if noColor {
		color = hclog.ColorOff
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "planbench",
		Level:      hclog.LevelFromString(level),
		Output:     os.Stderr,
		Color:      color,
		JSONFormat: false,
	})
}
