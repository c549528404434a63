// Package logging builds the structured logger shared by the library packages.
// Console narration is done by cmd; everything below it logs through zap.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a zap logger. Verbose lowers the level to debug. Console
// output is used unless jsonOutput is set, in which case logs go to stderr
// as JSON so they do not mix with the command's JSON on stdout.
func New(verbose, jsonOutput bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	config.DisableStacktrace = true
	config.OutputPaths = []string{"stderr"}

	if jsonOutput {
		config = zap.NewProductionConfig()
		config.OutputPaths = []string{"stderr"}
	}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// Nop returns a logger that discards everything
func Nop() *zap.Logger {
	return zap.NewNop()
}
