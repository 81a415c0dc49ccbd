package main

import (
	"errors"
	"fmt"
	"os"

	"file-assistant/internal/exitcodes"
	"file-assistant/internal/safety"
	"file-assistant/internal/walker"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("ERROR: "+err.Error()))
		os.Exit(exitCode(err))
	}
}

// configError marks failures to build a valid configuration
type configError struct {
	err error
}

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// exitCode maps an error to the process exit code contract
func exitCode(err error) int {
	var cfgErr *configError
	var walkCfgErr *walker.ConfigError
	var delErr *walker.DeleteError

	switch {
	case err == nil:
		return exitcodes.Success
	case errors.As(err, &cfgErr), errors.As(err, &walkCfgErr):
		return exitcodes.InvalidConfig
	case safety.IsViolation(err):
		return exitcodes.SafetyViolation
	case errors.As(err, &delErr):
		return exitcodes.DeleteFailed
	default:
		return exitcodes.RuntimeError
	}
}
