package cli

import "fmt"

// Exit codes of bean-scc.
const (
	// ExitFailed reports a ledger that fails to load, convert or validate.
	ExitFailed = 1
	// ExitUsage reports invalid parameters such as a malformed date.
	ExitUsage = 2
)

// CommandError ends a command with an exit code. The command has already
// printed its diagnostics, so main only exits.
type CommandError struct {
	exitCode int
}

// NewCommandError returns a CommandError exiting with exitCode.
func NewCommandError(exitCode int) *CommandError {
	return &CommandError{exitCode: exitCode}
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("exit status %d", e.exitCode)
}

// ExitCode returns the process exit code.
func (e *CommandError) ExitCode() int {
	return e.exitCode
}
