// Package shared provides constants and helpers used across the CLI commands.
// This package has no dependencies on the cli package to avoid circular imports.
package shared

import (
	"errors"
	"fmt"

	"github.com/wchoi189/agentqms/internal/compliance"
	"github.com/wchoi189/agentqms/internal/frontmatter"
)

// Command group IDs for organizing help output
const (
	GroupCompliance = "compliance"
	GroupInspection = "inspection"
	GroupGeneral    = "general"
)

// Exit codes for CLI commands
const (
	ExitSuccess          = 0
	ExitValidationFailed = 1
	ExitInvalidArguments = 3
	ExitNotFound         = 6
	ExitParseFailure     = 7
	ExitInternal         = 8
)

// exitError is a custom error type that carries an exit code.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// NewExitError creates a new exit error with the given code.
func NewExitError(code int) error {
	return &exitError{code: code}
}

// IsExitError reports whether err only carries an exit code and has nothing
// to print.
func IsExitError(err error) bool {
	var e *exitError
	return errors.As(err, &e)
}

// ExitCode returns the exit code for an error returned by a command.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var e *exitError
	if errors.As(err, &e) {
		return e.code
	}
	switch {
	case errors.Is(err, compliance.ErrInvalidArgument):
		return ExitInvalidArguments
	case errors.Is(err, compliance.ErrNotFound):
		return ExitNotFound
	case frontmatter.IsParseError(err):
		return ExitParseFailure
	}
	return ExitInternal
}
