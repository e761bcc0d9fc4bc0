// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"npmrun-cli/pkg/types"
)

// ExitError carries a script's non-zero exit code out of a RunE handler.
// Execute unwraps it and exits the process with that code, so npmrun's own
// exit status mirrors the script it ran, the same as invoking the package
// manager by hand.
type ExitError struct {
	// Code is the child process's exit code.
	Code types.ExitCode
	// Err optionally carries a message to surface before exiting.
	Err error
}

// Error returns the wrapped error's message, or a plain exit status line.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the wrapped error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}
