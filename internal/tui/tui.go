// SPDX-License-Identifier: MPL-2.0

// Package tui provides the interactive script picker. It wraps
// charmbracelet/huh and charmbracelet/bubbles so the rest of the program
// deals in scripts, not terminal widgets.
package tui

import (
	"errors"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrAborted is returned when the user dismisses a picker without choosing.
// Callers treat it as a clean no-op: nothing is spawned.
var ErrAborted = errors.New("selection aborted")

// Config holds common configuration for TUI components.
type Config struct {
	// Accessible enables accessible mode for screen readers and
	// non-interactive stdin.
	Accessible bool
	// Output specifies where to write the component output.
	Output io.Writer
}

// DefaultConfig returns the default picker configuration. Accessible mode is
// enabled automatically when stdin is not a terminal or the ACCESSIBLE
// environment variable is set, and output then goes to stderr so prompts are
// not captured by command substitution.
func DefaultConfig() Config {
	accessible := !isInputTerminal() || os.Getenv("ACCESSIBLE") != ""

	var output io.Writer = os.Stdout
	if accessible {
		output = os.Stderr
	}

	return Config{
		Accessible: accessible,
		Output:     output,
	}
}

func isInputTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
