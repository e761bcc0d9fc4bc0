// SPDX-License-Identifier: MPL-2.0

// Package sink routes a child process's combined output to its display
// destination. A sink is chosen once per invocation and never swapped
// mid-stream: a terminal-backed sink when a real TTY is present (ANSI
// passthrough), a plain writer that strips escape sequences otherwise.
package sink

import (
	"io"
	"os"

	"golang.org/x/term"

	"npmrun-cli/pkg/types"
)

type (
	// Sink receives the streamed output of exactly one script invocation.
	// Write accepts raw output chunks in arrival order; Complete marks the
	// end of the stream with the child's exit code. A non-zero code is not
	// an error; it is reported the same way as success and left to the
	// user to interpret.
	Sink interface {
		io.Writer

		// Complete reports the child's exit status as the stream's
		// completion marker. No Write may follow Complete.
		Complete(code types.ExitCode) error
	}

	// TTYSink is implemented by sinks backed by a real terminal. The
	// launcher attaches the child to a PTY when the active sink implements
	// it, so the child sees a terminal and formatting passes through.
	TTYSink interface {
		Sink

		// TTY returns the terminal file output is written to.
		TTY() *os.File
	}

	// TerminalCapability is the typed handle returned by Detect when the
	// process is attached to a real terminal.
	TerminalCapability struct {
		// Out is the terminal-backed output file.
		Out *os.File
		// Width and Height are the terminal dimensions at detection time.
		Width, Height int
	}

	// Options selects the sink for one invocation.
	Options struct {
		// ForcePlain disables terminal detection (the --plain flag).
		ForcePlain bool
		// Out overrides the output writer for the plain sink. nil means
		// os.Stdout.
		Out io.Writer
	}
)

// Detect queries whether a real terminal is available for output. It returns
// a typed capability handle rather than leaving callers to probe attributes,
// and false when stdout is a pipe, file, or otherwise not a TTY.
func Detect() (*TerminalCapability, bool) {
	out := os.Stdout
	fd := int(out.Fd())
	if !term.IsTerminal(fd) {
		return nil, false
	}

	width, height, err := term.GetSize(fd)
	if err != nil {
		width, height = 80, 24
	}

	return &TerminalCapability{Out: out, Width: width, Height: height}, true
}

// Select chooses the sink for one invocation: the terminal sink when the
// capability is present and not suppressed, the plain sink otherwise. Each
// invocation gets its own sink instance; sinks are never shared.
func Select(opts Options) Sink {
	if !opts.ForcePlain {
		if cap, ok := Detect(); ok {
			return NewTerminalSink(cap)
		}
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	return NewPlainSink(out)
}
