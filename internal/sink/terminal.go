// SPDX-License-Identifier: MPL-2.0

package sink

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"npmrun-cli/pkg/types"
)

var (
	successMarkerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	failureMarkerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
)

// TerminalSink writes chunks straight to a real terminal. Escape sequences
// pass through untouched, so colored and cursor-addressed output renders the
// way it would in a shell.
type TerminalSink struct {
	out       *os.File
	completed bool
}

// NewTerminalSink creates a sink for the detected terminal capability.
func NewTerminalSink(cap *TerminalCapability) *TerminalSink {
	return &TerminalSink{out: cap.Out}
}

// Write implements Sink.
func (s *TerminalSink) Write(p []byte) (int, error) {
	return s.out.Write(p)
}

// Complete implements Sink with a styled status line.
func (s *TerminalSink) Complete(code types.ExitCode) error {
	if s.completed {
		return nil
	}
	s.completed = true

	marker := successMarkerStyle.Render(fmt.Sprintf("✓ exit status %s", code))
	if !code.IsSuccess() {
		marker = failureMarkerStyle.Render(fmt.Sprintf("✗ exit status %s", code))
	}

	_, err := fmt.Fprintln(s.out, marker)
	return err
}

// TTY implements TTYSink.
func (s *TerminalSink) TTY() *os.File { return s.out }
