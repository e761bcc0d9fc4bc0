// SPDX-License-Identifier: MPL-2.0

package sink

import (
	"bytes"
	"fmt"
	"io"

	"github.com/charmbracelet/x/ansi"

	"npmrun-cli/pkg/types"
)

// maxPending bounds the bytes held back while waiting for an escape
// sequence to terminate. Stray ESC bytes in binary output would otherwise
// buffer forever.
const maxPending = 4096

// PlainSink writes chunks with ANSI escape sequences stripped. It is the
// fallback when no terminal is available, e.g. when output is piped or
// redirected to a file.
type PlainSink struct {
	out       io.Writer
	pending   []byte
	completed bool
}

// NewPlainSink creates a sink that strips formatting and writes plain text
// to out.
func NewPlainSink(out io.Writer) *PlainSink {
	return &PlainSink{out: out}
}

// Write implements Sink. Chunks are stripped of escape sequences before
// being forwarded. An escape sequence split across chunk boundaries is held
// back until its terminator arrives so it never leaks through half-stripped.
func (s *PlainSink) Write(p []byte) (int, error) {
	buf := append(s.pending, p...)
	s.pending = nil

	if idx := bytes.LastIndexByte(buf, 0x1b); idx >= 0 && len(buf)-idx <= maxPending {
		if escapeIncomplete(buf[idx:]) {
			s.pending = append([]byte(nil), buf[idx:]...)
			buf = buf[:idx]
		}
	}

	if len(buf) > 0 {
		if _, err := s.out.Write([]byte(ansi.Strip(string(buf)))); err != nil {
			return 0, err
		}
	}

	return len(p), nil
}

// Complete implements Sink with an unstyled status line.
func (s *PlainSink) Complete(code types.ExitCode) error {
	if s.completed {
		return nil
	}
	s.completed = true

	if err := s.flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(s.out, "exit status %s\n", code)
	return err
}

// flush strips and writes any held-back partial sequence.
func (s *PlainSink) flush() error {
	if len(s.pending) == 0 {
		return nil
	}
	pending := s.pending
	s.pending = nil
	_, err := s.out.Write([]byte(ansi.Strip(string(pending))))
	return err
}

// escapeIncomplete reports whether seq, which starts with ESC, is missing
// its terminator.
func escapeIncomplete(seq []byte) bool {
	if len(seq) < 2 {
		return true
	}

	switch seq[1] {
	case '[': // CSI: terminated by a final byte in 0x40-0x7E
		for _, b := range seq[2:] {
			if b >= 0x40 && b <= 0x7e {
				return false
			}
		}
		return true
	case ']': // OSC: terminated by BEL or ESC backslash
		if bytes.IndexByte(seq[2:], 0x07) >= 0 {
			return false
		}
		return !bytes.Contains(seq[2:], []byte{0x1b, '\\'})
	default: // two-byte escape
		return false
	}
}
