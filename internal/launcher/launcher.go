// SPDX-License-Identifier: MPL-2.0

// Package launcher spawns package-manager script processes and streams their
// combined output to a sink. The command line is always exactly
// "<pm> run <script-name>" plus any user arguments; the working directory is
// the manifest's directory.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/charmbracelet/log"
	"github.com/creack/pty"
	"github.com/google/uuid"

	"npmrun-cli/internal/manifest"
	"npmrun-cli/internal/sink"
	"npmrun-cli/pkg/types"
)

// ErrScriptNotListed is returned when an invocation names a script the
// manifest does not declare. No process is ever spawned for such a name.
var ErrScriptNotListed = errors.New("script is not declared in the manifest")

type (
	// Invocation is the ephemeral value tying one chosen script to its
	// manifest, package manager, and environment. It lives from selection
	// until the spawned process terminates and output has been flushed.
	Invocation struct {
		// Manifest is the manifest the script was selected from.
		Manifest *manifest.Manifest
		// Script is the chosen entry. It must be one of Manifest.Scripts.
		Script manifest.Script
		// PackageManager is the tool used to run the script.
		PackageManager manifest.PackageManager
		// Args are extra arguments appended after the script name.
		Args []string
		// EnvFiles are dotenv files loaded into the child environment.
		EnvFiles []string
		// ExtraEnv overrides individual environment variables last.
		ExtraEnv map[string]string
		// ID uniquely identifies this invocation in logs.
		ID string
	}

	// SpawnError is returned when the package-manager executable cannot be
	// located or started. It is an infrastructure failure, unlike a
	// non-zero script exit which is normal output.
	SpawnError struct {
		Tool string
		Err  error
	}

	// Launcher runs invocations. The zero value is usable; Logger enables
	// verbose diagnostics.
	Launcher struct {
		Logger *log.Logger
	}
)

// Error implements the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("cannot start %s: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying error.
func (e *SpawnError) Unwrap() error { return e.Err }

// NewInvocation builds an invocation for a script the manifest declares.
// Selecting a name the manifest does not list is a programming error in the
// caller and is rejected before anything is spawned.
func NewInvocation(m *manifest.Manifest, scriptName string, pm manifest.PackageManager, args []string) (*Invocation, error) {
	script, ok := m.Lookup(scriptName)
	if !ok {
		return nil, fmt.Errorf("%q: %w", scriptName, ErrScriptNotListed)
	}

	return &Invocation{
		Manifest:       m,
		Script:         script,
		PackageManager: pm,
		Args:           args,
		ID:             uuid.NewString(),
	}, nil
}

// CommandLine returns the argv that will be spawned, excluding the resolved
// executable path: "run <script-name> [args...]".
func (inv *Invocation) CommandLine() []string {
	return append([]string{"run", inv.Script.Name}, inv.Args...)
}

// Run spawns the invocation's process and streams its combined stdout and
// stderr, in arrival order, to out. When out is terminal-backed the child is
// attached to a PTY so it sees a real terminal. The exit code is delivered
// to the sink as the completion marker and returned; a non-zero code is not
// an error. Cancelling ctx kills the child best-effort.
func (l *Launcher) Run(ctx context.Context, inv *Invocation, out sink.Sink) (types.ExitCode, error) {
	tool := inv.PackageManager.String()
	path, err := exec.LookPath(tool)
	if err != nil {
		return 1, &SpawnError{Tool: tool, Err: err}
	}

	cmd := exec.CommandContext(ctx, path, inv.CommandLine()...)
	cmd.Dir = inv.Manifest.Dir()

	env, err := buildEnv(inv)
	if err != nil {
		return 1, err
	}
	cmd.Env = env

	if l.Logger != nil {
		l.Logger.Debug("spawning script",
			"id", inv.ID,
			"tool", path,
			"script", inv.Script.Name,
			"dir", cmd.Dir)
	}

	var waitErr error
	if tty, ok := out.(sink.TTYSink); ok {
		waitErr = l.runWithPTY(cmd, tty, out)
	} else {
		waitErr = l.runPiped(cmd, out)
	}

	var spawnErr *SpawnError
	if errors.As(waitErr, &spawnErr) {
		return 1, spawnErr
	}

	code := exitCodeFromWait(ctx, waitErr)
	if l.Logger != nil {
		l.Logger.Debug("script finished", "id", inv.ID, "exit", code)
	}

	if err := out.Complete(code); err != nil {
		return code, fmt.Errorf("write completion marker: %w", err)
	}

	return code, nil
}

// runPiped wires the child's stdout and stderr to the same writer. os/exec
// serializes writes to an identical writer, so interleaving matches arrival
// order.
func (l *Launcher) runPiped(cmd *exec.Cmd, out sink.Sink) error {
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return &SpawnError{Tool: cmd.Path, Err: err}
	}

	return cmd.Wait()
}

// runWithPTY starts the child on a pseudo-terminal sized to the sink's
// terminal and pumps PTY output to the sink until the child closes its side.
func (l *Launcher) runWithPTY(cmd *exec.Cmd, tty sink.TTYSink, out sink.Sink) error {
	size := ptySizeFor(tty)

	ptmx, err := pty.StartWithSize(cmd, size)
	if err != nil {
		return &SpawnError{Tool: cmd.Path, Err: err}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		buf := make([]byte, 4096)
		for {
			n, readErr := ptmx.Read(buf)
			if n > 0 {
				if _, writeErr := out.Write(buf[:n]); writeErr != nil {
					break
				}
			}
			if readErr != nil {
				// The PTY read fails with EIO once the child exits; that is
				// the normal end of stream.
				break
			}
		}
	}()

	waitErr := cmd.Wait()
	<-done
	if closeErr := ptmx.Close(); closeErr != nil && l.Logger != nil {
		l.Logger.Debug("close pty", "err", closeErr)
	}

	return waitErr
}

// ptySizeFor reads the sink terminal's current dimensions, falling back to
// a conventional 80x24.
func ptySizeFor(tty sink.TTYSink) *pty.Winsize {
	if size, err := pty.GetsizeFull(tty.TTY()); err == nil {
		return size
	}
	return &pty.Winsize{Cols: 80, Rows: 24}
}

// exitCodeFromWait maps cmd.Wait's error to the child's exit code. A signal
// death without a code (context cancellation, Ctrl+C) is reported as the
// conventional interrupted code.
func exitCodeFromWait(ctx context.Context, waitErr error) types.ExitCode {
	if waitErr == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		code := types.ExitCode(exitErr.ExitCode())
		if code < 0 {
			return types.ExitCodeInterrupted
		}
		if err := code.Validate(); err != nil {
			return 1
		}
		return code
	}

	if ctx.Err() != nil {
		return types.ExitCodeInterrupted
	}

	return 1
}
