// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"npmrun-cli/internal/manifest"
	"npmrun-cli/internal/watch"
)

var (
	// watchPatterns narrow which files trigger a re-run
	watchPatterns []string
	// watchIgnore adds globs to the built-in ignore set
	watchIgnore []string
)

// watchCmd re-runs a script whenever project files change. Each re-run
// gets its own output sink; a still-running instance is stopped first.
var watchCmd = &cobra.Command{
	Use:   "watch <script> [-- args...]",
	Short: "Re-run a script when project files change",
	Long: `Watch the manifest's directory and re-run the named script after
changes settle. The previous run is stopped before the next one starts,
so long-lived scripts like dev servers restart cleanly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatchCmd,
}

func init() {
	watchCmd.Flags().StringArrayVar(&watchPatterns, "pattern", nil, "glob selecting files that trigger a re-run (repeatable, default all)")
	watchCmd.Flags().StringArrayVar(&watchIgnore, "ignore", nil, "glob to ignore in addition to the defaults (repeatable)")
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	app := newApp()

	m, err := app.FindManifest()
	if err != nil {
		return err
	}

	name := args[0]
	if _, ok := m.Lookup(name); !ok {
		return fmt.Errorf("script %q is not defined in %s (available: %s)",
			name, m.Path, strings.Join(m.Names(), ", "))
	}

	r := &scriptRerunner{app: app, manifest: m, script: name, args: args[1:]}

	w, err := watch.New(watch.Config{
		BaseDir:  m.Dir(),
		Patterns: watchPatterns,
		Ignore:   watchIgnore,
		Debounce: time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
		OnChange: func(ctx context.Context, changed []string) error {
			logger.Info("change detected", "files", len(changed), "first", changed[0])
			r.restart(ctx)
			return nil
		},
		Stderr: os.Stderr,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, SubtitleStyle.Render("Watching ")+w.BaseDir()+SubtitleStyle.Render(" for changes, press Ctrl+C to stop"))

	ctx := cmd.Context()
	r.restart(ctx)

	err = w.Run(ctx)
	r.stop()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// scriptRerunner serializes runs of one script. restart stops the current
// run, waits for it to release its sink, then launches a fresh invocation.
type scriptRerunner struct {
	app      *App
	manifest *manifest.Manifest
	script   string
	args     []string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (r *scriptRerunner) restart(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cancel != nil {
		r.cancel()
		<-r.done
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel, r.done = cancel, done

	go func() {
		defer close(done)
		code, err := r.app.RunScript(runCtx, r.manifest, r.script, r.args)
		switch {
		case errors.Is(runCtx.Err(), context.Canceled):
			// stopped for a restart or shutdown, nothing to report
		case err != nil:
			r.app.Logger.Error("script failed to start", "script", r.script, "err", err)
		default:
			r.app.Logger.Info("script finished", "script", r.script, "code", code)
		}
	}()
}

func (r *scriptRerunner) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		<-r.done
		r.cancel, r.done = nil, nil
	}
}
