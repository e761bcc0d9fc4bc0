// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"npmrun-cli/internal/config"
	"npmrun-cli/internal/discovery"
	"npmrun-cli/internal/launcher"
	"npmrun-cli/internal/manifest"
	"npmrun-cli/internal/sink"
	"npmrun-cli/internal/tui"
	"npmrun-cli/pkg/types"
)

// App wires the services a command handler needs. It is the composition
// root for the CLI layer: the host lifecycle of the tool is the lifetime of
// one App, created per command execution and torn down when the command's
// context is cancelled.
type App struct {
	Config    *config.Config
	Logger    *log.Logger
	Launcher  *launcher.Launcher
	Discovery *discovery.Discovery
}

// newApp builds the production App from the loaded configuration.
func newApp() *App {
	d := discovery.New()
	d.IgnoreDirs = cfg.Discovery.Ignore
	d.Logger = logger

	return &App{
		Config:    cfg,
		Logger:    logger,
		Launcher:  &launcher.Launcher{Logger: logger},
		Discovery: d,
	}
}

// FindManifest locates and loads the nearest manifest above the start
// directory (--dir or the working directory). The NotFound and ParseError
// failure modes both surface here, terminal for the invocation.
func (a *App) FindManifest() (*manifest.Manifest, error) {
	root, err := discovery.ProjectRoot(startDir)
	if err != nil {
		return nil, err
	}

	m, err := manifest.Find(root)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return nil, fmt.Errorf("no package.json found in %s or any parent directory", root)
		}
		return nil, err
	}

	a.Logger.Debug("manifest located", "path", m.Path, "scripts", len(m.Scripts))
	return m, nil
}

// PackageManager resolves the tool for a manifest, honoring the --pm flag
// and config before lock-file detection.
func (a *App) PackageManager(m *manifest.Manifest) (manifest.PackageManager, error) {
	override := manifest.PackageManager(pmOverride)
	if override != "" && !override.IsValid() {
		return "", fmt.Errorf("unknown package manager %q (want npm, yarn or pnpm)", pmOverride)
	}
	return manifest.PackageManagerFor(m, override), nil
}

// RunScript invokes one script of the manifest and streams its output to a
// freshly selected sink. The returned code is the child's exit code; a
// non-zero code is not an error.
func (a *App) RunScript(ctx context.Context, m *manifest.Manifest, name string, args []string) (types.ExitCode, error) {
	pm, err := a.PackageManager(m)
	if err != nil {
		return 1, err
	}

	inv, err := launcher.NewInvocation(m, name, pm, args)
	if err != nil {
		if errors.Is(err, launcher.ErrScriptNotListed) {
			return 1, fmt.Errorf("script %q is not defined in %s (available: %s)",
				name, m.Path, strings.Join(m.Names(), ", "))
		}
		return 1, err
	}
	inv.EnvFiles = append(append([]string{}, a.Config.Runner.EnvFiles...), extraEnvFiles...)
	inv.ExtraEnv = a.Config.Runner.Env

	out := sink.Select(sink.Options{ForcePlain: plainOutput})
	return a.Launcher.Run(ctx, inv, out)
}

// ProjectScripts collects every manifest declaring scripts at or below the
// nearest manifest's directory. The nearest manifest's own directory is the
// project root, so it always leads the result. When the walk fails the
// nearest manifest alone is returned.
func (a *App) ProjectScripts(nearest *manifest.Manifest) []*manifest.Manifest {
	found, err := a.Discovery.DiscoverAll(nearest.Dir())
	if err != nil {
		a.Logger.Debug("project discovery failed", "err", err)
		if nearest.HasScripts() {
			return []*manifest.Manifest{nearest}
		}
		return nil
	}
	return discovery.Valid(found)
}

// scriptRef ties one picker row back to the manifest and script it names.
type scriptRef struct {
	m    *manifest.Manifest
	name string
}

// projectScriptEntries builds the picker rows for the project's manifests.
// A single manifest gets bare script names; with several, each row is
// qualified by the package name, or by the manifest path relative to root
// when the package is unnamed.
func projectScriptEntries(root string, manifests []*manifest.Manifest) ([]tui.Entry, []scriptRef) {
	var entries []tui.Entry
	var refs []scriptRef

	for _, m := range manifests {
		qualifier := ""
		if len(manifests) > 1 {
			qualifier = m.PackageName
			if qualifier == "" {
				qualifier = discovery.RelPath(root, m.Dir())
			}
			qualifier += ": "
		}
		for _, s := range m.Scripts {
			entries = append(entries, tui.Entry{Title: qualifier + s.Name, Detail: s.Command})
			refs = append(refs, scriptRef{m: m, name: s.Name})
		}
	}

	return entries, refs
}

// PickProjectScript shows one picker over the scripts of every project
// manifest and returns the chosen manifest and script name. The entries
// appear in discovery order, each manifest's scripts in declaration order.
func (a *App) PickProjectScript(root string, manifests []*manifest.Manifest) (*manifest.Manifest, string, error) {
	entries, refs := projectScriptEntries(root, manifests)

	idx, err := tui.PickEntry("Run script", entries, tui.DefaultConfig())
	if err != nil {
		return nil, "", err
	}
	return refs[idx].m, refs[idx].name, nil
}
