// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"npmrun-cli/internal/manifest"
	"npmrun-cli/internal/testutil"
	"npmrun-cli/pkg/types"
)

func TestGetVersionString(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, BuildDate
	defer func() { Version, Commit, BuildDate = origVersion, origCommit, origDate }()

	Version = "dev"
	if got := getVersionString(); got != "dev (built from source)" {
		t.Errorf("getVersionString() = %q, want dev marker", got)
	}

	Version, Commit, BuildDate = "1.2.3", "abc1234", "2026-01-01"
	got := getVersionString()
	for _, want := range []string{"1.2.3", "abc1234", "2026-01-01"} {
		if !strings.Contains(got, want) {
			t.Errorf("getVersionString() = %q, should contain %q", got, want)
		}
	}
}

func TestRootCommandFlags(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"verbose", "config", "plain", "pm", "dir", "env-file"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("root command should define persistent flag %q", name)
		}
	}
}

func TestRootCommandSubcommands(t *testing.T) {
	t.Parallel()

	want := map[string]bool{"run": false, "list": false, "watch": false, "config": false}
	for _, sub := range rootCmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("root command should register subcommand %q", name)
		}
	}
}

func TestExitError(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := &ExitError{Code: types.ExitCode(2), Err: inner}

	if err.Error() != "boom" {
		t.Errorf("Error() = %q, want the inner message", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("ExitError should unwrap to its inner error")
	}

	bare := &ExitError{Code: types.ExitCode(2)}
	if !strings.Contains(bare.Error(), "2") {
		t.Errorf("Error() = %q, should mention the exit code", bare.Error())
	}
}

func TestPrintManifestDeclarationOrder(t *testing.T) {
	m := &manifest.Manifest{
		Path:        "/proj/package.json",
		PackageName: "proj",
		Scripts: []manifest.Script{
			{Name: "zeta", Command: "echo z"},
			{Name: "alpha", Command: "echo a"},
			{Name: "build", Command: "tsc"},
		},
	}

	out := captureCommandOutput(t, func(c *cobra.Command) { printManifest(c, m, "") })

	zeta := strings.Index(out, "zeta")
	alpha := strings.Index(out, "alpha")
	build := strings.Index(out, "build")
	if zeta < 0 || alpha < 0 || build < 0 {
		t.Fatalf("output should contain every script name, got:\n%s", out)
	}
	if !(zeta < alpha && alpha < build) {
		t.Errorf("scripts should print in declaration order, got:\n%s", out)
	}
	if !strings.Contains(out, "proj") {
		t.Errorf("output should contain the package name, got:\n%s", out)
	}
}

func TestPrintManifestFilter(t *testing.T) {
	origFilter := listFilter
	defer func() { listFilter = origFilter }()
	listFilter = "bld"

	m := &manifest.Manifest{
		Path: "/proj/package.json",
		Scripts: []manifest.Script{
			{Name: "build", Command: "tsc"},
			{Name: "test", Command: "jest"},
		},
	}

	out := captureCommandOutput(t, func(c *cobra.Command) { printManifest(c, m, "") })

	if !strings.Contains(out, "build") {
		t.Errorf("filter %q should keep 'build', got:\n%s", listFilter, out)
	}
	if strings.Contains(out, "jest") {
		t.Errorf("filter %q should drop 'test', got:\n%s", listFilter, out)
	}
}

func TestPrintManifestNoScripts(t *testing.T) {
	m := &manifest.Manifest{Path: "/proj/package.json"}

	out := captureCommandOutput(t, func(c *cobra.Command) { printManifest(c, m, "") })
	if !strings.Contains(out, "no scripts") {
		t.Errorf("output should note the missing scripts, got:\n%s", out)
	}
}

func TestProjectScriptEntriesSingleManifest(t *testing.T) {
	t.Parallel()

	m := &manifest.Manifest{
		Path:        "/proj/package.json",
		PackageName: "proj",
		Scripts: []manifest.Script{
			{Name: "build", Command: "webpack"},
			{Name: "test", Command: "jest"},
		},
	}

	entries, refs := projectScriptEntries("/proj", []*manifest.Manifest{m})
	if len(entries) != 2 || len(refs) != 2 {
		t.Fatalf("got %d entries and %d refs, want 2 each", len(entries), len(refs))
	}
	if entries[0].Title != "build" || entries[1].Title != "test" {
		t.Errorf("single-manifest titles = %q, %q; want bare names in declaration order",
			entries[0].Title, entries[1].Title)
	}
}

func TestProjectScriptEntriesQualifiesMultipleManifests(t *testing.T) {
	t.Parallel()

	root := &manifest.Manifest{
		Path:        filepath.Join("/proj", "package.json"),
		PackageName: "proj",
		Scripts:     []manifest.Script{{Name: "build", Command: "webpack"}},
	}
	nested := &manifest.Manifest{
		Path:    filepath.Join("/proj", "packages", "lib", "package.json"),
		Scripts: []manifest.Script{{Name: "test", Command: "jest"}},
	}

	entries, refs := projectScriptEntries("/proj", []*manifest.Manifest{root, nested})
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Title != "proj: build" {
		t.Errorf("named package title = %q, want %q", entries[0].Title, "proj: build")
	}
	want := filepath.Join("packages", "lib") + ": test"
	if entries[1].Title != want {
		t.Errorf("unnamed package title = %q, want %q", entries[1].Title, want)
	}
	if refs[1].m != nested || refs[1].name != "test" {
		t.Errorf("refs[1] = {%v %q}, should point at the nested manifest's script", refs[1].m, refs[1].name)
	}
}

func TestProjectScriptsDiscoversNestedManifests(t *testing.T) {
	root := t.TempDir()
	testutil.WriteManifest(t, root, `{"name": "proj", "scripts": {"build": "webpack"}}`)
	testutil.WriteManifest(t, filepath.Join(root, "packages", "app"), `{"scripts": {"dev": "vite"}}`)
	testutil.WriteManifest(t, filepath.Join(root, "packages", "scriptless"), `{"name": "empty"}`)

	nearest, err := manifest.Find(root)
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}

	app := newApp()
	manifests := app.ProjectScripts(nearest)
	if len(manifests) != 2 {
		t.Fatalf("ProjectScripts() returned %d manifests, want 2", len(manifests))
	}
	if manifests[0].PackageName != "proj" {
		t.Errorf("first manifest = %q, want the project root's", manifests[0].PackageName)
	}
	if got := manifests[1].Scripts[0].Name; got != "dev" {
		t.Errorf("nested manifest script = %q, want %q", got, "dev")
	}
}

func TestAppPackageManagerOverridePrecedence(t *testing.T) {
	origOverride := pmOverride
	defer func() { pmOverride = origOverride }()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, manifest.YarnLockFile), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{Path: filepath.Join(dir, manifest.FileName)}

	app := newApp()

	pmOverride = ""
	pm, err := app.PackageManager(m)
	if err != nil {
		t.Fatalf("PackageManager() error = %v", err)
	}
	if pm != manifest.Yarn {
		t.Errorf("PackageManager() = %q, want yarn from lock file", pm)
	}

	pmOverride = "pnpm"
	pm, err = app.PackageManager(m)
	if err != nil {
		t.Fatalf("PackageManager() error = %v", err)
	}
	if pm != manifest.Pnpm {
		t.Errorf("PackageManager() = %q, want the explicit override", pm)
	}

	pmOverride = "cargo"
	if _, err := app.PackageManager(m); err == nil {
		t.Error("PackageManager() should reject an unknown package manager")
	}
}

func TestFileExists(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(file, []byte("ui: {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !fileExists(file) {
		t.Error("fileExists() should report an existing file")
	}
	if fileExists(dir) {
		t.Error("fileExists() should reject a directory")
	}
	if fileExists(filepath.Join(dir, "missing.yaml")) {
		t.Error("fileExists() should reject a missing path")
	}
}

// captureCommandOutput runs fn against a throwaway command whose output is
// redirected into a buffer.
func captureCommandOutput(t *testing.T, fn func(*cobra.Command)) string {
	t.Helper()

	var buf bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&buf)
	fn(c)
	return buf.String()
}
