// SPDX-License-Identifier: MPL-2.0

package launcher

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"npmrun-cli/internal/manifest"
	"npmrun-cli/internal/testutil"
	"npmrun-cli/pkg/types"
)

// testSink records everything a run delivers.
type testSink struct {
	buf       bytes.Buffer
	completed bool
	code      types.ExitCode
}

func (s *testSink) Write(p []byte) (int, error) { return s.buf.Write(p) }

func (s *testSink) Complete(code types.ExitCode) error {
	s.completed = true
	s.code = code
	return nil
}

// fakePackageManager installs a shell-script "npm" on PATH that echoes its
// argv, writes a line to stderr, and exits with the code in FAKE_NPM_EXIT.
func fakePackageManager(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake package manager script requires a POSIX shell")
	}

	binDir := t.TempDir()
	script := "#!/bin/sh\n" +
		"echo \"argv:$@\"\n" +
		"echo \"stderr-line\" >&2\n" +
		"exit ${FAKE_NPM_EXIT:-0}\n"
	testutil.MustWriteExecutable(t, filepath.Join(binDir, "npm"), script)
	t.Setenv("PATH", binDir)
}

func testManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	dir := t.TempDir()
	path := testutil.WriteManifest(t, dir, `{"scripts": {"build": "webpack", "test": "jest"}}`)
	m, err := manifest.Load(path)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	return m
}

func TestNewInvocationRejectsUnlistedScript(t *testing.T) {
	t.Parallel()

	m := &manifest.Manifest{Scripts: []manifest.Script{{Name: "build", Command: "webpack"}}}

	if _, err := NewInvocation(m, "deploy", manifest.Npm, nil); !errors.Is(err, ErrScriptNotListed) {
		t.Errorf("NewInvocation(deploy) error = %v, want ErrScriptNotListed", err)
	}

	inv, err := NewInvocation(m, "build", manifest.Npm, nil)
	if err != nil {
		t.Fatalf("NewInvocation(build) error = %v", err)
	}
	if inv.ID == "" {
		t.Error("invocation ID should be set")
	}
}

func TestInvocationCommandLine(t *testing.T) {
	t.Parallel()

	m := &manifest.Manifest{Scripts: []manifest.Script{{Name: "test", Command: "jest"}}}
	inv, err := NewInvocation(m, "test", manifest.Npm, []string{"--watch"})
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}

	got := inv.CommandLine()
	want := []string{"run", "test", "--watch"}
	if len(got) != len(want) {
		t.Fatalf("CommandLine() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CommandLine()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRunSpawnsExactCommand(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	fakePackageManager(t)

	m := testManifest(t)
	inv, err := NewInvocation(m, "build", manifest.Npm, nil)
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}

	var l Launcher
	out := &testSink{}
	code, err := l.Run(context.Background(), inv, out)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if code != 0 {
		t.Errorf("Run() exit code = %v, want 0", code)
	}
	if !out.completed || out.code != 0 {
		t.Errorf("sink completion = (%v, %v), want (true, 0)", out.completed, out.code)
	}

	output := out.buf.String()
	if !strings.Contains(output, "argv:run build") {
		t.Errorf("spawned command line not %q: output %q", "run build", output)
	}
	if !strings.Contains(output, "stderr-line") {
		t.Errorf("stderr not streamed to sink: output %q", output)
	}
}

func TestRunReportsNonZeroExitAsCompletion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	fakePackageManager(t)
	t.Setenv("FAKE_NPM_EXIT", "3")

	m := testManifest(t)
	inv, err := NewInvocation(m, "test", manifest.Npm, nil)
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}

	var l Launcher
	out := &testSink{}
	code, err := l.Run(context.Background(), inv, out)
	if err != nil {
		t.Fatalf("Run() error = %v; non-zero exits are not errors", err)
	}
	if code != 3 {
		t.Errorf("Run() exit code = %v, want 3", code)
	}
	if out.code != 3 {
		t.Errorf("completion marker code = %v, want 3", out.code)
	}
}

func TestRunMissingToolIsSpawnError(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	t.Setenv("PATH", t.TempDir()) // nothing on PATH

	m := testManifest(t)
	inv, err := NewInvocation(m, "build", manifest.Npm, nil)
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}

	var l Launcher
	out := &testSink{}
	_, err = l.Run(context.Background(), inv, out)

	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("Run() error = %v, want *SpawnError", err)
	}
	if out.buf.Len() != 0 || out.completed {
		t.Errorf("sink must stay untouched on spawn failure, got output %q", out.buf.String())
	}
}

func TestRunRunsInManifestDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("fake package manager script requires a POSIX shell")
	}

	binDir := t.TempDir()
	script := "#!/bin/sh\npwd\n"
	testutil.MustWriteExecutable(t, filepath.Join(binDir, "npm"), script)
	t.Setenv("PATH", binDir)

	m := testManifest(t)
	inv, err := NewInvocation(m, "build", manifest.Npm, nil)
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}

	var l Launcher
	out := &testSink{}
	if _, err := l.Run(context.Background(), inv, out); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := strings.TrimSpace(out.buf.String())
	want := m.Dir()
	// Resolve symlinks (macOS /var vs /private/var temp dirs).
	if resolved, err := filepath.EvalSymlinks(want); err == nil {
		want = resolved
	}
	if gotResolved, err := filepath.EvalSymlinks(got); err == nil {
		got = gotResolved
	}
	if got != want {
		t.Errorf("script ran in %q, want manifest dir %q", got, want)
	}
}

func TestRunCancellationKillsChild(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("fake package manager script requires a POSIX shell")
	}

	binDir := t.TempDir()
	// exec replaces the shell so the kill signal reaches the sleep itself
	// and its pipe ends close promptly.
	script := "#!/bin/sh\nexec /bin/sleep 60\n"
	testutil.MustWriteExecutable(t, filepath.Join(binDir, "npm"), script)
	t.Setenv("PATH", binDir)

	m := testManifest(t)
	inv, err := NewInvocation(m, "build", manifest.Npm, nil)
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	var l Launcher
	out := &testSink{}
	start := time.Now()
	code, err := l.Run(ctx, inv, out)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("cancellation did not kill the child promptly (took %v)", elapsed)
	}
	if code != types.ExitCodeInterrupted {
		t.Errorf("Run() exit code = %v, want %v", code, types.ExitCodeInterrupted)
	}
}

func TestBuildEnvPrecedence(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("env assertions assume POSIX formatting")
	}
	t.Setenv("NPMRUN_TEST_PARENT", "parent")
	t.Setenv("NPMRUN_TEST_OVERRIDE", "parent")

	dir := t.TempDir()
	manifestPath := testutil.WriteManifest(t, dir, `{"scripts": {"build": "true"}}`)
	envFile := filepath.Join(dir, ".env")
	testutil.MustWriteFile(t, envFile, "NPMRUN_TEST_OVERRIDE=dotenv\nNPMRUN_TEST_DOTENV=yes\n")

	m, err := manifest.Load(manifestPath)
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	inv, err := NewInvocation(m, "build", manifest.Npm, nil)
	if err != nil {
		t.Fatalf("NewInvocation() error = %v", err)
	}
	inv.EnvFiles = []string{".env"}
	inv.ExtraEnv = map[string]string{"NPMRUN_TEST_OVERRIDE": "explicit"}

	env, err := buildEnv(inv)
	if err != nil {
		t.Fatalf("buildEnv() error = %v", err)
	}

	got := make(map[string]string)
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			got[k] = v
		}
	}

	if got["NPMRUN_TEST_PARENT"] != "parent" {
		t.Errorf("parent env not inherited: %q", got["NPMRUN_TEST_PARENT"])
	}
	if got["NPMRUN_TEST_DOTENV"] != "yes" {
		t.Errorf("dotenv var missing: %q", got["NPMRUN_TEST_DOTENV"])
	}
	if got["NPMRUN_TEST_OVERRIDE"] != "explicit" {
		t.Errorf("explicit override lost: %q", got["NPMRUN_TEST_OVERRIDE"])
	}
}

func TestBuildEnvMissingFileFails(t *testing.T) {
	t.Parallel()

	m := &manifest.Manifest{
		Path:    filepath.Join(t.TempDir(), manifest.FileName),
		Scripts: []manifest.Script{{Name: "build", Command: "true"}},
	}
	inv := &Invocation{Manifest: m, Script: m.Scripts[0], EnvFiles: []string{"missing.env"}}

	if _, err := buildEnv(inv); err == nil {
		t.Error("buildEnv() with a missing env file should fail")
	}
}

func TestExitCodeFromWait(t *testing.T) {
	t.Parallel()

	if got := exitCodeFromWait(context.Background(), nil); got != 0 {
		t.Errorf("exitCodeFromWait(nil) = %v, want 0", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := exitCodeFromWait(ctx, errors.New("killed")); got != types.ExitCodeInterrupted {
		t.Errorf("exitCodeFromWait(cancelled) = %v, want %v", got, types.ExitCodeInterrupted)
	}

	if got := exitCodeFromWait(context.Background(), errors.New("boom")); got != 1 {
		t.Errorf("exitCodeFromWait(other error) = %v, want 1", got)
	}
}
