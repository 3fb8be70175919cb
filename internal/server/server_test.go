package server

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shepherd/pkg/logging"
)

func init() {
	logging.InitForCLI(logging.LevelError, io.Discard)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test spawns sh processes, not available on windows")
	}
}

// withCommand swaps the child process constructor for the duration of a test.
func withCommand(t *testing.T, script string) {
	t.Helper()
	orig := newCommand
	newCommand = func(string, ...string) *exec.Cmd {
		return exec.Command("sh", "-c", script)
	}
	t.Cleanup(func() { newCommand = orig })
}

func testOptions() Options {
	return Options{
		BaseDir:      "",
		Host:         "127.0.0.1",
		App:          "main:app",
		LogLevel:     "info",
		Port:         8000,
		StartupGrace: 200 * time.Millisecond,
		StopTimeout:  5 * time.Second,
	}
}

func TestOutputCaptureKeepsBoundedTail(t *testing.T) {
	c := newOutputCapture(3)
	for i := 0; i < 10; i++ {
		fmt.Fprintf(c.stdoutWriter, "line-%d\n", i)
	}
	c.close()

	assert.Equal(t, []string{"line-7", "line-8", "line-9"}, c.Tail())
}

func TestOutputCaptureCollectsBothStreams(t *testing.T) {
	c := newOutputCapture(10)
	fmt.Fprintln(c.stdoutWriter, "out")
	fmt.Fprintln(c.stderrWriter, "err")
	c.close()

	tail := c.Tail()
	assert.Len(t, tail, 2)
	assert.Contains(t, tail, "out")
	assert.Contains(t, tail, "err")
}

func TestScriptLauncherFailsForMissingInterpreter(t *testing.T) {
	l := NewScriptLauncher(testOptions())

	err := l.Launch(context.Background(), "/nonexistent/interpreter")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start API server")
}

func TestScriptLauncherDetectsImmediateExit(t *testing.T) {
	skipOnWindows(t)
	withCommand(t, "echo boom >&2; exit 3")

	l := NewScriptLauncher(testOptions())
	err := l.Launch(context.Background(), "python")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited during startup")
	assert.Contains(t, err.Error(), "boom")
}

func TestScriptLauncherLaunchAndGracefulShutdown(t *testing.T) {
	skipOnWindows(t)
	withCommand(t, "sleep 30")

	opts := testOptions()
	opts.StartupGrace = 100 * time.Millisecond
	l := NewScriptLauncher(opts)

	require.NoError(t, l.Launch(context.Background(), "python"))

	start := time.Now()
	l.Shutdown()
	assert.Less(t, time.Since(start), 3*time.Second, "graceful stop should not hit the kill deadline")

	// A second shutdown has nothing to do.
	l.Shutdown()
}

func TestScriptLauncherForceKillsStubbornProcess(t *testing.T) {
	skipOnWindows(t)
	withCommand(t, `trap "" TERM; while :; do sleep 0.2; done`)

	opts := testOptions()
	opts.StartupGrace = 300 * time.Millisecond
	opts.StopTimeout = 300 * time.Millisecond
	l := NewScriptLauncher(opts)

	require.NoError(t, l.Launch(context.Background(), "python"))

	start := time.Now()
	l.Shutdown()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, opts.StopTimeout, "stop should wait out the graceful deadline first")
	assert.Less(t, elapsed, 5*time.Second)
}

func TestScriptLauncherRejectsSecondLaunch(t *testing.T) {
	skipOnWindows(t)
	withCommand(t, "sleep 30")

	opts := testOptions()
	opts.StartupGrace = 100 * time.Millisecond
	l := NewScriptLauncher(opts)

	require.NoError(t, l.Launch(context.Background(), "python"))
	defer l.Shutdown()

	err := l.Launch(context.Background(), "python")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}

func TestScriptLauncherShutdownWithoutLaunchIsNoOp(t *testing.T) {
	l := NewScriptLauncher(testOptions())
	l.Shutdown()
}

func TestBundledLauncherRunsAppInBackground(t *testing.T) {
	type serveCall struct {
		host string
		port int
	}
	called := make(chan serveCall, 1)

	opts := testOptions()
	opts.Port = 9100
	l := NewBundledLauncher(func(host string, port int) error {
		called <- serveCall{host: host, port: port}
		return nil
	}, opts)

	require.NoError(t, l.Launch(context.Background(), ""))

	select {
	case call := <-called:
		assert.Equal(t, "127.0.0.1", call.host)
		assert.Equal(t, 9100, call.port)
	case <-time.After(time.Second):
		t.Fatal("embedded app was never invoked")
	}

	l.Shutdown()
}

func TestBundledLauncherRequiresApp(t *testing.T) {
	l := NewBundledLauncher(nil, testOptions())

	err := l.Launch(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedded application")
}

func TestBundledLauncherRejectsSecondLaunch(t *testing.T) {
	l := NewBundledLauncher(func(string, int) error {
		select {}
	}, testOptions())

	require.NoError(t, l.Launch(context.Background(), ""))

	err := l.Launch(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already running")
}
