package server

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"shepherd/internal/proc"
	"shepherd/pkg/logging"
)

// Options carries the settings a launcher needs to run the API server.
type Options struct {
	// BaseDir is the working directory for the spawned process. The
	// application module is resolved relative to it.
	BaseDir string

	// Host is the bind address handed to the server.
	Host string

	// App is the ASGI application reference, e.g. "main:app".
	App string

	// LogLevel is the uvicorn log level, e.g. "info".
	LogLevel string

	// Port is the TCP port the server listens on.
	Port int

	// StartupGrace is how long Launch watches the child for an immediate
	// exit before declaring the spawn successful.
	StartupGrace time.Duration

	// StopTimeout is how long Shutdown waits for a graceful exit before
	// force killing the process group.
	StopTimeout time.Duration
}

// newCommand builds the child process. Tests override this to substitute
// harmless commands for the real server.
var newCommand = func(name string, args ...string) *exec.Cmd {
	return exec.Command(name, args...)
}

// ScriptLauncher runs the API server as a child interpreter process, the way
// a source checkout is served. It owns the child's lifetime: Launch spawns it
// and Shutdown terminates it, escalating to a kill when the process ignores
// the termination signal.
type ScriptLauncher struct {
	opts Options

	mu      sync.Mutex
	cmd     *exec.Cmd
	capture *outputCapture
	waitCh  chan error
}

// NewScriptLauncher returns a launcher that spawns the API server with the
// given options.
func NewScriptLauncher(opts Options) *ScriptLauncher {
	return &ScriptLauncher{opts: opts}
}

// Launch starts the API server subprocess using the given interpreter and
// waits out the startup grace period. A child that exits within the grace
// period is reported as a launch failure together with its captured output.
func (l *ScriptLauncher) Launch(ctx context.Context, interpreter string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cmd != nil {
		return errors.New("API server is already running")
	}

	args := []string{
		"-m", "uvicorn", l.opts.App,
		"--host", l.opts.Host,
		"--port", strconv.Itoa(l.opts.Port),
		"--log-level", l.opts.LogLevel,
	}
	logging.Info("Server", "Starting API server: %s %s", interpreter, strings.Join(args, " "))

	cmd := newCommand(interpreter, args...)
	cmd.Dir = l.opts.BaseDir
	capture := newOutputCapture(outputTailLimit)
	cmd.Stdout = capture.stdoutWriter
	cmd.Stderr = capture.stderrWriter
	proc.ConfigureGroup(cmd)

	if err := cmd.Start(); err != nil {
		capture.close()
		return fmt.Errorf("failed to start API server: %w", err)
	}

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	// Catch servers that die right away, typically a bad application
	// reference or a port that is already taken.
	select {
	case waitErr := <-waitCh:
		capture.close()
		if tail := capture.TailString(); tail != "" {
			return fmt.Errorf("API server exited during startup: %v\n%s", waitErr, tail)
		}
		return fmt.Errorf("API server exited during startup: %v", waitErr)
	case <-ctx.Done():
		_ = proc.Kill(cmd.Process.Pid)
		<-waitCh
		capture.close()
		return ctx.Err()
	case <-time.After(l.opts.StartupGrace):
	}

	l.cmd = cmd
	l.capture = capture
	l.waitCh = waitCh

	logging.Info("Server", "API server started with PID: %d", cmd.Process.Pid)
	return nil
}

// Shutdown stops the API server. It signals the process group to terminate,
// waits up to StopTimeout for a clean exit, and force kills the group when
// the deadline passes. It never fails; a launcher with no running child is a
// no-op.
func (l *ScriptLauncher) Shutdown() {
	l.mu.Lock()
	cmd := l.cmd
	capture := l.capture
	waitCh := l.waitCh
	l.cmd = nil
	l.capture = nil
	l.waitCh = nil
	l.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return
	}

	pid := cmd.Process.Pid
	logging.Info("Server", "Stopping API server (PID: %d)...", pid)

	if err := proc.Terminate(pid); err != nil {
		logging.Warn("Server", "Failed to signal API server process group: %v", err)
	}

	select {
	case <-waitCh:
		logging.Info("Server", "API server stopped")
		// Sweep any worker processes left in the group.
		_ = proc.Kill(pid)
	case <-time.After(l.opts.StopTimeout):
		logging.Warn("Server", "API server did not stop in time, force killing...")
		if err := proc.Kill(pid); err != nil {
			logging.Error("Server", err, "Failed to force kill API server")
		}
		<-waitCh
	}

	if capture != nil {
		capture.close()
	}
}

// Tail returns the most recent output captured from the child process.
func (l *ScriptLauncher) Tail() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.capture == nil {
		return nil
	}
	return l.capture.Tail()
}
