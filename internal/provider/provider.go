// Package provider controls the external provider daemon.
//
// The daemon is a long-lived background process owned by its own binary, not
// by the supervisor. The controller talks to it exclusively through that
// binary's subcommands (status, stop) and launches it detached so it
// survives supervisor restarts.
package provider

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"shepherd/internal/execx"
	"shepherd/internal/proc"
	"shepherd/pkg/logging"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	StateRunning = "running"
	StateStopped = "stopped"
	StateError   = "error"
)

// runningMarker is the substring the daemon's status output contains when the
// provider is up.
const runningMarker = "is running"

// Result is the outcome of a provider mutation such as start, stop or
// install.
type Result struct {
	Status  string `json:"status" yaml:"status"`
	Message string `json:"message" yaml:"message"`
	PID     string `json:"pid,omitempty" yaml:"pid,omitempty"`
	Output  string `json:"output,omitempty" yaml:"output,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Success reports whether the operation concluded without failure.
func (r Result) Success() bool {
	return r.Status == StatusSuccess
}

// Status is a point-in-time view of the provider daemon.
type Status struct {
	State     string    `json:"status" yaml:"status"`
	Message   string    `json:"message,omitempty" yaml:"message,omitempty"`
	Output    string    `json:"output,omitempty" yaml:"output,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Options configures the controller.
type Options struct {
	// Binary is the provider binary name, looked up on PATH.
	Binary string

	// FallbackPath is an explicit binary location tried when PATH lookup
	// fails, typically under the user's home.
	FallbackPath string

	// DaemonLog receives the detached daemon's combined output.
	DaemonLog string

	// InstallScript is the path of the installation script.
	InstallScript string

	// Settle is how long a start waits before rechecking that the daemon
	// came up.
	Settle time.Duration

	// StatusTimeout bounds the status and version probes.
	StatusTimeout time.Duration

	// StopTimeout bounds the stop subcommand.
	StopTimeout time.Duration

	// InstallTimeout bounds the installation script.
	InstallTimeout time.Duration

	Runner execx.Runner
}

// Controller drives the provider daemon through its binary.
type Controller struct {
	opts Options
}

// NewController returns a controller for the daemon described by opts.
func NewController(opts Options) *Controller {
	return &Controller{opts: opts}
}

// startDaemon launches the provider daemon detached from the supervisor with
// its output appended to logPath, and returns the daemon's PID. Tests
// override this to avoid spawning real processes.
var startDaemon = func(binary, logPath string) (int, error) {
	if dir := filepath.Dir(logPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create daemon log directory %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open daemon log %s: %w", logPath, err)
	}
	defer f.Close()

	cmd := exec.Command(binary, "run")
	cmd.Stdout = f
	cmd.Stderr = f
	proc.ConfigureDetached(cmd)

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", binary, err)
	}

	pid := cmd.Process.Pid
	// The daemon manages its own lifetime; drop the handle so the
	// supervisor never reaps it.
	_ = cmd.Process.Release()
	return pid, nil
}

// resolveBinary locates the provider binary, preferring PATH and falling back
// to the explicit location. The PATH candidate is verified with a version
// probe so a broken shim does not shadow a working fallback install.
func (c *Controller) resolveBinary(ctx context.Context) (string, bool) {
	res, err := execx.RunWithTimeout(ctx, c.opts.Runner, c.opts.StatusTimeout, c.opts.Binary, "--version")
	if err == nil && res.Success() {
		return c.opts.Binary, true
	}
	if c.opts.FallbackPath != "" {
		if _, err := os.Stat(c.opts.FallbackPath); err == nil {
			return c.opts.FallbackPath, true
		}
	}
	return "", false
}

// IsRunning reports whether the provider daemon is up. Any probe failure
// counts as not running.
func (c *Controller) IsRunning(ctx context.Context) bool {
	bin, ok := c.resolveBinary(ctx)
	if !ok {
		return false
	}
	return c.isRunningWith(ctx, bin)
}

func (c *Controller) isRunningWith(ctx context.Context, bin string) bool {
	res, err := execx.RunWithTimeout(ctx, c.opts.Runner, c.opts.StatusTimeout, bin, "status")
	if err != nil || !res.Success() {
		return false
	}
	return strings.Contains(res.Stdout, runningMarker)
}

// Start launches the provider daemon unless it is already running. After
// spawning it waits for the daemon to settle and confirms it actually came
// up; a daemon that dies right away is reported as a failure.
func (c *Controller) Start(ctx context.Context) Result {
	logging.Info("Provider", "Starting provider daemon...")

	if c.IsRunning(ctx) {
		logging.Info("Provider", "Provider daemon is already running")
		return Result{Status: StatusSuccess, Message: "Provider already running"}
	}

	bin, ok := c.resolveBinary(ctx)
	if !ok {
		logging.Warn("Provider", "Provider is not installed")
		return Result{Status: StatusError, Message: "Provider not installed"}
	}

	pid, err := startDaemon(bin, c.opts.DaemonLog)
	if err != nil {
		logging.Error("Provider", err, "Error starting provider daemon")
		return Result{Status: StatusError, Message: fmt.Sprintf("Failed to start provider daemon: %v", err)}
	}
	logging.Info("Provider", "Provider daemon started with PID: %d", pid)

	// Give the daemon a moment before trusting the status probe.
	select {
	case <-ctx.Done():
		return Result{Status: StatusError, Message: ctx.Err().Error()}
	case <-time.After(c.opts.Settle):
	}

	if c.isRunningWith(ctx, bin) {
		logging.Info("Provider", "Provider daemon started successfully")
		return Result{Status: StatusSuccess, Message: "Provider started", PID: strconv.Itoa(pid)}
	}

	logging.Error("Provider", nil, "Provider daemon failed to start")
	return Result{Status: StatusError, Message: "Failed to start provider daemon"}
}

// Stop shuts the provider daemon down through its stop subcommand. A daemon
// that is not installed or not running is treated as already stopped; Stop
// only fails when a stop was attempted and did not work.
func (c *Controller) Stop(ctx context.Context) Result {
	logging.Info("Provider", "Stopping provider daemon...")

	bin, ok := c.resolveBinary(ctx)
	if !ok {
		logging.Warn("Provider", "Provider is not installed")
		return Result{Status: StatusSuccess, Message: "Provider not installed"}
	}

	if !c.isRunningWith(ctx, bin) {
		logging.Info("Provider", "Provider daemon is not running")
		return Result{Status: StatusSuccess, Message: "Provider not running"}
	}

	res, err := execx.RunWithTimeout(ctx, c.opts.Runner, c.opts.StopTimeout, bin, "stop")
	if err != nil {
		logging.Error("Provider", err, "Error stopping provider daemon")
		return Result{Status: StatusError, Message: fmt.Sprintf("Error stopping provider: %v", err)}
	}
	if !res.Success() {
		logging.Error("Provider", nil, "Provider stop exited with code %d: %s", res.ExitCode, res.Stderr)
		return Result{
			Status:  StatusError,
			Message: fmt.Sprintf("Provider stop exited with code %d", res.ExitCode),
			Error:   res.Stderr,
		}
	}

	logging.Info("Provider", "Provider daemon stopped")
	return Result{Status: StatusSuccess, Message: "Provider stopped", Output: res.Stdout}
}

// Status samples the daemon state. It never fails; probe problems are
// reported in the returned value.
func (c *Controller) Status(ctx context.Context) Status {
	now := time.Now()

	bin, ok := c.resolveBinary(ctx)
	if !ok {
		return Status{State: StateStopped, Message: "Provider is not running", Timestamp: now}
	}

	res, err := execx.RunWithTimeout(ctx, c.opts.Runner, c.opts.StatusTimeout, bin, "status")
	if err != nil {
		return Status{State: StateError, Message: err.Error(), Timestamp: now}
	}
	if !res.Success() || !strings.Contains(res.Stdout, runningMarker) {
		return Status{State: StateStopped, Message: "Provider is not running", Timestamp: now}
	}

	return Status{State: StateRunning, Output: res.Stdout, Timestamp: now}
}

// Installed reports whether the provider binary is available on PATH.
func (c *Controller) Installed() (bool, string) {
	path, err := c.opts.Runner.LookPath(c.opts.Binary)
	if err != nil {
		return false, ""
	}
	return true, path
}

// Install runs the installation script unless the provider is already
// present. The script runs under bash with a hard timeout.
func (c *Controller) Install(ctx context.Context) Result {
	logging.Info("Provider", "Checking provider installation...")

	if ok, path := c.Installed(); ok {
		logging.Info("Provider", "Provider is already installed at %s", path)
		return Result{Status: StatusSuccess, Message: "Provider already installed"}
	}

	script := c.opts.InstallScript
	if _, err := os.Stat(script); err != nil {
		return Result{Status: StatusError, Message: fmt.Sprintf("Installation script not found: %s", script)}
	}

	logging.Info("Provider", "Installing provider...")
	res, err := execx.RunWithTimeout(ctx, c.opts.Runner, c.opts.InstallTimeout, "bash", script)
	if errors.Is(err, context.DeadlineExceeded) {
		logging.Error("Provider", err, "Provider installation timed out")
		return Result{Status: StatusError, Message: "Installation timed out"}
	}
	if err != nil {
		logging.Error("Provider", err, "Error during provider installation")
		return Result{Status: StatusError, Message: err.Error()}
	}
	if !res.Success() {
		logging.Error("Provider", nil, "Provider installation failed: %s", res.Stderr)
		return Result{Status: StatusError, Message: "Provider installation failed", Error: res.Stderr}
	}

	logging.Info("Provider", "Provider installation completed successfully")
	return Result{Status: StatusSuccess, Message: "Provider installed successfully", Output: res.Stdout}
}
