// Package supervisor coordinates the managed processes through their
// lifecycle: environment checks, API server launch, dependency bootstrap and
// orderly shutdown.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"shepherd/internal/bootstrap"
	"shepherd/internal/environment"
	"shepherd/internal/provider"
	"shepherd/pkg/logging"
)

// Deployment is the slice of deployment behavior the supervisor drives.
type Deployment interface {
	Probe(ctx context.Context) environment.Status
	Provision(ctx context.Context) error
	Launch(ctx context.Context) error
	Shutdown()
}

// Provider controls the external provider daemon during shutdown.
type Provider interface {
	Stop(ctx context.Context) provider.Result
}

// Bootstrapper runs the post-launch bootstrap sequence.
type Bootstrapper interface {
	Run(ctx context.Context) (*bootstrap.Report, error)
}

// Options carries the supervisor's presentation settings.
type Options struct {
	// Host and Port locate the API server for the endpoint summary
	// logged after startup.
	Host string
	Port int
}

// Supervisor owns the service lifecycle. Start brings everything up in
// order; Stop tears it down and never fails.
type Supervisor struct {
	opts         Options
	deployment   Deployment
	provider     Provider
	bootstrapper Bootstrapper

	mu      sync.Mutex
	running bool
}

// New wires a supervisor from its collaborators.
func New(opts Options, deployment Deployment, prov Provider, bootstrapper Bootstrapper) *Supervisor {
	return &Supervisor{
		opts:         opts,
		deployment:   deployment,
		provider:     prov,
		bootstrapper: bootstrapper,
	}
}

// Running reports whether Start has completed and Stop has not been called.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start brings the service up: verify the environment (repairing it when
// that can help), launch the API server, then bootstrap dependencies through
// it. Only environment and launch problems fail the start; a failed
// bootstrap leaves the server running and is reported in the log.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("automation service is already running")
	}

	logging.Info("Supervisor", "Starting automation service...")

	if err := s.ensureEnvironment(ctx); err != nil {
		return err
	}

	if err := s.deployment.Launch(ctx); err != nil {
		logging.Error("Supervisor", err, "Failed to start API server")
		return fmt.Errorf("failed to start API server: %w", err)
	}
	s.running = true

	logging.Info("Supervisor", "Automation service started successfully on port %d", s.opts.Port)

	if s.bootstrapper != nil {
		if _, err := s.bootstrapper.Run(ctx); err != nil {
			logging.Warn("Supervisor", "Bootstrap did not complete: %v", err)
		}
	}

	base := fmt.Sprintf("http://%s:%d", s.opts.Host, s.opts.Port)
	logging.Info("Supervisor", "API endpoints available at:")
	logging.Info("Supervisor", "  - Status: %s/provider-status", base)
	logging.Info("Supervisor", "  - Start: %s/start-provider", base)
	logging.Info("Supervisor", "  - Stop: %s/stop-provider", base)
	logging.Info("Supervisor", "  - Logs: %s/provider-log", base)

	return nil
}

// ensureEnvironment verifies the runtime environment, provisioning it when
// it is absent or missing packages. Anything else is unrecoverable.
func (s *Supervisor) ensureEnvironment(ctx context.Context) error {
	status := s.deployment.Probe(ctx)
	if status.Ready() {
		logging.Debug("Supervisor", "Environment ready, interpreter at %s", status.PythonPath)
		return nil
	}

	switch status.State {
	case environment.StateNotFound:
		logging.Info("Supervisor", "Virtual environment not found. Setting up automatically...")
	case environment.StateIncomplete:
		logging.Info("Supervisor", "Virtual environment is missing packages: %s. Installing automatically...",
			strings.Join(status.Missing, ", "))
	default:
		logging.Warn("Supervisor", "Environment check reported %s (%s). Attempting setup...",
			status.State, status.Detail)
	}

	if err := s.deployment.Provision(ctx); err != nil {
		logging.Error("Supervisor", err, "Failed to setup virtual environment")
		return fmt.Errorf("failed to setup virtual environment: %w", err)
	}

	status = s.deployment.Probe(ctx)
	if !status.Ready() {
		err := fmt.Errorf("environment not ready after setup: %s (%s)", status.State, status.Detail)
		logging.Error("Supervisor", err, "Virtual environment setup did not produce a usable environment")
		return err
	}

	logging.Debug("Supervisor", "Environment ready, interpreter at %s", status.PythonPath)
	return nil
}

// Stop shuts the service down: the provider daemon first, then the API
// server. Both stops are tolerant, so Stop cannot fail and may be called at
// any time, including when nothing is running.
func (s *Supervisor) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logging.Info("Supervisor", "Stopping automation service...")
	s.running = false

	if s.provider != nil {
		_ = s.provider.Stop(ctx)
	}
	s.deployment.Shutdown()

	logging.Info("Supervisor", "Automation service stopped")
}
