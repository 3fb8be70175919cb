// Package environment probes and provisions the isolated Python runtime the
// script deployment launches the API server from. Probing classifies the
// runtime into a fixed set of readiness states and never fails its caller;
// provisioning creates the virtual environment and installs the dependency
// manifest, idempotently.
package environment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"shepherd/internal/config"
	"shepherd/internal/execx"
	"shepherd/pkg/logging"
)

// State classifies the runtime's readiness.
type State string

const (
	StateReady      State = "ready"
	StateNotFound   State = "not_found"
	StateCorrupted  State = "corrupted"
	StateIncomplete State = "incomplete"
	StateError      State = "error"
)

// Status is the outcome of a probe. It is immutable once produced; Missing
// preserves the probe order of the required packages.
type Status struct {
	State      State    `json:"state" yaml:"state"`
	Detail     string   `json:"detail" yaml:"detail"`
	PythonPath string   `json:"python_path,omitempty" yaml:"python_path,omitempty"`
	Missing    []string `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// Ready reports whether the runtime can launch the server.
func (s Status) Ready() bool {
	return s.State == StateReady
}

// Runtime is the virtual environment under baseDir together with the
// operations that inspect and build it.
type Runtime struct {
	dir            string
	requirements   string
	packages       []string
	basePython     string
	installTimeout time.Duration
	runner         execx.Runner
}

// NewRuntime resolves the configured environment paths against baseDir.
func NewRuntime(cfg config.EnvironmentConfig, baseDir string, runner execx.Runner) *Runtime {
	return &Runtime{
		dir:            resolve(baseDir, cfg.Dir),
		requirements:   resolve(baseDir, cfg.Requirements),
		packages:       cfg.Packages,
		basePython:     cfg.BasePython,
		installTimeout: cfg.InstallTimeout(),
		runner:         runner,
	}
}

func resolve(baseDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Dir returns the virtual environment directory.
func (r *Runtime) Dir() string {
	return r.dir
}

// PythonPath returns the interpreter inside the virtual environment.
func (r *Runtime) PythonPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(r.dir, "Scripts", "python.exe")
	}
	return filepath.Join(r.dir, "bin", "python")
}

func (r *Runtime) pipPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(r.dir, "Scripts", "pip.exe")
	}
	return filepath.Join(r.dir, "bin", "pip")
}

// Probe classifies the runtime. It always returns a Status, never an error:
// unexpected failures surface as StateError with the cause in Detail.
func (r *Runtime) Probe(ctx context.Context) Status {
	if _, err := os.Stat(r.dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Status{
				State:  StateNotFound,
				Detail: fmt.Sprintf("virtual environment not found at %s", r.dir),
			}
		}
		return Status{
			State:  StateError,
			Detail: fmt.Sprintf("error checking virtual environment: %v", err),
		}
	}

	python := r.PythonPath()
	if _, err := os.Stat(python); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Status{
				State:      StateCorrupted,
				Detail:     "python executable not found in virtual environment",
				PythonPath: python,
			}
		}
		return Status{
			State:  StateError,
			Detail: fmt.Sprintf("error checking python executable: %v", err),
		}
	}

	var missing []string
	for _, pkg := range r.packages {
		res, err := r.runner.Run(ctx, python, "-c", "import "+pkg)
		if err != nil {
			return Status{
				State:  StateError,
				Detail: fmt.Sprintf("error probing package %s: %v", pkg, err),
			}
		}
		if !res.Success() {
			missing = append(missing, pkg)
		}
	}

	if len(missing) > 0 {
		return Status{
			State:   StateIncomplete,
			Detail:  "missing packages: " + strings.Join(missing, ", "),
			Missing: missing,
		}
	}

	return Status{
		State:      StateReady,
		Detail:     "virtual environment is ready",
		PythonPath: python,
	}
}

// Provision creates the virtual environment if absent and installs the
// dependency manifest into it. Re-running against an existing environment
// skips creation and only re-installs, which the installer treats as an
// upgrade check.
func (r *Runtime) Provision(ctx context.Context) error {
	logging.Info("Environment", "Setting up virtual environment...")

	if _, err := os.Stat(r.requirements); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("requirements manifest not found at %s", r.requirements)
		}
		return fmt.Errorf("failed to check requirements manifest: %w", err)
	}

	if _, err := os.Stat(r.dir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to check virtual environment: %w", err)
		}

		base, err := r.resolveBasePython()
		if err != nil {
			return err
		}

		logging.Info("Environment", "Creating virtual environment at %s", r.dir)
		res, err := r.runner.Run(ctx, base, "-m", "venv", r.dir)
		if err != nil {
			return fmt.Errorf("failed to create virtual environment: %w", err)
		}
		if !res.Success() {
			return fmt.Errorf("failed to create virtual environment: %s", strings.TrimSpace(res.Stderr))
		}
		logging.Info("Environment", "Virtual environment created successfully")
	} else {
		logging.Debug("Environment", "Virtual environment already exists, skipping creation")
	}

	logging.Info("Environment", "Installing requirements from %s", r.requirements)
	res, err := execx.RunWithTimeout(ctx, r.runner, r.installTimeout, r.pipPath(), "install", "-r", r.requirements)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errors.New("requirements installation timed out")
		}
		return fmt.Errorf("failed to install requirements: %w", err)
	}
	if !res.Success() {
		return fmt.Errorf("failed to install requirements: %s", strings.TrimSpace(res.Stderr))
	}

	logging.Info("Environment", "Requirements installed successfully")
	return nil
}

func (r *Runtime) resolveBasePython() (string, error) {
	if r.basePython != "" {
		return r.basePython, nil
	}
	for _, candidate := range []string{"python3", "python"} {
		if path, err := r.runner.LookPath(candidate); err == nil {
			return path, nil
		}
	}
	return "", errors.New("no python interpreter found to create the virtual environment")
}
