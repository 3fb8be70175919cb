// Package deploy selects how the API server ships and runs.
//
// A supervisor binary either carries the application compiled in or sits
// next to a source checkout it serves through an interpreter. The two
// variants differ in how the environment is checked, how the server starts,
// and what shutdown has to clean up. Deployment hides that behind one
// interface so the supervisor logic stays identical in both worlds.
package deploy

import (
	"context"
	"fmt"
	"os"

	"shepherd/internal/config"
	"shepherd/internal/environment"
	"shepherd/internal/execx"
	"shepherd/internal/server"
	"shepherd/pkg/logging"
)

// Mode identifies the deployment variant.
type Mode string

const (
	// ModeBundled serves the application compiled into the supervisor.
	ModeBundled Mode = "bundled"
	// ModeScript serves the application from a source checkout.
	ModeScript Mode = "script"
)

// Deployment binds environment preparation and server launching for one way
// of shipping the application. The supervisor drives it without caring which
// variant it holds.
type Deployment interface {
	// Mode identifies the deployment variant.
	Mode() Mode

	// Probe reports the state of the runtime environment. It never fails;
	// problems are encoded in the returned status.
	Probe(ctx context.Context) environment.Status

	// Provision prepares the runtime environment for launch.
	Provision(ctx context.Context) error

	// Launch starts the API server.
	Launch(ctx context.Context) error

	// Shutdown stops the API server. It never fails.
	Shutdown()
}

// New selects the deployment variant. Registering an embedded application
// makes the deployment bundled; otherwise the application is served from the
// checkout under baseDir.
func New(cfg config.Config, baseDir string, app server.AppFunc, runner execx.Runner) Deployment {
	opts := server.Options{
		BaseDir:      baseDir,
		Host:         cfg.Server.Host,
		App:          cfg.Server.App,
		LogLevel:     cfg.Server.LogLevel,
		Port:         cfg.Port,
		StartupGrace: cfg.Server.StartupGrace(),
		StopTimeout:  cfg.Server.StopTimeout(),
	}

	if app != nil {
		logging.Info("Supervisor", "Running as bundled binary, all dependencies included")
		return &bundledDeployment{launcher: server.NewBundledLauncher(app, opts)}
	}

	logging.Info("Supervisor", "Running from source checkout in %s", baseDir)
	return &scriptDeployment{
		runtime:  environment.NewRuntime(cfg.Environment, baseDir, runner),
		launcher: server.NewScriptLauncher(opts),
	}
}

// scriptDeployment serves the application through the virtual environment
// interpreter next to the supervisor.
type scriptDeployment struct {
	runtime  *environment.Runtime
	launcher *server.ScriptLauncher
}

func (d *scriptDeployment) Mode() Mode { return ModeScript }

func (d *scriptDeployment) Probe(ctx context.Context) environment.Status {
	return d.runtime.Probe(ctx)
}

func (d *scriptDeployment) Provision(ctx context.Context) error {
	return d.runtime.Provision(ctx)
}

func (d *scriptDeployment) Launch(ctx context.Context) error {
	// Re-check right before spawning. The environment may have been touched
	// between the supervisor's probe and now.
	status := d.runtime.Probe(ctx)
	if !status.Ready() {
		return fmt.Errorf("environment not ready: %s", status.Detail)
	}
	return d.launcher.Launch(ctx, status.PythonPath)
}

func (d *scriptDeployment) Shutdown() {
	d.launcher.Shutdown()
}

// bundledDeployment serves the application compiled into the supervisor.
// There is no environment to prepare and no child process to manage.
type bundledDeployment struct {
	launcher *server.BundledLauncher
}

func (d *bundledDeployment) Mode() Mode { return ModeBundled }

func (d *bundledDeployment) Probe(context.Context) environment.Status {
	exe, err := os.Executable()
	if err != nil {
		exe = ""
	}
	return environment.Status{
		State:      environment.StateReady,
		Detail:     "running as bundled binary, all dependencies included",
		PythonPath: exe,
	}
}

func (d *bundledDeployment) Provision(context.Context) error {
	logging.Info("Environment", "Running as bundled binary, skipping virtual environment setup")
	return nil
}

func (d *bundledDeployment) Launch(ctx context.Context) error {
	return d.launcher.Launch(ctx, "")
}

func (d *bundledDeployment) Shutdown() {
	d.launcher.Shutdown()
}
