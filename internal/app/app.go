package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"shepherd/internal/bootstrap"
	"shepherd/internal/config"
	"shepherd/internal/deploy"
	"shepherd/internal/execx"
	"shepherd/internal/provider"
	"shepherd/internal/server"
	"shepherd/internal/supervisor"
	"shepherd/pkg/logging"
)

// Config carries the command line settings into the application.
type Config struct {
	// Port overrides the configured API server port when positive.
	Port int

	// ConfigPath is an explicit configuration file. Empty means the user
	// configuration path.
	ConfigPath string

	// Debug forces debug-level logging regardless of configuration.
	Debug bool

	// App is the embedded API application. Normally left nil so the
	// build-time registration decides the deployment mode.
	App server.AppFunc
}

// embeddedApp is installed by builds that compile the API application into
// the supervisor binary.
var embeddedApp server.AppFunc

// RegisterEmbeddedApp installs the compiled-in API application. A registered
// application switches the supervisor to bundled mode.
func RegisterEmbeddedApp(fn server.AppFunc) {
	embeddedApp = fn
}

// Embedded returns the registered embedded application, nil outside bundled
// builds.
func Embedded() server.AppFunc {
	return embeddedApp
}

// Application bootstraps the supervisor and runs it until shutdown.
//
// Initialization happens in two phases: NewApplication loads configuration
// and wires the components, Run drives the supervisor lifecycle and blocks
// until the context ends.
type Application struct {
	cfg      config.Config
	baseDir  string
	sup      *supervisor.Supervisor
	closeLog func()
}

// NewApplication loads configuration and wires all components. Logging goes
// to the console first and switches to the configured log file as soon as
// its location is known.
func NewApplication(appCfg *Config) (*Application, error) {
	level := logging.LevelInfo
	if appCfg.Debug {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stdout)

	cfg, err := config.Load(appCfg.ConfigPath)
	if err != nil {
		logging.Error("App", err, "Failed to load configuration")
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if appCfg.Port > 0 {
		cfg.Port = appCfg.Port
	}
	if !appCfg.Debug {
		level = logging.ParseLevel(cfg.LogLevel)
	}

	closeLog, err := logging.InitWithFile(level, cfg.LogFile)
	if err != nil {
		// Console logging is already in place; a broken log file should
		// not keep the service down.
		logging.Warn("App", "Continuing with console logging only: %v", err)
	}

	baseDir := ResolveBaseDir(cfg.BaseDir)
	logging.Debug("App", "Using base directory %s", baseDir)

	appFn := appCfg.App
	if appFn == nil {
		appFn = embeddedApp
	}

	runner := execx.NewRunner()
	deployment := deploy.New(cfg, baseDir, appFn, runner)
	providerCtl := BuildProviderController(cfg, baseDir, runner)

	orchestrator := bootstrap.New(bootstrap.Options{
		BaseURL:        fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Port),
		MaxAttempts:    cfg.Bootstrap.MaxAttempts,
		PollInterval:   cfg.Bootstrap.PollInterval(),
		PollTimeout:    cfg.Bootstrap.PollTimeout(),
		RequestTimeout: cfg.Bootstrap.RequestTimeout(),
		VerifyTimeout:  cfg.Bootstrap.VerifyTimeout(),
		Settle:         cfg.Bootstrap.Settle(),
	})

	sup := supervisor.New(
		supervisor.Options{Host: cfg.Server.Host, Port: cfg.Port},
		deployment,
		providerCtl,
		orchestrator,
	)

	return &Application{
		cfg:      cfg,
		baseDir:  baseDir,
		sup:      sup,
		closeLog: closeLog,
	}, nil
}

// ResolveBaseDir picks the directory the managed checkout lives in. An
// explicit configuration wins; otherwise it is the directory holding the
// supervisor binary, falling back to the working directory.
func ResolveBaseDir(configured string) string {
	if configured != "" {
		return configured
	}
	if exe, err := os.Executable(); err == nil {
		return filepath.Dir(exe)
	}
	if wd, err := os.Getwd(); err == nil {
		return wd
	}
	return "."
}

// BuildProviderController wires a provider controller from configuration.
// Shared between the supervisor and the standalone provider commands.
func BuildProviderController(cfg config.Config, baseDir string, runner execx.Runner) *provider.Controller {
	return provider.NewController(provider.Options{
		Binary:         cfg.Provider.Binary,
		FallbackPath:   cfg.Provider.FallbackPath,
		DaemonLog:      cfg.Provider.DaemonLog,
		InstallScript:  resolveInstallScript(baseDir, cfg.Provider.InstallScript),
		Settle:         cfg.Provider.Settle(),
		StatusTimeout:  cfg.Provider.StatusTimeout(),
		StopTimeout:    cfg.Provider.StopTimeout(),
		InstallTimeout: cfg.Provider.InstallTimeout(),
		Runner:         runner,
	})
}

// resolveInstallScript anchors a relative installation script at the project
// root, one level above the service directory.
func resolveInstallScript(baseDir, script string) string {
	if script == "" || filepath.IsAbs(script) {
		return script
	}
	return filepath.Join(filepath.Dir(baseDir), script)
}

// Run starts the supervisor and blocks until the context is cancelled or the
// service stops. Start failures are returned to the caller; everything after
// a successful start shuts down cleanly and returns nil.
func (a *Application) Run(ctx context.Context) error {
	if a.closeLog != nil {
		defer a.closeLog()
	}

	if err := a.sup.Start(ctx); err != nil {
		return err
	}

	if sent, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		logging.Debug("App", "Systemd readiness notification failed: %v", err)
	} else if sent {
		logging.Debug("App", "Systemd notified: ready")
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.shutdown()
			return nil
		case <-ticker.C:
			if !a.sup.Running() {
				return nil
			}
		}
	}
}

// shutdown stops the supervisor with a fresh deadline, since the run context
// is already cancelled by the time we get here.
func (a *Application) shutdown() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyStopping); err != nil {
		logging.Debug("App", "Systemd stop notification failed: %v", err)
	}

	budget := a.cfg.Provider.StopTimeout() + a.cfg.Server.StopTimeout() + 10*time.Second
	stopCtx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	a.sup.Stop(stopCtx)
}
