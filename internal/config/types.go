package config

import "time"

// Config is the top-level configuration structure for shepherd.
type Config struct {
	Port     int    `yaml:"port,omitempty"`     // API server listen port (default: 8000)
	BaseDir  string `yaml:"baseDir,omitempty"`  // Working directory for the managed stack (default: executable directory)
	LogFile  string `yaml:"logFile,omitempty"`  // Append-only service log, mirrored to the console (default: $TMPDIR/shepherd.log)
	LogLevel string `yaml:"logLevel,omitempty"` // debug, info, warn, error (default: info)

	Server      ServerConfig      `yaml:"server,omitempty"`
	Environment EnvironmentConfig `yaml:"environment,omitempty"`
	Provider    ProviderConfig    `yaml:"provider,omitempty"`
	Bootstrap   BootstrapConfig   `yaml:"bootstrap,omitempty"`
}

// ServerConfig defines how the API server child is launched and stopped.
type ServerConfig struct {
	Host                string `yaml:"host,omitempty"`                // Bind address (default: 127.0.0.1)
	App                 string `yaml:"app,omitempty"`                 // ASGI application reference (default: main:app)
	LogLevel            string `yaml:"logLevel,omitempty"`            // Log level passed to the server process (default: info)
	StartupGraceSeconds int    `yaml:"startupGraceSeconds,omitempty"` // Window in which an immediate child exit counts as spawn failure (default: 2)
	StopTimeoutSeconds  int    `yaml:"stopTimeoutSeconds,omitempty"`  // Graceful-terminate wait before forced kill (default: 5)
}

// EnvironmentConfig defines the isolated Python runtime the script deployment
// probes and provisions. Relative paths resolve against BaseDir.
type EnvironmentConfig struct {
	Dir                   string   `yaml:"dir,omitempty"`                   // Virtual environment directory (default: venv)
	Requirements          string   `yaml:"requirements,omitempty"`          // Dependency manifest (default: requirements.txt)
	Packages              []string `yaml:"packages,omitempty"`              // Import-probed packages (default: fastapi, uvicorn, pydantic, requests)
	BasePython            string   `yaml:"basePython,omitempty"`            // Interpreter used to create the venv (default: python3, then python)
	InstallTimeoutSeconds int      `yaml:"installTimeoutSeconds,omitempty"` // Bound on the dependency install (default: 600)
}

// ProviderConfig defines the external provider daemon's control surface.
type ProviderConfig struct {
	Binary                string `yaml:"binary,omitempty"`                // Control executable name (default: golemsp)
	FallbackPath          string `yaml:"fallbackPath,omitempty"`          // Tried when the unqualified binary does not resolve (default: ~/.local/bin/golemsp)
	DaemonLog             string `yaml:"daemonLog,omitempty"`             // Daemon log file, also the detached-launch output sink (default: ~/.local/share/yagna/yagna_rCURRENT.log)
	ProviderLog           string `yaml:"providerLog,omitempty"`           // Provider worker log file (default: ~/.local/share/ya-provider/ya-provider_rCURRENT.log)
	InstallScript         string `yaml:"installScript,omitempty"`         // Installer script path (default: scripts/install-golem.sh under BaseDir)
	SettleSeconds         int    `yaml:"settleSeconds,omitempty"`         // Pause after launch before re-verifying (default: 3)
	StatusTimeoutSeconds  int    `yaml:"statusTimeoutSeconds,omitempty"`  // Bound on status/version probes (default: 10)
	StopTimeoutSeconds    int    `yaml:"stopTimeoutSeconds,omitempty"`    // Bound on the stop subcommand (default: 30)
	InstallTimeoutSeconds int    `yaml:"installTimeoutSeconds,omitempty"` // Bound on the installer script (default: 300)
}

// BootstrapConfig tunes the HTTP handshake against the API server. Defaults
// match the documented contract; tests shrink them.
type BootstrapConfig struct {
	MaxAttempts           int `yaml:"maxAttempts,omitempty"`           // Readiness poll budget (default: 30)
	PollIntervalSeconds   int `yaml:"pollIntervalSeconds,omitempty"`   // Delay between poll attempts (default: 1)
	PollTimeoutSeconds    int `yaml:"pollTimeoutSeconds,omitempty"`    // Per-poll request timeout (default: 5)
	RequestTimeoutSeconds int `yaml:"requestTimeoutSeconds,omitempty"` // Bootstrap POST timeout (default: 600)
	VerifyTimeoutSeconds  int `yaml:"verifyTimeoutSeconds,omitempty"`  // Verification GET timeout (default: 30)
	SettleSeconds         int `yaml:"settleSeconds,omitempty"`         // Pause before verification (default: 3)
}

// StartupGrace returns the spawn-failure detection window as a duration.
func (s ServerConfig) StartupGrace() time.Duration {
	return time.Duration(s.StartupGraceSeconds) * time.Second
}

// StopTimeout returns the graceful-stop wait as a duration.
func (s ServerConfig) StopTimeout() time.Duration {
	return time.Duration(s.StopTimeoutSeconds) * time.Second
}

// InstallTimeout returns the dependency-install bound as a duration.
func (e EnvironmentConfig) InstallTimeout() time.Duration {
	return time.Duration(e.InstallTimeoutSeconds) * time.Second
}

// Settle returns the post-launch verification delay as a duration.
func (p ProviderConfig) Settle() time.Duration {
	return time.Duration(p.SettleSeconds) * time.Second
}

// StatusTimeout returns the probe bound as a duration.
func (p ProviderConfig) StatusTimeout() time.Duration {
	return time.Duration(p.StatusTimeoutSeconds) * time.Second
}

// StopTimeout returns the stop subcommand bound as a duration.
func (p ProviderConfig) StopTimeout() time.Duration {
	return time.Duration(p.StopTimeoutSeconds) * time.Second
}

// InstallTimeout returns the installer script bound as a duration.
func (p ProviderConfig) InstallTimeout() time.Duration {
	return time.Duration(p.InstallTimeoutSeconds) * time.Second
}

// PollInterval returns the poll cadence as a duration.
func (b BootstrapConfig) PollInterval() time.Duration {
	return time.Duration(b.PollIntervalSeconds) * time.Second
}

// PollTimeout returns the per-poll request timeout as a duration.
func (b BootstrapConfig) PollTimeout() time.Duration {
	return time.Duration(b.PollTimeoutSeconds) * time.Second
}

// RequestTimeout returns the bootstrap POST timeout as a duration.
func (b BootstrapConfig) RequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutSeconds) * time.Second
}

// VerifyTimeout returns the verification GET timeout as a duration.
func (b BootstrapConfig) VerifyTimeout() time.Duration {
	return time.Duration(b.VerifyTimeoutSeconds) * time.Second
}

// Settle returns the pre-verification delay as a duration.
func (b BootstrapConfig) Settle() time.Duration {
	return time.Duration(b.SettleSeconds) * time.Second
}
