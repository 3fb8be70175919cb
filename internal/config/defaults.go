package config

import (
	"os"
	"path/filepath"
)

const (
	// DefaultPort is the API server listen port used when none is configured.
	DefaultPort = 8000

	// DefaultProviderBinary is the provider daemon's control executable.
	DefaultProviderBinary = "golemsp"
)

// Default returns the default configuration. BaseDir is left empty and is
// resolved to the executable's directory at application construction.
func Default() Config {
	return Config{
		Port:     DefaultPort,
		LogFile:  filepath.Join(os.TempDir(), "shepherd.log"),
		LogLevel: "info",
		Server: ServerConfig{
			Host:                "127.0.0.1",
			App:                 "main:app",
			LogLevel:            "info",
			StartupGraceSeconds: 2,
			StopTimeoutSeconds:  5,
		},
		Environment: EnvironmentConfig{
			Dir:                   "venv",
			Requirements:          "requirements.txt",
			Packages:              []string{"fastapi", "uvicorn", "pydantic", "requests"},
			InstallTimeoutSeconds: 600,
		},
		Provider: ProviderConfig{
			Binary:                DefaultProviderBinary,
			FallbackPath:          "~/.local/bin/golemsp",
			DaemonLog:             "~/.local/share/yagna/yagna_rCURRENT.log",
			ProviderLog:           "~/.local/share/ya-provider/ya-provider_rCURRENT.log",
			InstallScript:         filepath.Join("scripts", "install-golem.sh"),
			SettleSeconds:         3,
			StatusTimeoutSeconds:  10,
			StopTimeoutSeconds:    30,
			InstallTimeoutSeconds: 300,
		},
		Bootstrap: BootstrapConfig{
			MaxAttempts:           30,
			PollIntervalSeconds:   1,
			PollTimeoutSeconds:    5,
			RequestTimeoutSeconds: 600,
			VerifyTimeoutSeconds:  30,
			SettleSeconds:         3,
		},
	}
}
