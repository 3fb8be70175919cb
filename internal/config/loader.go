package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shepherd/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/shepherd"
	configFileName = "config.yaml"
)

// Mockable in tests.
var (
	osUserHomeDir = os.UserHomeDir

	getUserConfigPath = func() (string, error) {
		homeDir, err := osUserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not determine user home directory: %w", err)
		}
		return filepath.Join(homeDir, userConfigDir, configFileName), nil
	}
)

// Load loads configuration from the given file path. An empty path means the
// user config location (~/.config/shepherd/config.yaml). A missing file is
// not an error: the defaults are returned. A malformed file is an error.
func Load(configPath string) (Config, error) {
	cfg := Default()

	if configPath == "" {
		userPath, err := getUserConfigPath()
		if err != nil {
			logging.Warn("ConfigLoader", "Cannot resolve user config path, using defaults: %v", err)
			return normalize(cfg), nil
		}
		configPath = userPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ConfigLoader", "No config file found at %s, using defaults", configPath)
			return normalize(cfg), nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", configPath, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configPath, err)
	}

	logging.Info("ConfigLoader", "Loaded configuration from %s", configPath)
	return normalize(cfg), nil
}

// normalize expands home-relative paths and repairs out-of-range values so
// downstream components never see them.
func normalize(cfg Config) Config {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		logging.Warn("ConfigLoader", "Invalid port %d, using default %d", cfg.Port, DefaultPort)
		cfg.Port = DefaultPort
	}

	cfg.LogFile = ExpandPath(cfg.LogFile)
	cfg.BaseDir = ExpandPath(cfg.BaseDir)
	cfg.Provider.FallbackPath = ExpandPath(cfg.Provider.FallbackPath)
	cfg.Provider.DaemonLog = ExpandPath(cfg.Provider.DaemonLog)
	cfg.Provider.ProviderLog = ExpandPath(cfg.Provider.ProviderLog)

	return cfg
}

// ExpandPath resolves a leading "~/" against the user's home directory. Paths
// without the prefix are returned unchanged, as is everything when the home
// directory cannot be determined.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~/") && path != "~" {
		return path
	}
	homeDir, err := osUserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return homeDir
	}
	return filepath.Join(homeDir, path[2:])
}
