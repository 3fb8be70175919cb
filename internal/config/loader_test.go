package config

import (
	"os"
	"path/filepath"
	"testing"

	"shepherd/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func init() {
	logging.InitForCLI(logging.LevelError, os.Stderr)
}

// Helper function to create a temporary config file
func createTempConfigFile(t *testing.T, dir string, filename string, content Config) string {
	t.Helper()
	tempFilePath := filepath.Join(dir, filename)
	data, err := yaml.Marshal(&content)
	require.NoError(t, err)
	err = os.WriteFile(tempFilePath, data, 0644)
	require.NoError(t, err)
	return tempFilePath
}

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	tempDir := t.TempDir()

	originalGetUserConfigPath := getUserConfigPath
	defer func() { getUserConfigPath = originalGetUserConfigPath }()

	getUserConfigPath = func() (string, error) {
		return filepath.Join(tempDir, "non-existent-config.yaml"), nil
	}

	loaded, err := Load("")
	assert.NoError(t, err)

	assert.Equal(t, DefaultPort, loaded.Port)
	assert.Equal(t, DefaultProviderBinary, loaded.Provider.Binary)
	assert.Equal(t, []string{"fastapi", "uvicorn", "pydantic", "requests"}, loaded.Environment.Packages)
	assert.Equal(t, 30, loaded.Bootstrap.MaxAttempts)
}

func TestLoad_ExplicitFile(t *testing.T) {
	tempDir := t.TempDir()

	override := Config{
		Port: 9100,
		Provider: ProviderConfig{
			Binary:        "fakesp",
			SettleSeconds: 1,
		},
	}
	path := createTempConfigFile(t, tempDir, configFileName, override)

	loaded, err := Load(path)
	assert.NoError(t, err)

	assert.Equal(t, 9100, loaded.Port)
	assert.Equal(t, "fakesp", loaded.Provider.Binary)
	assert.Equal(t, 1, loaded.Provider.SettleSeconds)
	// Untouched sections keep their defaults.
	assert.Equal(t, "127.0.0.1", loaded.Server.Host)
	assert.Equal(t, 600, loaded.Bootstrap.RequestTimeoutSeconds)
}

func TestLoad_UserConfigResolution(t *testing.T) {
	tempDir := t.TempDir()

	originalOsUserHomeDir := osUserHomeDir
	originalGetUserConfigPath := getUserConfigPath
	defer func() {
		osUserHomeDir = originalOsUserHomeDir
		getUserConfigPath = originalGetUserConfigPath
	}()

	osUserHomeDir = func() (string, error) { return tempDir, nil }
	getUserConfigPath = func() (string, error) {
		return filepath.Join(tempDir, userConfigDir, configFileName), nil
	}

	userConfDir := filepath.Join(tempDir, userConfigDir)
	require.NoError(t, os.MkdirAll(userConfDir, 0755))
	createTempConfigFile(t, userConfDir, configFileName, Config{Port: 8123})

	loaded, err := Load("")
	assert.NoError(t, err)
	assert.Equal(t, 8123, loaded.Port)
}

func TestLoad_MalformedYAML(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, configFileName)
	require.NoError(t, os.WriteFile(path, []byte("port: [not a port\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidPortFallsBack(t *testing.T) {
	tempDir := t.TempDir()
	path := createTempConfigFile(t, tempDir, configFileName, Config{Port: -4})

	loaded, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, DefaultPort, loaded.Port)
}

func TestLoad_ExpandsHomePaths(t *testing.T) {
	tempDir := t.TempDir()

	originalOsUserHomeDir := osUserHomeDir
	defer func() { osUserHomeDir = originalOsUserHomeDir }()
	osUserHomeDir = func() (string, error) { return "/home/worker", nil }

	override := Default()
	override.Port = 8001
	path := createTempConfigFile(t, tempDir, configFileName, override)

	loaded, err := Load(path)
	assert.NoError(t, err)

	assert.Equal(t, "/home/worker/.local/bin/golemsp", loaded.Provider.FallbackPath)
	assert.Equal(t, "/home/worker/.local/share/yagna/yagna_rCURRENT.log", loaded.Provider.DaemonLog)
	assert.Equal(t, "/home/worker/.local/share/ya-provider/ya-provider_rCURRENT.log", loaded.Provider.ProviderLog)
}

func TestExpandPath(t *testing.T) {
	originalOsUserHomeDir := osUserHomeDir
	defer func() { osUserHomeDir = originalOsUserHomeDir }()
	osUserHomeDir = func() (string, error) { return "/home/worker", nil }

	tests := []struct {
		in       string
		expected string
	}{
		{"~/.local/bin/golemsp", "/home/worker/.local/bin/golemsp"},
		{"~", "/home/worker"},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"", ""},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, ExpandPath(test.in), "ExpandPath(%q)", test.in)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "5s", cfg.Server.StopTimeout().String())
	assert.Equal(t, "2s", cfg.Server.StartupGrace().String())
	assert.Equal(t, "3s", cfg.Provider.Settle().String())
	assert.Equal(t, "10m0s", cfg.Bootstrap.RequestTimeout().String())
	assert.Equal(t, "1s", cfg.Bootstrap.PollInterval().String())
}
