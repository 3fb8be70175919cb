package environment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shepherd/internal/config"
	"shepherd/internal/execx"
	"shepherd/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.InitForCLI(logging.LevelError, os.Stderr)
}

type fakeRunner struct {
	calls    []string
	handler  func(name string, args ...string) (execx.Result, error)
	lookPath func(name string) (string, error)
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (execx.Result, error) {
	f.calls = append(f.calls, strings.Join(append([]string{name}, args...), " "))
	if f.handler != nil {
		return f.handler(name, args...)
	}
	return execx.Result{}, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	if f.lookPath != nil {
		return f.lookPath(name)
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeRunner) callsMatching(substr string) int {
	count := 0
	for _, c := range f.calls {
		if strings.Contains(c, substr) {
			count++
		}
	}
	return count
}

func testConfig() config.EnvironmentConfig {
	cfg := config.Default().Environment
	cfg.InstallTimeoutSeconds = 5
	return cfg
}

// createVenvLayout builds the directory skeleton Probe expects, including the
// interpreter file at the platform-specific location.
func createVenvLayout(t *testing.T, rt *Runtime) {
	t.Helper()
	python := rt.PythonPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(python), 0755))
	require.NoError(t, os.WriteFile(python, []byte("#!/bin/sh\n"), 0755))
}

func TestProbe_NotFound(t *testing.T) {
	baseDir := t.TempDir()
	rt := NewRuntime(testConfig(), baseDir, &fakeRunner{})

	status := rt.Probe(context.Background())

	assert.Equal(t, StateNotFound, status.State)
	assert.Contains(t, status.Detail, "not found")
	assert.False(t, status.Ready())
}

func TestProbe_Corrupted(t *testing.T) {
	baseDir := t.TempDir()
	rt := NewRuntime(testConfig(), baseDir, &fakeRunner{})
	require.NoError(t, os.MkdirAll(rt.Dir(), 0755))

	status := rt.Probe(context.Background())

	assert.Equal(t, StateCorrupted, status.State)
	assert.Contains(t, status.Detail, "python executable")
}

func TestProbe_IncompletePreservesOrder(t *testing.T) {
	baseDir := t.TempDir()
	runner := &fakeRunner{
		handler: func(name string, args ...string) (execx.Result, error) {
			stmt := args[len(args)-1]
			if stmt == "import fastapi" || stmt == "import pydantic" {
				return execx.Result{ExitCode: 1, Stderr: "ModuleNotFoundError"}, nil
			}
			return execx.Result{}, nil
		},
	}
	rt := NewRuntime(testConfig(), baseDir, runner)
	createVenvLayout(t, rt)

	status := rt.Probe(context.Background())

	assert.Equal(t, StateIncomplete, status.State)
	assert.Equal(t, []string{"fastapi", "pydantic"}, status.Missing)
	assert.Contains(t, status.Detail, "fastapi, pydantic")
}

func TestProbe_Ready(t *testing.T) {
	baseDir := t.TempDir()
	runner := &fakeRunner{}
	rt := NewRuntime(testConfig(), baseDir, runner)
	createVenvLayout(t, rt)

	status := rt.Probe(context.Background())

	assert.Equal(t, StateReady, status.State)
	assert.Equal(t, rt.PythonPath(), status.PythonPath)
	assert.True(t, status.Ready())
	// One import probe per required package.
	assert.Equal(t, 4, runner.callsMatching("import "))
}

func TestProbe_RunnerFailureIsErrorState(t *testing.T) {
	baseDir := t.TempDir()
	runner := &fakeRunner{
		handler: func(name string, args ...string) (execx.Result, error) {
			return execx.Result{}, errors.New("fork failed")
		},
	}
	rt := NewRuntime(testConfig(), baseDir, runner)
	createVenvLayout(t, rt)

	status := rt.Probe(context.Background())

	assert.Equal(t, StateError, status.State)
	assert.Contains(t, status.Detail, "fork failed")
}

func TestProvision_ManifestMissing(t *testing.T) {
	baseDir := t.TempDir()
	rt := NewRuntime(testConfig(), baseDir, &fakeRunner{})

	err := rt.Provision(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requirements manifest not found")
}

func TestProvision_CreatesVenvThenInstalls(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "requirements.txt"), []byte("fastapi\n"), 0644))

	var venvDir string
	runner := &fakeRunner{
		handler: func(name string, args ...string) (execx.Result, error) {
			if len(args) >= 2 && args[0] == "-m" && args[1] == "venv" {
				// The real command creates the directory tree.
				if err := os.MkdirAll(filepath.Join(venvDir, "bin"), 0755); err != nil {
					return execx.Result{}, err
				}
			}
			return execx.Result{}, nil
		},
	}
	rt := NewRuntime(testConfig(), baseDir, runner)
	venvDir = rt.Dir()

	err := rt.Provision(context.Background())
	require.NoError(t, err)

	require.Len(t, runner.calls, 2)
	assert.Contains(t, runner.calls[0], "-m venv")
	assert.Contains(t, runner.calls[0], "/usr/bin/python3")
	assert.Contains(t, runner.calls[1], "install -r")
}

func TestProvision_SkipsCreationWhenVenvExists(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "requirements.txt"), []byte("fastapi\n"), 0644))

	runner := &fakeRunner{}
	rt := NewRuntime(testConfig(), baseDir, runner)
	require.NoError(t, os.MkdirAll(rt.Dir(), 0755))

	err := rt.Provision(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, runner.callsMatching("-m venv"))
	assert.Equal(t, 1, runner.callsMatching("install -r"))
}

func TestProvision_CreateFailureAbortsBeforeInstall(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "requirements.txt"), []byte("fastapi\n"), 0644))

	runner := &fakeRunner{
		handler: func(name string, args ...string) (execx.Result, error) {
			return execx.Result{ExitCode: 1, Stderr: "venv module missing"}, nil
		},
	}
	rt := NewRuntime(testConfig(), baseDir, runner)

	err := rt.Provision(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "venv module missing")
	assert.Equal(t, 0, runner.callsMatching("install -r"))
}

func TestProvision_InstallFailureCarriesStderr(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "requirements.txt"), []byte("fastapi\n"), 0644))

	runner := &fakeRunner{
		handler: func(name string, args ...string) (execx.Result, error) {
			if args[0] == "install" {
				return execx.Result{ExitCode: 1, Stderr: "No matching distribution found"}, nil
			}
			return execx.Result{}, nil
		},
	}
	rt := NewRuntime(testConfig(), baseDir, runner)
	require.NoError(t, os.MkdirAll(rt.Dir(), 0755))

	err := rt.Provision(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "No matching distribution found")
}

func TestProvision_NoBaseInterpreter(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "requirements.txt"), []byte("fastapi\n"), 0644))

	runner := &fakeRunner{
		lookPath: func(name string) (string, error) {
			return "", fmt.Errorf("%s: executable file not found", name)
		},
	}
	rt := NewRuntime(testConfig(), baseDir, runner)

	err := rt.Provision(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no python interpreter")
}

// Fresh machine: probe reports NotFound, provisioning builds the runtime, the
// next probe reports Ready.
func TestFreshEnvironmentLifecycle(t *testing.T) {
	baseDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(baseDir, "requirements.txt"), []byte("fastapi\n"), 0644))

	var rt *Runtime
	runner := &fakeRunner{
		handler: func(name string, args ...string) (execx.Result, error) {
			if len(args) >= 2 && args[0] == "-m" && args[1] == "venv" {
				python := rt.PythonPath()
				if err := os.MkdirAll(filepath.Dir(python), 0755); err != nil {
					return execx.Result{}, err
				}
				if err := os.WriteFile(python, []byte("#!/bin/sh\n"), 0755); err != nil {
					return execx.Result{}, err
				}
			}
			return execx.Result{}, nil
		},
	}
	rt = NewRuntime(testConfig(), baseDir, runner)

	assert.Equal(t, StateNotFound, rt.Probe(context.Background()).State)

	require.NoError(t, rt.Provision(context.Background()))

	assert.Equal(t, StateReady, rt.Probe(context.Background()).State)
}
