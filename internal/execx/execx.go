// Package execx wraps subprocess execution behind a small interface so that
// components driving external commands (the environment prober, the provider
// controller) can be tested with counting fakes instead of real processes.
package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Result carries the outcome of a finished command. A command that started
// and exited, with any code, produces a Result and a nil error; ExitCode
// distinguishes success from failure.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner executes external commands. The single production implementation
// shells out through os/exec; tests substitute fakes.
type Runner interface {
	// Run executes the command and waits for it. A non-nil error means the
	// command could not be run to completion: the executable was not found,
	// the context deadline expired, or the wait itself failed. A clean
	// non-zero exit is not an error; inspect Result.ExitCode.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// LookPath reports the absolute path of an executable, or an error if
	// it does not resolve on PATH.
	LookPath(name string) (string, error)
}

type osRunner struct{}

// NewRunner returns the os/exec backed Runner.
func NewRunner() Runner {
	return osRunner{}
}

func (osRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	// A deadline or cancellation dominates whatever exit the kill produced.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return res, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

func (osRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// RunWithTimeout is a convenience for bounded one-shot commands. A timeout of
// zero means no bound beyond the caller's context.
func RunWithTimeout(ctx context.Context, r Runner, timeout time.Duration, name string, args ...string) (Result, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return r.Run(ctx, name, args...)
}
