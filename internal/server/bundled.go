package server

import (
	"context"
	"errors"
	"sync"

	"shepherd/pkg/logging"
)

// AppFunc serves an embedded API application. It blocks until the listener
// stops and returns the terminal error, if any.
type AppFunc func(host string, port int) error

// BundledLauncher runs the API server inside the supervisor process when the
// application is compiled in. The server lives on a goroutine instead of a
// child process, so there is nothing to reap on shutdown.
type BundledLauncher struct {
	app  AppFunc
	opts Options

	mu      sync.Mutex
	started bool
}

// NewBundledLauncher returns a launcher that serves the embedded application.
func NewBundledLauncher(app AppFunc, opts Options) *BundledLauncher {
	return &BundledLauncher{app: app, opts: opts}
}

// Launch starts the embedded server on a background goroutine and returns
// immediately. The goroutine is not joined; it ends when the process exits.
func (l *BundledLauncher) Launch(ctx context.Context, _ string) error {
	if l.app == nil {
		return errors.New("no embedded application registered")
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return errors.New("API server is already running")
	}
	l.started = true

	host := l.opts.Host
	port := l.opts.Port
	go func() {
		if err := l.app(host, port); err != nil {
			logging.Error("Server", err, "Embedded API server terminated")
		}
	}()

	logging.Info("Server", "API server started in background goroutine")
	return nil
}

// Shutdown is a no-op. The embedded server goroutine is abandoned and dies
// with the process, matching how a background server thread behaves.
func (l *BundledLauncher) Shutdown() {}
