// Package bootstrap drives the API server's own bootstrap endpoint after
// launch.
//
// The server installs its dependencies when POST /bootstrap is called. The
// orchestrator waits for the server to answer on /docs, fires the bootstrap
// request with a generous deadline, logs the step-by-step summary the server
// reports back, and finishes with a best-effort verification call. Failures
// are classified so callers can tell a slow bootstrap from a dead server.
package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"shepherd/pkg/logging"
)

var (
	// ErrServerNotReady means the server never answered the readiness
	// probe within the attempt budget.
	ErrServerNotReady = errors.New("API server did not become ready in time")

	// ErrRequestTimeout means the bootstrap request exceeded its deadline.
	ErrRequestTimeout = errors.New("bootstrap request timed out")

	// ErrServerUnreachable means the bootstrap request failed below the
	// HTTP layer, e.g. a refused or dropped connection.
	ErrServerUnreachable = errors.New("bootstrap request failed")
)

// HTTPError is a bootstrap response with a non-OK status code.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("bootstrap failed with status %d", e.StatusCode)
}

// Report is the bootstrap outcome the server returns. Fields the server
// omits carry the documented defaults.
type Report struct {
	RunID          string `json:"-"`
	StepsCompleted int    `json:"steps_completed"`
	TotalSteps     int    `json:"total_steps"`
	CompletionTime string `json:"completion_time"`
	Steps          []Step `json:"bootstrap_steps"`
}

// Step is one entry of the server's bootstrap step list.
type Step struct {
	Step    json.Number `json:"step"`
	Action  string      `json:"action"`
	Status  string      `json:"status"`
	Message string      `json:"message"`
}

func (s Step) label() string {
	if s.Step == "" {
		return "?"
	}
	return s.Step.String()
}

// decodeReport parses the bootstrap response body, applying defaults for
// fields the server left out.
func decodeReport(body []byte) (*Report, error) {
	report := &Report{
		TotalSteps:     5,
		CompletionTime: "Unknown",
	}
	if err := json.Unmarshal(body, report); err != nil {
		return nil, fmt.Errorf("failed to decode bootstrap response: %w", err)
	}
	for i := range report.Steps {
		if report.Steps[i].Action == "" {
			report.Steps[i].Action = "unknown"
		}
		if report.Steps[i].Status == "" {
			report.Steps[i].Status = "unknown"
		}
		if report.Steps[i].Message == "" {
			report.Steps[i].Message = "No message"
		}
	}
	return report, nil
}

// Options configures the orchestrator.
type Options struct {
	// BaseURL is the server root, e.g. "http://127.0.0.1:8000".
	BaseURL string

	// MaxAttempts is how many readiness probes to try before giving up.
	MaxAttempts int

	// PollInterval is the pause between readiness probes.
	PollInterval time.Duration

	// PollTimeout bounds a single readiness probe.
	PollTimeout time.Duration

	// RequestTimeout bounds the bootstrap request itself. Dependency
	// installation is slow, so this is measured in minutes.
	RequestTimeout time.Duration

	// VerifyTimeout bounds the verification request.
	VerifyTimeout time.Duration

	// Settle is the pause between bootstrap completion and verification.
	Settle time.Duration
}

// Orchestrator runs the bootstrap sequence against a launched API server.
type Orchestrator struct {
	opts   Options
	client *http.Client
}

// New returns an orchestrator for the server described by opts.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		opts:   opts,
		client: &http.Client{},
	}
}

// Run executes the bootstrap sequence: wait for the server, call the
// bootstrap endpoint, log the reported steps, then verify. Verification
// problems are logged but never fail the run.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	runID := uuid.New().String()

	logging.Info("Bootstrap", "🚀 Calling bootstrap endpoint to install dependencies...")
	logging.Debug("Bootstrap", "Bootstrap run %s starting against %s", runID, o.opts.BaseURL)

	if err := o.waitForReady(ctx); err != nil {
		logging.Error("Bootstrap", err, "❌ API server did not become ready in time")
		return nil, err
	}

	report, err := o.callBootstrap(ctx)
	if err != nil {
		return nil, err
	}
	report.RunID = runID

	logging.Info("Bootstrap", "✅ Bootstrap completed successfully!")
	o.logSummary(report)

	select {
	case <-ctx.Done():
		return report, ctx.Err()
	case <-time.After(o.opts.Settle):
	}

	o.verify(ctx)
	return report, nil
}

// waitForReady polls the server's documentation page until it answers with
// 200. Progress is logged every fifth attempt.
func (o *Orchestrator) waitForReady(ctx context.Context) error {
	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		if o.probeOnce(ctx) {
			logging.Info("Bootstrap", "✅ API server is ready, calling bootstrap endpoint...")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.opts.PollInterval):
		}

		if attempt%5 == 0 {
			logging.Info("Bootstrap", "⏳ Waiting for API server to be ready... (%d/%d)", attempt, o.opts.MaxAttempts)
		}
	}
	return ErrServerNotReady
}

func (o *Orchestrator) probeOnce(ctx context.Context) bool {
	reqCtx, cancel := context.WithTimeout(ctx, o.opts.PollTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, o.opts.BaseURL+"/docs", nil)
	if err != nil {
		return false
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}

func (o *Orchestrator) callBootstrap(ctx context.Context) (*Report, error) {
	logging.Info("Bootstrap", "📋 Starting bootstrap process via HTTP...")

	reqCtx, cancel := context.WithTimeout(ctx, o.opts.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, o.opts.BaseURL+"/bootstrap", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build bootstrap request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			logging.Error("Bootstrap", err, "❌ Bootstrap request timed out")
			return nil, ErrRequestTimeout
		}
		logging.Error("Bootstrap", err, "❌ Bootstrap request failed")
		return nil, fmt.Errorf("%w: %v", ErrServerUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read bootstrap response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		logging.Error("Bootstrap", nil, "❌ Bootstrap failed with status %d: %s", resp.StatusCode, string(body))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return decodeReport(body)
}

// logSummary writes the step-by-step outcome to the log, one line per step,
// in the order the server reported them.
func (o *Orchestrator) logSummary(report *Report) {
	logging.Info("Bootstrap", "📊 Bootstrap Summary:")
	logging.Info("Bootstrap", "   - Steps completed: %d/%d", report.StepsCompleted, report.TotalSteps)
	logging.Info("Bootstrap", "   - Completion time: %s", report.CompletionTime)

	for _, step := range report.Steps {
		if step.Status == "success" {
			logging.Info("Bootstrap", "   ✅ Step %s (%s): %s", step.label(), step.Action, step.Message)
		} else {
			logging.Error("Bootstrap", nil, "   ❌ Step %s (%s): %s", step.label(), step.Action, step.Message)
		}
	}
}

// verify asks the server whether all subsystems came up. The outcome only
// affects logging.
func (o *Orchestrator) verify(ctx context.Context) {
	logging.Info("Bootstrap", "🔍 Verifying installation...")

	reqCtx, cancel := context.WithTimeout(ctx, o.opts.VerifyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, o.opts.BaseURL+"/verify-installation", nil)
	if err != nil {
		logging.Warn("Bootstrap", "⚠️ Installation verification failed: %v", err)
		return
	}
	resp, err := o.client.Do(req)
	if err != nil {
		logging.Warn("Bootstrap", "⚠️ Installation verification failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warn("Bootstrap", "⚠️ Could not verify installation")
		return
	}

	var verdict struct {
		AllSystemsGo bool `json:"all_systems_go"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verdict); err != nil {
		logging.Warn("Bootstrap", "⚠️ Installation verification failed: %v", err)
		return
	}

	if verdict.AllSystemsGo {
		logging.Info("Bootstrap", "✅ Installation verification successful - all systems ready!")
	} else {
		logging.Warn("Bootstrap", "⚠️ Installation verification shows some issues")
	}
}
