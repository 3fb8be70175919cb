// Package cli provides shared helpers for shepherd's command
// implementations: progress feedback and user-facing message styling.
package cli

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
)

// WithSpinner runs fn while an animated spinner plays on the terminal.
// The spinner is suppressed when quiet is set so machine-readable output
// stays clean.
func WithSpinner(quiet bool, message string, fn func()) {
	if quiet {
		fn()
		return
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = message
	s.Start()
	defer s.Stop()

	fn()
}

// FormatSuccess formats a success message for CLI output.
func FormatSuccess(msg string) string {
	return fmt.Sprintf("✓ %s", msg)
}
