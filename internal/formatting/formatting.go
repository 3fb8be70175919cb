// Package formatting renders command output in the formats the CLI
// supports: rounded tables for humans, JSON and YAML for scripts.
package formatting

import (
	"fmt"
)

// Format selects how command output is rendered.
type Format string

const (
	FormatTable Format = "table" // Rich table output
	FormatJSON  Format = "json"  // JSON output
	FormatYAML  Format = "yaml"  // YAML output
)

// ParseFormat validates an --output flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatYAML:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown output format: %s (expected table, json or yaml)", s)
}
