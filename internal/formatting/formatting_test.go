package formatting

import (
	"bytes"
	"testing"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "table", want: FormatTable},
		{input: "json", want: FormatJSON},
		{input: "yaml", want: FormatYAML},
		{input: "xml", wantErr: true},
		{input: "", wantErr: true},
		{input: "JSON", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestJSONWritesIndented(t *testing.T) {
	var buf bytes.Buffer

	err := JSON(&buf, map[string]string{"status": "running"})

	require.NoError(t, err)
	assert.Equal(t, "{\n  \"status\": \"running\"\n}\n", buf.String())
}

func TestYAMLWritesDocument(t *testing.T) {
	var buf bytes.Buffer

	err := YAML(&buf, map[string]string{"status": "running"})

	require.NoError(t, err)
	assert.Equal(t, "status: running\n", buf.String())
}

func TestNewTableRendersHeadersAndRows(t *testing.T) {
	var buf bytes.Buffer

	tbl := NewTable(&buf, "COMPONENT", "STATE")
	tbl.AppendRow(table.Row{"provider", "running"})
	tbl.Render()

	out := buf.String()
	assert.Contains(t, out, "COMPONENT")
	assert.Contains(t, out, "STATE")
	assert.Contains(t, out, "provider")
	assert.Contains(t, out, "running")
}

func TestStateContainsStateWord(t *testing.T) {
	for _, state := range []string{"ready", "running", "stopped", "not_found", "incomplete", "unreachable", "error"} {
		assert.Contains(t, State(state), state)
	}
}
