package formatting

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// NewTable creates a table writer with the rounded style and highlighted
// headers used across shepherd's commands.
func NewTable(out io.Writer, headers ...string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleRounded)

	row := make(table.Row, 0, len(headers))
	for _, h := range headers {
		row = append(row, text.FgHiCyan.Sprint(h))
	}
	t.AppendHeader(row)
	return t
}

// State colors a component state for table output. Healthy states render
// green, transitional or absent ones yellow and everything else red.
func State(state string) string {
	switch state {
	case "ready", "running":
		return text.FgGreen.Sprint(state)
	case "stopped", "not_found", "incomplete", "unreachable":
		return text.FgYellow.Sprint(state)
	default:
		return text.FgRed.Sprint(state)
	}
}
