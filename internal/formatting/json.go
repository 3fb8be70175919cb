package formatting

import (
	"encoding/json"
	"io"
)

// JSON writes v to out as indented JSON followed by a newline.
func JSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
