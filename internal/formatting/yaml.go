package formatting

import (
	"io"

	"gopkg.in/yaml.v3"
)

// YAML writes v to out as a YAML document.
func YAML(out io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}
