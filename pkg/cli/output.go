package cli

import (
	"io"

	"gopkg.in/yaml.v3"
)

// printYAML renders listings and dumps. YAML keeps them both readable at the
// terminal and loadable by provisioning scripts.
func printYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(v)
}
