package output

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter renders the JSON report document as YAML.
type YAMLFormatter struct{}

func (*YAMLFormatter) Format(w *bytes.Buffer, r *Result) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()

	enc.SetIndent(2)
	return enc.Encode(buildDocument(r))
}

func init() {
	Register("yaml", func() Formatter { return &YAMLFormatter{} })
}
