package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as an enveloped YAML document.
type YAMLFormatter struct{}

// Format marshals data to YAML, wrapped in a success envelope unless
// the caller already supplied one.
func (f *YAMLFormatter) Format(data interface{}) (string, error) {
	return marshalYAML(envelopeFor(data))
}

// FormatError marshals a structured error to a failure envelope.
func (f *YAMLFormatter) FormatError(err StructuredError) (string, error) {
	return marshalYAML(Failure(err))
}

// FormatTable converts tabular data to an enveloped YAML sequence.
func (f *YAMLFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	return f.Format(tableToMaps(headers, rows))
}

// marshalYAML round-trips through JSON so YAML output carries the same
// field names as the JSON envelope. yaml.v3 ignores json struct tags
// and would otherwise lowercase the Go field names of API models.
func marshalYAML(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", err
	}
	output, err := yaml.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(output), nil
}
