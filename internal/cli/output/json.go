package output

import (
	"encoding/json"
)

// JSONFormatter formats output as an enveloped JSON document.
type JSONFormatter struct {
	Indent bool // Whether to pretty-print with indentation
}

// Format marshals data to JSON, wrapped in a success envelope unless
// the caller already supplied one.
func (f *JSONFormatter) Format(data interface{}) (string, error) {
	return f.marshal(envelopeFor(data))
}

// FormatError marshals a structured error to a failure envelope.
func (f *JSONFormatter) FormatError(err StructuredError) (string, error) {
	return f.marshal(Failure(err))
}

// FormatTable converts tabular data to an enveloped JSON array of objects.
func (f *JSONFormatter) FormatTable(headers []string, rows [][]string) (string, error) {
	return f.Format(tableToMaps(headers, rows))
}

func (f *JSONFormatter) marshal(v interface{}) (string, error) {
	var output []byte
	var err error
	if f.Indent {
		output, err = json.MarshalIndent(v, "", "  ")
	} else {
		output, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}
	return string(output), nil
}

// tableToMaps converts header/row tabular data to a slice of maps,
// padding short rows with empty strings.
func tableToMaps(headers []string, rows [][]string) []map[string]string {
	result := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string)
		for i, header := range headers {
			if i < len(row) {
				obj[header] = row[i]
			} else {
				obj[header] = ""
			}
		}
		result = append(result, obj)
	}
	return result
}
