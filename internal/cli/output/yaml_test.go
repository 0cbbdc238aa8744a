package output

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestYAMLFormatter_Format_Envelope(t *testing.T) {
	f := &YAMLFormatter{}

	result, err := f.Format(map[string]string{"name": "website"})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var parsed map[string]interface{}
	if yamlErr := yaml.Unmarshal([]byte(result), &parsed); yamlErr != nil {
		t.Fatalf("Format() result is not valid YAML: %v", yamlErr)
	}

	if parsed["ok"] != true {
		t.Errorf("Expected ok=true, got: %v", parsed["ok"])
	}
	data, ok := parsed["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data map, got: %T", parsed["data"])
	}
	if data["name"] != "website" {
		t.Errorf("Expected data.name 'website', got: %v", data["name"])
	}
}

func TestYAMLFormatter_Format_UsesJSONFieldNames(t *testing.T) {
	f := &YAMLFormatter{}

	// Models only carry json tags; YAML output must use the same names
	// so scripts can switch formats without remapping keys.
	data := struct {
		ProjectName string `json:"project_name"`
		IssueCount  int    `json:"issue_count"`
		IsPublic    bool   `json:"is_public"`
	}{
		ProjectName: "website",
		IssueCount:  5,
		IsPublic:    true,
	}

	result, err := f.Format(data)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	for _, field := range []string{"project_name:", "issue_count:", "is_public:"} {
		if !strings.Contains(result, field) {
			t.Errorf("Expected %q in YAML output:\n%s", field, result)
		}
	}
}

func TestYAMLFormatter_FormatError(t *testing.T) {
	f := &YAMLFormatter{}

	err := StructuredError{
		Code:            "AUTH_ERROR",
		Message:         "no API key configured",
		Guidance:        "Set RDM_API_KEY or add a profile",
		RecoveryCommand: "rdm profile add work --url https://redmine.example.com --api-key KEY",
	}

	result, formatErr := f.FormatError(err)
	if formatErr != nil {
		t.Fatalf("FormatError() error = %v", formatErr)
	}

	var parsed struct {
		OK    bool             `yaml:"ok"`
		Error *StructuredError `yaml:"error"`
	}
	if yamlErr := yaml.Unmarshal([]byte(result), &parsed); yamlErr != nil {
		t.Fatalf("FormatError() result is not valid YAML: %v", yamlErr)
	}

	if parsed.OK {
		t.Error("Expected ok=false")
	}
	if parsed.Error == nil {
		t.Fatal("Expected error object")
	}
	if parsed.Error.Code != "AUTH_ERROR" {
		t.Errorf("Expected code 'AUTH_ERROR', got: %v", parsed.Error.Code)
	}
	if parsed.Error.Message != "no API key configured" {
		t.Errorf("Unexpected message: %v", parsed.Error.Message)
	}
}

func TestYAMLFormatter_FormatError_OmitEmpty(t *testing.T) {
	f := &YAMLFormatter{}

	err := StructuredError{
		Code:    "API_ERROR",
		Message: "server error",
	}

	result, formatErr := f.FormatError(err)
	if formatErr != nil {
		t.Fatalf("FormatError() error = %v", formatErr)
	}

	if strings.Contains(result, "guidance:") {
		t.Error("Empty guidance should be omitted")
	}
	if strings.Contains(result, "recovery_command:") {
		t.Error("Empty recovery_command should be omitted")
	}
	if strings.Contains(result, "context:") {
		t.Error("Empty context should be omitted")
	}
	if strings.Contains(result, "data:") {
		t.Error("Failure envelope should not carry a data field")
	}
}

func TestYAMLFormatter_FormatTable(t *testing.T) {
	f := &YAMLFormatter{}

	headers := []string{"name", "status"}
	rows := [][]string{
		{"website", "active"},
		{"backend", "archived"},
	}

	result, err := f.FormatTable(headers, rows)
	if err != nil {
		t.Fatalf("FormatTable() error = %v", err)
	}

	var parsed struct {
		OK   bool                `yaml:"ok"`
		Data []map[string]string `yaml:"data"`
	}
	if yamlErr := yaml.Unmarshal([]byte(result), &parsed); yamlErr != nil {
		t.Fatalf("FormatTable() result is not valid YAML: %v", yamlErr)
	}

	if len(parsed.Data) != 2 {
		t.Fatalf("Expected 2 rows, got: %d", len(parsed.Data))
	}
	if parsed.Data[0]["name"] != "website" {
		t.Errorf("Expected name 'website', got: %v", parsed.Data[0]["name"])
	}
	if parsed.Data[1]["status"] != "archived" {
		t.Errorf("Expected status 'archived', got: %v", parsed.Data[1]["status"])
	}
}

func TestYAMLFormatter_FormatTable_MismatchedColumns(t *testing.T) {
	f := &YAMLFormatter{}

	headers := []string{"a", "b", "c"}
	rows := [][]string{
		{"1", "2"}, // missing column c
	}

	result, err := f.FormatTable(headers, rows)
	if err != nil {
		t.Fatalf("FormatTable() error = %v", err)
	}

	var parsed struct {
		Data []map[string]string `yaml:"data"`
	}
	if yamlErr := yaml.Unmarshal([]byte(result), &parsed); yamlErr != nil {
		t.Fatalf("FormatTable() result is not valid YAML: %v", yamlErr)
	}

	if parsed.Data[0]["c"] != "" {
		t.Errorf("Expected empty string for missing column 'c', got: %q", parsed.Data[0]["c"])
	}
}
