package output

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormatter_Format_Envelope(t *testing.T) {
	f := &JSONFormatter{Indent: true}

	result, err := f.Format(map[string]string{"name": "api-server"})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(result), &parsed); jsonErr != nil {
		t.Fatalf("Format() result is not valid JSON: %v", jsonErr)
	}

	if parsed["ok"] != true {
		t.Errorf("Expected ok=true, got: %v", parsed["ok"])
	}
	data, ok := parsed["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object, got: %T", parsed["data"])
	}
	if data["name"] != "api-server" {
		t.Errorf("Expected data.name 'api-server', got: %v", data["name"])
	}
}

func TestJSONFormatter_Format_PageNotDoubleWrapped(t *testing.T) {
	f := &JSONFormatter{Indent: false}

	env := Page([]string{"a", "b"}, NewMeta(10, 2, 0, 2))
	result, err := f.Format(env)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(result), &parsed); jsonErr != nil {
		t.Fatalf("Format() result is not valid JSON: %v", jsonErr)
	}

	if _, nested := parsed["data"].(map[string]interface{}); nested {
		t.Errorf("Envelope was wrapped a second time: %s", result)
	}
	meta, ok := parsed["meta"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected meta object, got: %T", parsed["meta"])
	}
	if meta["total_count"] != float64(10) {
		t.Errorf("Expected meta.total_count 10, got: %v", meta["total_count"])
	}
	if meta["next_offset"] != float64(2) {
		t.Errorf("Expected meta.next_offset 2, got: %v", meta["next_offset"])
	}
}

func TestJSONFormatter_Format_Indentation(t *testing.T) {
	data := map[string]string{"key": "value"}

	fIndent := &JSONFormatter{Indent: true}
	resultIndent, err := fIndent.Format(data)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if !strings.Contains(resultIndent, "\n") {
		t.Error("Expected indented output but got compact")
	}

	fCompact := &JSONFormatter{Indent: false}
	resultCompact, err := fCompact.Format(data)
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if resultCompact != `{"ok":true,"data":{"key":"value"}}` {
		t.Errorf("Expected compact envelope, got: %s", resultCompact)
	}
}

func TestJSONFormatter_FormatError(t *testing.T) {
	f := &JSONFormatter{Indent: true}

	err := StructuredError{
		Code:            "VALIDATION_ERROR",
		Message:         "unknown activity \"Designn\"",
		Guidance:        "Known activities: Design, Development",
		RecoveryCommand: "rdm time activities --refresh",
		Context:         map[string]interface{}{"valid_names": []string{"Design", "Development"}},
		RequestID:       "req-123",
	}

	result, formatErr := f.FormatError(err)
	if formatErr != nil {
		t.Fatalf("FormatError() error = %v", formatErr)
	}

	var parsed map[string]interface{}
	if jsonErr := json.Unmarshal([]byte(result), &parsed); jsonErr != nil {
		t.Fatalf("FormatError() result is not valid JSON: %v", jsonErr)
	}

	if parsed["ok"] != false {
		t.Errorf("Expected ok=false, got: %v", parsed["ok"])
	}
	if _, present := parsed["data"]; present {
		t.Error("Failure envelope should not carry a data field")
	}

	errObj, ok := parsed["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected error object, got: %T", parsed["error"])
	}
	if errObj["code"] != "VALIDATION_ERROR" {
		t.Errorf("Expected code 'VALIDATION_ERROR', got: %v", errObj["code"])
	}
	if errObj["guidance"] != "Known activities: Design, Development" {
		t.Errorf("Unexpected guidance: %v", errObj["guidance"])
	}
	if errObj["recovery_command"] != "rdm time activities --refresh" {
		t.Errorf("Unexpected recovery_command: %v", errObj["recovery_command"])
	}
	if errObj["request_id"] != "req-123" {
		t.Errorf("Unexpected request_id: %v", errObj["request_id"])
	}
}

func TestJSONFormatter_FormatTable(t *testing.T) {
	f := &JSONFormatter{Indent: true}

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
		OK   bool                `json:"ok"`
		Data []map[string]string `json:"data"`
	}
	if jsonErr := json.Unmarshal([]byte(result), &parsed); jsonErr != nil {
		t.Fatalf("FormatTable() result is not valid JSON: %v", jsonErr)
	}

	if !parsed.OK {
		t.Error("Expected ok=true")
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

func TestJSONFormatter_EmptyListKeepsDataField(t *testing.T) {
	f := &JSONFormatter{Indent: false}

	// An empty listing must render data as [] rather than dropping it,
	// so scripts can iterate without a presence check.
	result, err := f.Format([]string{})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if result != `{"ok":true,"data":[]}` {
		t.Errorf("Expected empty data array, got: %s", result)
	}

	resultTable, err := f.FormatTable([]string{"a", "b"}, [][]string{})
	if err != nil {
		t.Fatalf("FormatTable() error = %v", err)
	}
	if resultTable != `{"ok":true,"data":[]}` {
		t.Errorf("Expected empty data array for empty table, got: %s", resultTable)
	}
}

func TestJSONFormatter_SnakeCase(t *testing.T) {
	f := &JSONFormatter{Indent: false}

	err := StructuredError{
		Code:            "NETWORK_ERROR",
		Message:         "request failed",
		RecoveryCommand: "rdm ping",
	}

	result, formatErr := f.FormatError(err)
	if formatErr != nil {
		t.Fatalf("FormatError() error = %v", formatErr)
	}

	if !strings.Contains(result, `"recovery_command"`) {
		t.Errorf("Expected snake_case 'recovery_command' in output: %s", result)
	}
}
