package types

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExecuteRequestJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ExecuteRequest
	}{
		{
			name:     "WithExecutionID",
			input:    `{"executionId":"p1","text":"(reporting)\nSELECT 1"}`,
			expected: ExecuteRequest{ExecutionID: "p1", Text: "(reporting)\nSELECT 1"},
		},
		{
			name:     "TextOnly",
			input:    `{"text":"SELECT 1"}`,
			expected: ExecuteRequest{Text: "SELECT 1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req ExecuteRequest
			if err := json.Unmarshal([]byte(tt.input), &req); err != nil {
				t.Fatalf("Failed to unmarshal ExecuteRequest: %v", err)
			}
			if diff := cmp.Diff(tt.expected, req); diff != "" {
				t.Errorf("ExecuteRequest mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecutionResponseJSON(t *testing.T) {
	resp := ExecutionResponse{
		Success:     true,
		ExecutionID: "p1",
		Code:        "SUCCESS",
		Type:        "TABLE",
		Message:     "%table \nA\n1\n",
		Data: &ExecutionData{
			Columns:  []string{"A"},
			RowSet:   [][]string{{"1"}},
			Returned: 1,
		},
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Failed to marshal ExecutionResponse: %v", err)
	}

	var decoded ExecutionResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal ExecutionResponse: %v", err)
	}
	if diff := cmp.Diff(resp, decoded); diff != "" {
		t.Errorf("ExecutionResponse mismatch (-want +got):\n%s", diff)
	}
}

func TestExecutionResponseOmitsEmptyParts(t *testing.T) {
	data, err := json.Marshal(ExecutionResponse{ExecutionID: "p1", Code: "ERROR", Type: "TEXT"})
	if err != nil {
		t.Fatalf("Failed to marshal ExecutionResponse: %v", err)
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	for _, key := range []string{"data", "error"} {
		if _, ok := fields[key]; ok {
			t.Errorf("expected %q to be omitted", key)
		}
	}
	if _, ok := fields["message"]; !ok {
		t.Error("expected message to be present even when empty")
	}
}
