// Package types provides API request/response types for the SQL gateway.
package types

// Execution API Types

// ExecuteRequest is the body of POST /api/v1/executions. Text may start with a
// "(profile)" line selecting the connection profile.
type ExecuteRequest struct {
	ExecutionID string `json:"executionId,omitempty"`
	Text        string `json:"text"`
}

type ExecutionResponse struct {
	Success     bool           `json:"success"`
	ExecutionID string         `json:"executionId"`
	Code        string         `json:"code"`
	Type        string         `json:"type"`
	Message     string         `json:"message"`
	Data        *ExecutionData `json:"data,omitempty"`
	Error       *ErrorInfo     `json:"error,omitempty"`
}

// ExecutionData is the decoded form of a table message.
type ExecutionData struct {
	Columns  []string   `json:"columns"`
	RowSet   [][]string `json:"rowset"`
	Returned int64      `json:"returned"`
}

// ErrorInfo carries the gateway error code of a failed execution.
type ErrorInfo struct {
	Code     string `json:"code"`
	SQLState string `json:"sqlState,omitempty"`
}

type CancelResponse struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"executionId"`
	Canceled    bool   `json:"canceled"`
}

type ReleaseResponse struct {
	Success     bool   `json:"success"`
	ExecutionID string `json:"executionId"`
}

// Binding API Types

type BindingResponse struct {
	ExecutionID string `json:"executionId"`
	Profile     string `json:"profile"`
	BoundOn     string `json:"boundOn"`
}

type BindingListResponse struct {
	Success  bool              `json:"success"`
	Bindings []BindingResponse `json:"bindings"`
}

// Profile API Types

type ProfileListResponse struct {
	Success  bool     `json:"success"`
	Profiles []string `json:"profiles"`
	MaxRows  int      `json:"maxRows"`
}
