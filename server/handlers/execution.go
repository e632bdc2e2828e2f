// Package handlers provides HTTP handlers for the SQL gateway API.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nnnkkk7/sqlgateway/pkg/config"
	"github.com/nnnkkk7/sqlgateway/pkg/observability"
	"github.com/nnnkkk7/sqlgateway/pkg/profile"
	"github.com/nnnkkk7/sqlgateway/pkg/query"
	"github.com/nnnkkk7/sqlgateway/server/apierror"
	"github.com/nnnkkk7/sqlgateway/server/types"
)

// ExecutionHandler handles execution HTTP requests.
type ExecutionHandler struct {
	executor *query.Executor
	registry *query.Registry
	profiles *profile.Store
	logger   *slog.Logger
}

// NewExecutionHandler creates a new execution handler.
func NewExecutionHandler(executor *query.Executor, registry *query.Registry, profiles *profile.Store, logger *slog.Logger) *ExecutionHandler {
	return &ExecutionHandler{
		executor: executor,
		registry: registry,
		profiles: profiles,
		logger:   observability.OrNop(logger),
	}
}

// Routes mounts the execution API on r.
func (h *ExecutionHandler) Routes(r chi.Router) {
	r.Post("/executions", h.Execute)
	r.Get("/executions", h.ListExecutions)
	r.Post("/executions/{executionID}/cancel", h.Cancel)
	r.Delete("/executions/{executionID}", h.Release)
	r.Get("/profiles", h.ListProfiles)
}

// Execute handles POST /api/v1/executions.
func (h *ExecutionHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req types.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, apierror.NewInvalidParameterError("body", "malformed JSON"))
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		sendError(w, http.StatusBadRequest, apierror.NewInvalidParameterError("text", "required"))
		return
	}

	executionID := strings.TrimSpace(req.ExecutionID)
	if executionID == "" {
		executionID = uuid.NewString()
	}

	result := h.executor.Interpret(r.Context(), req.Text, executionID)
	writeJSON(w, http.StatusOK, newExecutionResponse(executionID, result))
}

// Cancel handles POST /api/v1/executions/{executionID}/cancel.
func (h *ExecutionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")

	writeJSON(w, http.StatusOK, types.CancelResponse{
		Success:     true,
		ExecutionID: executionID,
		Canceled:    h.registry.Cancel(executionID),
	})
}

// Release handles DELETE /api/v1/executions/{executionID}. A close failure is logged by
// the registry and does not fail the request.
func (h *ExecutionHandler) Release(w http.ResponseWriter, r *http.Request) {
	executionID := chi.URLParam(r, "executionID")

	if err := h.registry.Release(executionID); err != nil {
		h.logger.Debug("release finished with close failure",
			slog.String("execution_id", executionID),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, http.StatusOK, types.ReleaseResponse{Success: true, ExecutionID: executionID})
}

// ListExecutions handles GET /api/v1/executions.
func (h *ExecutionHandler) ListExecutions(w http.ResponseWriter, _ *http.Request) {
	infos := h.registry.Bindings()

	bindings := make([]types.BindingResponse, 0, len(infos))
	for _, info := range infos {
		bindings = append(bindings, types.BindingResponse{
			ExecutionID: info.ExecutionID,
			Profile:     info.ProfileKey,
			BoundOn:     info.BoundAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, types.BindingListResponse{Success: true, Bindings: bindings})
}

// ListProfiles handles GET /api/v1/profiles.
func (h *ExecutionHandler) ListProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.ProfileListResponse{
		Success:  true,
		Profiles: h.profiles.Keys(),
		MaxRows:  h.profiles.MaxRows(),
	})
}

// newExecutionResponse converts an execution result into its API form. Table
// messages are also decoded into columns and rows.
func newExecutionResponse(executionID string, result *query.ExecutionResult) types.ExecutionResponse {
	resp := types.ExecutionResponse{
		Success:     result.Succeeded(),
		ExecutionID: executionID,
		Code:        string(result.Code),
		Type:        string(result.Type),
		Message:     result.Message,
	}

	if result.Error != nil {
		resp.Error = &types.ErrorInfo{Code: result.Error.Code, SQLState: result.Error.SQLState}
		return resp
	}

	if result.Type == config.ResponseTypeTable {
		if columns, rows, ok := query.SplitTable(result.Message); ok {
			resp.Data = &types.ExecutionData{
				Columns:  columns,
				RowSet:   rows,
				Returned: int64(len(rows)),
			}
		}
	}
	return resp
}

// sendError writes an error response.
func sendError(w http.ResponseWriter, status int, err *apierror.Error) {
	writeJSON(w, status, err.ToResponse())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
