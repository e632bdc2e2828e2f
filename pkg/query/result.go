// Package query runs SQL against connection profiles and renders the results.
package query

import (
	"github.com/nnnkkk7/sqlgateway/pkg/config"
	"github.com/nnnkkk7/sqlgateway/server/apierror"
)

// ExecutionResult is the typed outcome of one execution. Message holds the rendered
// payload on success and the driver message on failure.
type ExecutionResult struct {
	Code    config.ResultCode
	Type    config.ResponseType
	Message string
	Error   *apierror.Error
}

// Succeeded reports whether the execution completed without error.
func (r *ExecutionResult) Succeeded() bool {
	return r.Code == config.ResultCodeSuccess
}

func successResult(responseType config.ResponseType, message string) *ExecutionResult {
	return &ExecutionResult{
		Code:    config.ResultCodeSuccess,
		Type:    responseType,
		Message: message,
	}
}

func errorResult(err error) *ExecutionResult {
	apiErr := apierror.FromError(err)
	return &ExecutionResult{
		Code:    config.ResultCodeError,
		Type:    config.ResponseTypeText,
		Message: apiErr.Message,
		Error:   apiErr,
	}
}
