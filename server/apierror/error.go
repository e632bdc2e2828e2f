package apierror

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/snowflakedb/gosnowflake"
)

// Gateway error codes
const (
	// Resolution & Connection Errors (08xxxx)
	CodeProfileNotFound   = "080001"
	CodeDriverUnavailable = "080002"
	CodeConnectionFailed  = "080003"

	// Execution Errors (001xxx)
	CodeStatementError = "001007"

	// Soft Errors (logged only) (009xxx)
	CodeCancelUnsupported = "009001"
	CodeCloseFailure      = "009002"

	// System Errors (000xxx)
	CodeInternalError    = "000001"
	CodeInvalidParameter = "000002"
)

// SQLState represents SQL standard error states.
const (
	SQLStateSuccess                = "00000"
	SQLStateConnectionException    = "08000"
	SQLStateUnableToConnect        = "08001"
	SQLStateFeatureNotSupported    = "0A000"
	SQLStateInvalidCatalogName     = "3D000"
	SQLStateDataException          = "22000"
	SQLStateGeneralError           = "HY000"
	SQLStateOptionalNotImplemented = "HYC00"
)

// GetSQLState returns the SQL state for a given error code
func GetSQLState(code string) string {
	mapping := map[string]string{
		CodeProfileNotFound:   SQLStateInvalidCatalogName,
		CodeDriverUnavailable: SQLStateConnectionException,
		CodeConnectionFailed:  SQLStateUnableToConnect,
		CodeStatementError:    SQLStateDataException,
		CodeCancelUnsupported: SQLStateOptionalNotImplemented,
	}

	if state, ok := mapping[code]; ok {
		return state
	}
	return SQLStateGeneralError
}

// Error is a coded gateway error. Err keeps the driver error for errors.As.
type Error struct {
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	SQLState string                 `json:"sqlState,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Err      error                  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying driver error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON implements custom JSON marshaling.
func (e *Error) MarshalJSON() ([]byte, error) {
	type Alias Error
	return json.Marshal(&struct {
		*Alias
	}{
		Alias: (*Alias)(e),
	})
}

// WithData adds data to the error.
func (e *Error) WithData(key string, value interface{}) *Error {
	if e.Data == nil {
		e.Data = make(map[string]interface{})
	}
	e.Data[key] = value
	return e
}

// Is checks if this error matches another error by code.
func (e *Error) Is(target error) bool {
	var apiErr *Error
	if errors.As(target, &apiErr) {
		return e.Code == apiErr.Code
	}
	return false
}

// ErrorResponse represents the JSON response structure for errors.
type ErrorResponse struct {
	Success  bool                   `json:"success"`
	Message  string                 `json:"message"`
	Code     string                 `json:"code"`
	SQLState string                 `json:"sqlState,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// ToResponse converts the Error to an ErrorResponse.
func (e *Error) ToResponse() *ErrorResponse {
	data := make(map[string]interface{})
	for k, v := range e.Data {
		data[k] = v
	}

	return &ErrorResponse{
		Success:  false,
		Message:  e.Message,
		Code:     e.Code,
		SQLState: e.SQLState,
		Data:     data,
	}
}

// Sentinel values for errors.Is checks against a code.
var (
	ErrProfileNotFound   = &Error{Code: CodeProfileNotFound}
	ErrDriverUnavailable = &Error{Code: CodeDriverUnavailable}
	ErrConnectionFailed  = &Error{Code: CodeConnectionFailed}
	ErrStatementError    = &Error{Code: CodeStatementError}
	ErrCancelUnsupported = &Error{Code: CodeCancelUnsupported}
	ErrCloseFailure      = &Error{Code: CodeCloseFailure}
)

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		SQLState: GetSQLState(code),
		Data:     make(map[string]interface{}),
	}
}

// NewProfileNotFoundError creates a profile not found error.
func NewProfileNotFoundError(profileKey string) *Error {
	return &Error{
		Code:     CodeProfileNotFound,
		Message:  fmt.Sprintf("Profile not found: '%s'", profileKey),
		SQLState: SQLStateInvalidCatalogName,
		Data: map[string]interface{}{
			"profile": profileKey,
		},
	}
}

// NewDriverUnavailableError creates an error for a driver that is not registered.
func NewDriverUnavailableError(driverName string) *Error {
	return &Error{
		Code:     CodeDriverUnavailable,
		Message:  fmt.Sprintf("Driver not available: '%s'", driverName),
		SQLState: SQLStateConnectionException,
		Data: map[string]interface{}{
			"driver": driverName,
		},
	}
}

// NewInvalidParameterError creates an invalid parameter error.
func NewInvalidParameterError(paramName, reason string) *Error {
	return &Error{
		Code:     CodeInvalidParameter,
		Message:  fmt.Sprintf("Invalid parameter '%s': %s", paramName, reason),
		SQLState: SQLStateGeneralError,
		Data: map[string]interface{}{
			"paramName": paramName,
		},
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string) *Error {
	return &Error{
		Code:     CodeInternalError,
		Message:  message,
		SQLState: SQLStateGeneralError,
		Data:     make(map[string]interface{}),
	}
}

// WrapError wraps a driver error. The message is the driver's own message and the
// SQL state is taken from the driver when it reports one.
func WrapError(code string, err error) *Error {
	return &Error{
		Code:     code,
		Message:  err.Error(),
		SQLState: sqlStateOf(code, err),
		Data:     make(map[string]interface{}),
		Err:      err,
	}
}

// FromError converts a standard error to an Error.
// If the error is already an Error, it returns it as-is.
// If the error is nil, it returns nil.
// Otherwise, it wraps it as an internal error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	return WrapError(CodeInternalError, err)
}

func sqlStateOf(code string, err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code != "" {
		return pgErr.Code
	}
	var sfErr *gosnowflake.SnowflakeError
	if errors.As(err, &sfErr) && sfErr.SQLState != "" {
		return sfErr.SQLState
	}
	return GetSQLState(code)
}
