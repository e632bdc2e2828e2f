// Package config provides configuration constants and service settings for the SQL gateway.
package config

// Profile property keys.
const (
	CommonProfileKey  = "common"
	DefaultProfileKey = "default"

	DriverKey   = "driver"
	URLKey      = "url"
	UserKey     = "user"
	PasswordKey = "password"
	MaxCountKey = "max_count"

	KeySeparator = "."
)

// DefaultMaxRows is used when common.max_count is absent, unparsable or negative.
const DefaultMaxRows = 1000

// Result protocol markers.
const (
	TableMagicTag     = "%table "
	ExplainPredicate  = "EXPLAIN "
	UpdateCountHeader = "Update Count"
	EmptyColumnValue  = ""

	Tab     = '\t'
	Newline = '\n'
	Space   = ' '
)

// ResponseType is the rendering shape of an execution result.
type ResponseType string

// Response types.
const (
	ResponseTypeTable ResponseType = "TABLE"
	ResponseTypeText  ResponseType = "TEXT"
)

// ResultCode is the outcome of an execution.
type ResultCode string

// Result codes.
const (
	ResultCodeSuccess ResultCode = "SUCCESS"
	ResultCodeError   ResultCode = "ERROR"
)
