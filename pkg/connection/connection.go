// Package connection adapts database client libraries to the connection, statement and
// cursor capabilities the gateway needs.
package connection

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/nnnkkk7/sqlgateway/pkg/profile"
	"github.com/nnnkkk7/sqlgateway/server/apierror"
)

// Status is the result of a liveness check. StatusUnknown means the driver cannot
// tell; callers treat it as open.
type Status int

// Status values.
const (
	StatusUnknown Status = iota
	StatusOpen
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Usable reports whether a handle with this status may be used.
func (s Status) Usable() bool {
	return s != StatusClosed
}

// Conn is a single dedicated database connection.
type Conn interface {
	// NewStatement creates a statement bound to this connection.
	NewStatement(ctx context.Context) (Statement, error)
	Status(ctx context.Context) Status
	Close() error
}

// Statement runs one SQL text at a time and can be cancelled from another goroutine.
type Statement interface {
	// SetMaxRows caps the rows handed out by cursors of later executions. n < 1 means no cap.
	SetMaxRows(n int)
	Execute(ctx context.Context, query string) (Outcome, error)
	// Cancel signals the running execution. It never blocks on the execution itself.
	Cancel() error
	Status() Status
	Close() error
}

// Cursor iterates the rows of a row-producing execution.
type Cursor interface {
	Columns() []string
	Next() bool
	// Values returns the current row. It is valid until the next call to Next.
	Values() []any
	Err() error
	Close() error
}

// Outcome is the result of Statement.Execute: either Rows, or an UpdateCount
// (-1 when the driver cannot report it).
type Outcome struct {
	Rows        Cursor
	UpdateCount int64
}

// HasRows reports whether the execution produced a row set.
func (o Outcome) HasRows() bool {
	return o.Rows != nil
}

// Family opens connections through one client library.
type Family interface {
	Open(ctx context.Context, p profile.Profile) (Conn, error)
	Close() error
}

// Sentinel errors.
var (
	// ErrStatementClosed is returned when a closed statement is used.
	ErrStatementClosed = errors.New("statement is closed")
	// ErrConnClosed is returned when a statement is requested from a closed connection.
	ErrConnClosed = errors.New("connection is closed")
	// ErrCancelUnsupported is returned when a statement cannot be cancelled.
	ErrCancelUnsupported = apierror.New(apierror.CodeCancelUnsupported, "statement cannot be cancelled")
)

// IsClosedError reports whether err says a connection or statement is already closed.
func IsClosedError(err error) bool {
	return errors.Is(err, ErrStatementClosed) ||
		errors.Is(err, ErrConnClosed) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, driver.ErrBadConn)
}
