// Package conntest provides in-memory connection fakes for tests.
package conntest

import (
	"context"
	"sync"

	"github.com/nnnkkk7/sqlgateway/pkg/connection"
	"github.com/nnnkkk7/sqlgateway/pkg/profile"
)

// Handler produces the outcome of a statement execution.
type Handler func(ctx context.Context, query string) (connection.Outcome, error)

// Conn is a fake connection.
type Conn struct {
	ID      int
	Profile string
	Handler Handler

	mu         sync.Mutex
	dead       bool
	closed     bool
	closeCount int
	closeErr   error
	stmtErr    error
	statements []*Statement
}

// NewConn creates an open fake connection.
func NewConn(id int, profileKey string) *Conn {
	return &Conn{ID: id, Profile: profileKey}
}

func (c *Conn) NewStatement(_ context.Context) (connection.Statement, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.dead {
		return nil, connection.ErrConnClosed
	}
	if err := c.stmtErr; err != nil {
		c.stmtErr = nil
		return nil, err
	}
	stmt := &Statement{conn: c}
	c.statements = append(c.statements, stmt)
	return stmt, nil
}

func (c *Conn) Status(_ context.Context) connection.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.dead {
		return connection.StatusClosed
	}
	return connection.StatusOpen
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closeCount++
	return c.closeErr
}

// Kill makes the connection report itself closed without Close being called,
// like a connection dropped by the server.
func (c *Conn) Kill() {
	c.mu.Lock()
	c.dead = true
	c.mu.Unlock()
}

// FailNextStatement makes the next NewStatement call return err.
func (c *Conn) FailNextStatement(err error) {
	c.mu.Lock()
	c.stmtErr = err
	c.mu.Unlock()
}

// FailClose makes Close return err.
func (c *Conn) FailClose(err error) {
	c.mu.Lock()
	c.closeErr = err
	c.mu.Unlock()
}

// CloseCount returns how many times Close was called.
func (c *Conn) CloseCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeCount
}

// Statements returns every statement created on the connection.
func (c *Conn) Statements() []*Statement {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Statement(nil), c.statements...)
}

// Statement is a fake statement.
type Statement struct {
	conn *Conn

	mu          sync.Mutex
	maxRows     int
	cancel      context.CancelFunc
	canceled    bool
	closed      bool
	cancelCount int
	closeErr    error
}

func (s *Statement) SetMaxRows(n int) {
	s.mu.Lock()
	s.maxRows = n
	s.mu.Unlock()
}

// MaxRows returns the last cap set.
func (s *Statement) MaxRows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxRows
}

func (s *Statement) Execute(ctx context.Context, query string) (connection.Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return connection.Outcome{}, connection.ErrStatementClosed
	}
	if s.canceled {
		s.canceled = false
		s.mu.Unlock()
		return connection.Outcome{}, context.Canceled
	}
	execCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	maxRows := s.maxRows
	s.mu.Unlock()

	handler := s.conn.Handler
	if handler == nil {
		return connection.Outcome{}, nil
	}
	outcome, err := handler(execCtx, query)
	if rows, ok := outcome.Rows.(*Rows); ok {
		rows.maxRows = maxRows
	}
	return outcome, err
}

func (s *Statement) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return connection.ErrCancelUnsupported
	}
	s.cancelCount++
	if s.cancel == nil {
		s.canceled = true
		return nil
	}
	s.cancel()
	return nil
}

// CancelCount returns how many times Cancel reached an open statement.
func (s *Statement) CancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelCount
}

func (s *Statement) Status() connection.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return connection.StatusClosed
	}
	return connection.StatusOpen
}

func (s *Statement) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	return s.closeErr
}

// FailClose makes Close return err.
func (s *Statement) FailClose(err error) {
	s.mu.Lock()
	s.closeErr = err
	s.mu.Unlock()
}

// Closed reports whether Close was called.
func (s *Statement) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Rows is a fake cursor over fixed values.
type Rows struct {
	columns []string
	rows    [][]any
	maxRows int
	pos     int
	err     error
	closed  bool
}

// NewRows creates a cursor over rows.
func NewRows(columns []string, rows ...[]any) *Rows {
	return &Rows{columns: columns, rows: rows, pos: -1}
}

// WithError makes Err return err once the rows are exhausted.
func (r *Rows) WithError(err error) *Rows {
	r.err = err
	return r
}

func (r *Rows) Columns() []string { return r.columns }

func (r *Rows) Next() bool {
	if r.closed || r.pos+1 >= len(r.rows) {
		return false
	}
	if r.maxRows > 0 && r.pos+1 >= r.maxRows {
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Values() []any { return r.rows[r.pos] }

func (r *Rows) Err() error { return r.err }

func (r *Rows) Close() error {
	r.closed = true
	return nil
}

// Closed reports whether Close was called.
func (r *Rows) Closed() bool { return r.closed }

// Opener is a fake connection opener.
type Opener struct {
	// Err, when set, is returned by Open.
	Err error
	// Handler is installed on every opened connection.
	Handler Handler

	mu     sync.Mutex
	opened []*Conn
	closed bool
}

func (o *Opener) Open(_ context.Context, p profile.Profile) (connection.Conn, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Err != nil {
		return nil, o.Err
	}
	conn := NewConn(len(o.opened)+1, p.Key)
	conn.Handler = o.Handler
	o.opened = append(o.opened, conn)
	return conn, nil
}

func (o *Opener) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

// Opened returns every connection opened so far.
func (o *Opener) Opened() []*Conn {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*Conn(nil), o.opened...)
}

// Closed reports whether Close was called.
func (o *Opener) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
