package connection

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	// Drivers reachable through database/sql.
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/nnnkkk7/sqlgateway/pkg/classifier"
	"github.com/nnnkkk7/sqlgateway/pkg/profile"
)

// SQLFamily opens connections through database/sql.
//
// Each profile gets one *sql.DB that only acts as the loaded driver handle: idle
// pooling is disabled, so closing a Conn closes the underlying driver connection and
// the gateway's own pool decides what stays open.
type SQLFamily struct {
	mu      sync.Mutex
	handles map[string]*sql.DB
	closed  bool
}

// NewSQLFamily creates an empty database/sql family.
func NewSQLFamily() *SQLFamily {
	return &SQLFamily{handles: make(map[string]*sql.DB)}
}

// Open opens a dedicated connection for the profile.
func (f *SQLFamily) Open(ctx context.Context, p profile.Profile) (Conn, error) {
	db, err := f.handle(p)
	if err != nil {
		return nil, err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", p.Key, err)
	}
	return &sqlConn{conn: conn}, nil
}

func (f *SQLFamily) handle(p profile.Profile) (*sql.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, errors.New("driver family is closed")
	}
	if db, ok := f.handles[p.Key]; ok {
		return db, nil
	}

	driverName := ResolveDriverName(p.Driver)
	db, err := sql.Open(driverName, BuildDSN(driverName, p))
	if err != nil {
		return nil, fmt.Errorf("load driver %s: %w", driverName, err)
	}
	db.SetMaxIdleConns(0)
	f.handles[p.Key] = db
	return db, nil
}

// Close closes every driver handle. Connections already handed out stay usable
// until they are closed.
func (f *SQLFamily) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	var errs []error
	for key, db := range f.handles {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s handle: %w", key, err))
		}
		delete(f.handles, key)
	}
	return errors.Join(errs...)
}

type sqlConn struct {
	conn *sql.Conn
}

func (c *sqlConn) NewStatement(ctx context.Context) (Statement, error) {
	if c.Status(ctx) == StatusClosed {
		return nil, ErrConnClosed
	}
	return &sqlStatement{conn: c.conn}, nil
}

// Status asks the driver connection whether it is still valid without a round trip.
func (c *sqlConn) Status(_ context.Context) Status {
	status := StatusUnknown
	err := c.conn.Raw(func(driverConn any) error {
		if v, ok := driverConn.(driver.Validator); ok {
			if v.IsValid() {
				status = StatusOpen
			} else {
				status = StatusClosed
			}
		}
		return nil
	})
	if errors.Is(err, sql.ErrConnDone) || errors.Is(err, driver.ErrBadConn) {
		return StatusClosed
	}
	return status
}

func (c *sqlConn) Close() error {
	err := c.conn.Close()
	if errors.Is(err, sql.ErrConnDone) {
		return nil
	}
	return err
}

type sqlStatement struct {
	conn *sql.Conn

	mu       sync.Mutex
	maxRows  int
	cancel   context.CancelFunc
	canceled bool
	closed   bool
	rows     *sql.Rows
}

func (s *sqlStatement) SetMaxRows(n int) {
	s.mu.Lock()
	s.maxRows = n
	s.mu.Unlock()
}

func (s *sqlStatement) Execute(ctx context.Context, query string) (Outcome, error) {
	execCtx, err := s.begin(ctx)
	if err != nil {
		return Outcome{}, err
	}

	if usesQuery(classifier.Classify(query)) {
		rows, err := s.conn.QueryContext(execCtx, query)
		if err != nil {
			return Outcome{}, err
		}
		columns, err := rows.Columns()
		if err != nil {
			rows.Close()
			return Outcome{}, err
		}
		if len(columns) == 0 {
			rows.Close()
			if err := rows.Err(); err != nil {
				return Outcome{}, err
			}
			return Outcome{UpdateCount: -1}, nil
		}
		s.mu.Lock()
		s.rows = rows
		maxRows := s.maxRows
		s.mu.Unlock()
		return Outcome{Rows: newSQLCursor(rows, columns, maxRows)}, nil
	}

	result, err := s.conn.ExecContext(execCtx, query)
	if err != nil {
		return Outcome{}, err
	}
	count, err := result.RowsAffected()
	if err != nil {
		count = -1
	}
	return Outcome{UpdateCount: count}, nil
}

// usesQuery reports whether a statement runs through QueryContext. Only statements
// known not to return rows use ExecContext; anything unrecognized is queried and the
// driver's column list decides.
func usesQuery(c classifier.Result) bool {
	if c.ReturnsRows {
		return true
	}
	switch c.Type {
	case classifier.StatementTypeDML, classifier.StatementTypeDDL, classifier.StatementTypeTransaction:
		return false
	default:
		return true
	}
}

// begin installs a cancellable context for the next execution.
func (s *sqlStatement) begin(ctx context.Context) (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStatementClosed
	}
	if s.canceled {
		s.canceled = false
		return nil, context.Canceled
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
	execCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return execCtx, nil
}

func (s *sqlStatement) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrCancelUnsupported
	}
	if s.cancel == nil {
		s.canceled = true
		return nil
	}
	s.cancel()
	return nil
}

func (s *sqlStatement) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return StatusClosed
	}
	return StatusOpen
}

func (s *sqlStatement) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	var err error
	if s.rows != nil {
		err = s.rows.Close()
		s.rows = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return err
}

type sqlCursor struct {
	rows    *sql.Rows
	columns []string
	maxRows int
	seen    int
	values  []any
	dest    []any
	err     error
}

func newSQLCursor(rows *sql.Rows, columns []string, maxRows int) *sqlCursor {
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	return &sqlCursor{rows: rows, columns: columns, maxRows: maxRows, values: values, dest: dest}
}

func (c *sqlCursor) Columns() []string { return c.columns }

func (c *sqlCursor) Next() bool {
	if c.err != nil || (c.maxRows > 0 && c.seen >= c.maxRows) {
		return false
	}
	if !c.rows.Next() {
		return false
	}
	if err := c.rows.Scan(c.dest...); err != nil {
		c.err = err
		return false
	}
	c.seen++
	return true
}

func (c *sqlCursor) Values() []any { return c.values }

func (c *sqlCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *sqlCursor) Close() error { return c.rows.Close() }
