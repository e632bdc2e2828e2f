package connection

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nnnkkk7/sqlgateway/pkg/config"
	"github.com/nnnkkk7/sqlgateway/pkg/profile"
)

// cancelRequestTimeout bounds the side connection used to deliver a cancel request.
const cancelRequestTimeout = 5 * time.Second

// PgxFamily opens native PostgreSQL connections with pgx.
type PgxFamily struct{}

// NewPgxFamily creates the pgx family.
func NewPgxFamily() *PgxFamily {
	return &PgxFamily{}
}

// Open connects to PostgreSQL.
func (f *PgxFamily) Open(ctx context.Context, p profile.Profile) (Conn, error) {
	cfg, err := PgxConfig(p)
	if err != nil {
		return nil, err
	}
	conn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", p.Key, err)
	}
	return &pgxConn{conn: conn}, nil
}

// Close is a no-op; pgx connections hold no shared driver state.
func (f *PgxFamily) Close() error { return nil }

// PgxConfig parses the profile URL and applies credentials. Without both user and
// password, every extra setting becomes a runtime parameter, except user and password
// which map to their config fields.
func PgxConfig(p profile.Profile) (*pgx.ConnConfig, error) {
	cfg, err := pgx.ParseConfig(NormalizeURL(DriverPostgres, p.URL))
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", p.Key, err)
	}

	if p.HasCredentials() {
		cfg.User = p.User
		cfg.Password = p.Password
		return cfg, nil
	}

	for key, value := range p.ExtraProperties() {
		switch key {
		case config.UserKey:
			cfg.User = value
		case config.PasswordKey:
			cfg.Password = value
		default:
			cfg.RuntimeParams[key] = value
		}
	}
	return cfg, nil
}

type pgxConn struct {
	conn *pgx.Conn
}

func (c *pgxConn) NewStatement(_ context.Context) (Statement, error) {
	if c.conn.IsClosed() {
		return nil, ErrConnClosed
	}
	return &pgxStatement{conn: c.conn}, nil
}

func (c *pgxConn) Status(_ context.Context) Status {
	if c.conn.IsClosed() {
		return StatusClosed
	}
	return StatusOpen
}

func (c *pgxConn) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), cancelRequestTimeout)
	defer cancel()
	return c.conn.Close(ctx)
}

type pgxStatement struct {
	conn *pgx.Conn

	mu       sync.Mutex
	maxRows  int
	cancel   context.CancelFunc
	running  bool
	canceled bool
	closed   bool
	rows     pgx.Rows
}

func (s *pgxStatement) SetMaxRows(n int) {
	s.mu.Lock()
	s.maxRows = n
	s.mu.Unlock()
}

func (s *pgxStatement) Execute(ctx context.Context, query string) (Outcome, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Outcome{}, ErrStatementClosed
	}
	if s.canceled {
		s.canceled = false
		s.mu.Unlock()
		return Outcome{}, context.Canceled
	}
	execCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	maxRows := s.maxRows
	s.mu.Unlock()

	rows, err := s.conn.Query(execCtx, query)
	if err != nil {
		s.finish()
		return Outcome{}, err
	}

	fields := rows.FieldDescriptions()
	if len(fields) == 0 {
		rows.Close()
		s.finish()
		if err := rows.Err(); err != nil {
			return Outcome{}, err
		}
		return Outcome{UpdateCount: rows.CommandTag().RowsAffected()}, nil
	}

	columns := make([]string, len(fields))
	for i, fd := range fields {
		columns[i] = fd.Name
	}
	s.mu.Lock()
	s.rows = rows
	s.mu.Unlock()
	return Outcome{Rows: &pgxCursor{rows: rows, columns: columns, maxRows: maxRows, done: s.finish}}, nil
}

// finish marks the server side as idle so Cancel stops sending cancel requests.
func (s *pgxStatement) finish() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Cancel asks the server to stop the running query. The query then fails with
// SQLSTATE 57014 and the connection stays usable. The context is cancelled only
// when nothing is running or the cancel request could not be delivered, since
// pgx gives up on the connection once a query's context ends.
func (s *pgxStatement) Cancel() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrCancelUnsupported
	}
	if s.cancel == nil {
		s.canceled = true
		s.mu.Unlock()
		return nil
	}
	running, cancel := s.running, s.cancel
	s.mu.Unlock()

	if !running {
		cancel()
		return nil
	}
	ctx, stop := context.WithTimeout(context.Background(), cancelRequestTimeout)
	defer stop()
	if err := s.conn.PgConn().CancelRequest(ctx); err != nil {
		cancel()
		return err
	}
	return nil
}

func (s *pgxStatement) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.conn.IsClosed() {
		return StatusClosed
	}
	return StatusOpen
}

func (s *pgxStatement) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.rows != nil {
		s.rows.Close()
		s.rows = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return nil
}

type pgxCursor struct {
	rows    pgx.Rows
	columns []string
	maxRows int
	seen    int
	values  []any
	err     error
	done    func()
}

func (c *pgxCursor) Columns() []string { return c.columns }

func (c *pgxCursor) Next() bool {
	if c.err != nil || (c.maxRows > 0 && c.seen >= c.maxRows) {
		return false
	}
	if !c.rows.Next() {
		return false
	}
	values, err := c.rows.Values()
	if err != nil {
		c.err = err
		return false
	}
	c.values = values
	c.seen++
	return true
}

func (c *pgxCursor) Values() []any { return c.values }

func (c *pgxCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.rows.Err()
}

func (c *pgxCursor) Close() error {
	c.rows.Close()
	c.done()
	return nil
}
