package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nnnkkk7/sqlgateway/pkg/connection"
	"github.com/nnnkkk7/sqlgateway/pkg/observability"
	"github.com/nnnkkk7/sqlgateway/server/apierror"
)

// ConnectionPool hands out and takes back connections per profile.
type ConnectionPool interface {
	Acquire(ctx context.Context, profileKey string) (connection.Conn, error)
	Release(profileKey string, conn connection.Conn)
	Close() error
}

// binding ties an execution identifier to the connection and statement serving it.
type binding struct {
	executionID string
	profileKey  string
	conn        connection.Conn
	stmt        connection.Statement
	boundAt     time.Time
}

// BindingInfo is a read-only view of a binding.
type BindingInfo struct {
	ExecutionID string
	ProfileKey  string
	BoundAt     time.Time
}

// Registry maps execution identifiers to their live connection and statement.
//
// A binding outlives the execution that created it: the next execution with the same
// identifier reuses its connection, and Cancel reaches its statement. Bindings are
// removed by Release or Shutdown.
type Registry struct {
	pool   ConnectionPool
	logger *slog.Logger

	mu       sync.Mutex
	bindings map[string]*binding
	shutdown bool
}

// NewRegistry creates an empty registry drawing connections from pool.
func NewRegistry(pool ConnectionPool, logger *slog.Logger) *Registry {
	return &Registry{
		pool:     pool,
		logger:   observability.OrNop(logger),
		bindings: make(map[string]*binding),
	}
}

// Bind returns a connection and a fresh statement for executionID.
//
// An existing binding keeps its connection when it is still open and belongs to the
// same profile; otherwise a connection is acquired from the pool. The previous
// statement of the binding is closed before it is replaced. If the new statement comes
// back closed, a fresh connection is acquired and statement creation is retried once.
func (r *Registry) Bind(ctx context.Context, executionID, profileKey string) (connection.Conn, connection.Statement, error) {
	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil, nil, apierror.New(apierror.CodeConnectionFailed, "execution registry is shut down")
	}
	existing := r.bindings[executionID]
	r.mu.Unlock()

	conn, err := r.connectionFor(ctx, existing, profileKey)
	if err != nil {
		r.remove(executionID, existing)
		return nil, nil, err
	}

	stmt, err := conn.NewStatement(ctx)
	if connection.IsClosedError(err) || (err == nil && stmt.Status() == connection.StatusClosed) {
		r.logger.Info("statement closed on creation, retrying on a fresh connection",
			slog.String("execution_id", executionID),
			slog.String("profile", profileKey),
		)
		if stmt != nil {
			r.closeQuietly("statement", executionID, stmt.Close)
		}
		r.closeQuietly("connection", executionID, conn.Close)

		conn, err = r.pool.Acquire(ctx, profileKey)
		if err != nil {
			r.remove(executionID, existing)
			return nil, nil, err
		}
		stmt, err = conn.NewStatement(ctx)
	}
	if err != nil {
		r.pool.Release(profileKey, conn)
		r.remove(executionID, existing)
		return nil, nil, apierror.WrapError(apierror.CodeStatementError, err)
	}

	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		r.closeQuietly("statement", executionID, stmt.Close)
		r.closeQuietly("connection", executionID, conn.Close)
		return nil, nil, apierror.New(apierror.CodeConnectionFailed, "execution registry is shut down")
	}
	r.bindings[executionID] = &binding{
		executionID: executionID,
		profileKey:  profileKey,
		conn:        conn,
		stmt:        stmt,
		boundAt:     time.Now(),
	}
	observability.SetActiveBindings(len(r.bindings))
	r.mu.Unlock()

	return conn, stmt, nil
}

// connectionFor closes the previous statement of existing and decides whether its
// connection can be reused for profileKey.
func (r *Registry) connectionFor(ctx context.Context, existing *binding, profileKey string) (connection.Conn, error) {
	if existing == nil {
		return r.pool.Acquire(ctx, profileKey)
	}

	if existing.stmt != nil {
		r.closeQuietly("statement", existing.executionID, existing.stmt.Close)
	}

	switch {
	case existing.profileKey != profileKey:
		r.pool.Release(existing.profileKey, existing.conn)
	case existing.conn.Status(ctx).Usable():
		return existing.conn, nil
	default:
		r.logger.Info("bound connection is closed, acquiring a fresh one",
			slog.String("execution_id", existing.executionID),
			slog.String("profile", profileKey),
		)
		r.closeQuietly("connection", existing.executionID, existing.conn.Close)
	}
	return r.pool.Acquire(ctx, profileKey)
}

// remove drops the binding of executionID if it is still the one Bind started from.
func (r *Registry) remove(executionID string, existing *binding) {
	if existing == nil {
		return
	}
	r.mu.Lock()
	if r.bindings[executionID] == existing {
		delete(r.bindings, executionID)
		observability.SetActiveBindings(len(r.bindings))
	}
	r.mu.Unlock()
}

// Cancel signals the statement bound to executionID. It reports whether a cancel was
// delivered; unknown identifiers and drivers that cannot cancel are not errors.
func (r *Registry) Cancel(executionID string) bool {
	r.mu.Lock()
	b, ok := r.bindings[executionID]
	var stmt connection.Statement
	if ok {
		stmt = b.stmt
	}
	r.mu.Unlock()

	if stmt == nil {
		observability.ObserveCancel(observability.CancelOutcomeNotBound)
		r.logger.Debug("cancel ignored, execution is not bound", slog.String("execution_id", executionID))
		return false
	}

	if err := stmt.Cancel(); err != nil {
		observability.ObserveCancel(observability.CancelOutcomeUnsupported)
		r.logger.Warn("cancel failed",
			slog.String("execution_id", executionID),
			slog.String("code", apierror.CodeCancelUnsupported),
			slog.String("error", err.Error()),
		)
		return false
	}

	observability.ObserveCancel(observability.CancelOutcomeSignaled)
	r.logger.Info("cancel signaled", slog.String("execution_id", executionID))
	return true
}

// Release closes the statement of executionID, returns its connection to the idle pool
// and removes the binding. Releasing an unknown identifier is a no-op.
func (r *Registry) Release(executionID string) error {
	r.mu.Lock()
	b, ok := r.bindings[executionID]
	if ok {
		delete(r.bindings, executionID)
		observability.SetActiveBindings(len(r.bindings))
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}

	var err error
	if b.stmt != nil {
		if closeErr := b.stmt.Close(); closeErr != nil {
			err = r.closeFailure("statement", executionID, closeErr)
		}
	}
	r.pool.Release(b.profileKey, b.conn)
	return err
}

// Shutdown closes every bound statement, then every bound connection, then the idle
// pool. Failures are logged and collected without stopping the remaining closes.
// Calling Shutdown again is a no-op.
func (r *Registry) Shutdown() error {
	r.mu.Lock()
	if r.shutdown {
		r.mu.Unlock()
		return nil
	}
	r.shutdown = true
	bindings := r.bindings
	r.bindings = make(map[string]*binding)
	observability.SetActiveBindings(0)
	r.mu.Unlock()

	var errs []error
	for id, b := range bindings {
		if b.stmt == nil {
			continue
		}
		if err := b.stmt.Close(); err != nil {
			errs = append(errs, r.closeFailure("statement", id, err))
		}
	}
	for id, b := range bindings {
		if err := b.conn.Close(); err != nil {
			errs = append(errs, r.closeFailure("connection", id, err))
		}
	}
	if err := r.pool.Close(); err != nil {
		errs = append(errs, r.closeFailure("idle pool", "", err))
	}

	r.logger.Info("execution registry shut down", slog.Int("bindings", len(bindings)))
	return errors.Join(errs...)
}

// Bindings returns the current bindings ordered by execution identifier.
func (r *Registry) Bindings() []BindingInfo {
	r.mu.Lock()
	infos := make([]BindingInfo, 0, len(r.bindings))
	for _, b := range r.bindings {
		infos = append(infos, BindingInfo{
			ExecutionID: b.executionID,
			ProfileKey:  b.profileKey,
			BoundAt:     b.boundAt,
		})
	}
	r.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ExecutionID < infos[j].ExecutionID })
	return infos
}

func (r *Registry) closeQuietly(what, executionID string, closeFn func() error) {
	if err := closeFn(); err != nil {
		_ = r.closeFailure(what, executionID, err)
	}
}

func (r *Registry) closeFailure(what, executionID string, err error) error {
	observability.ObserveCloseFailure()
	r.logger.Warn("close failed",
		slog.String("resource", what),
		slog.String("execution_id", executionID),
		slog.String("code", apierror.CodeCloseFailure),
		slog.String("error", err.Error()),
	)
	return apierror.WrapError(apierror.CodeCloseFailure, fmt.Errorf("close %s: %w", what, err))
}
