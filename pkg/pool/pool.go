// Package pool keeps idle database connections per profile.
package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nnnkkk7/sqlgateway/pkg/connection"
	"github.com/nnnkkk7/sqlgateway/pkg/observability"
	"github.com/nnnkkk7/sqlgateway/pkg/profile"
	"github.com/nnnkkk7/sqlgateway/server/apierror"
)

// Resolver looks up connection profiles.
type Resolver interface {
	Resolve(key string) (profile.Profile, error)
}

// Opener opens new connections for a profile.
type Opener interface {
	Open(ctx context.Context, p profile.Profile) (connection.Conn, error)
	Close() error
}

// Pool holds idle connections per profile and opens new ones on demand.
//
// Idle connections are only checked when they are taken out again; a connection
// that died while idle is closed and skipped at that point.
type Pool struct {
	profiles Resolver
	opener   Opener
	logger   *slog.Logger

	mu     sync.Mutex
	idle   map[string][]connection.Conn
	closed bool
}

// New creates an empty pool.
func New(profiles Resolver, opener Opener, logger *slog.Logger) *Pool {
	return &Pool{
		profiles: profiles,
		opener:   opener,
		logger:   observability.OrNop(logger),
		idle:     make(map[string][]connection.Conn),
	}
}

// Acquire returns a usable connection for profileKey: the most recently released idle
// connection that is still open, or a newly opened one. Failures are ProfileNotFound,
// DriverUnavailable or ConnectionFailed and are never retried.
func (p *Pool) Acquire(ctx context.Context, profileKey string) (connection.Conn, error) {
	for {
		conn, ok, err := p.pop(profileKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if conn.Status(ctx).Usable() {
			return conn, nil
		}
		p.discard(profileKey, conn)
	}

	prof, err := p.profiles.Resolve(profileKey)
	if err != nil {
		return nil, err
	}
	conn, err := p.opener.Open(ctx, prof)
	if err != nil {
		return nil, err
	}
	observability.ObserveConnectionOpened(profileKey)
	p.logger.Debug("connection opened", slog.String("profile", profileKey))
	return conn, nil
}

func (p *Pool) pop(profileKey string) (connection.Conn, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, false, apierror.New(apierror.CodeConnectionFailed, "connection pool is closed")
	}
	conns := p.idle[profileKey]
	if len(conns) == 0 {
		return nil, false, nil
	}
	conn := conns[len(conns)-1]
	conns[len(conns)-1] = nil
	p.idle[profileKey] = conns[:len(conns)-1]
	observability.SetIdleConnections(profileKey, len(p.idle[profileKey]))
	return conn, true, nil
}

func (p *Pool) discard(profileKey string, conn connection.Conn) {
	observability.ObserveConnectionDiscarded(profileKey)
	if err := conn.Close(); err != nil {
		p.logger.Debug("closing stale connection failed",
			slog.String("profile", profileKey),
			slog.String("error", err.Error()),
		)
	}
	p.logger.Info("discarded stale idle connection", slog.String("profile", profileKey))
}

// Release returns conn to the idle list of profileKey. Closed connections, and any
// connection released after Close, are closed instead.
func (p *Pool) Release(profileKey string, conn connection.Conn) {
	if conn == nil {
		return
	}
	if !conn.Status(context.Background()).Usable() {
		_ = conn.Close()
		return
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = conn.Close()
		return
	}
	p.idle[profileKey] = append(p.idle[profileKey], conn)
	observability.SetIdleConnections(profileKey, len(p.idle[profileKey]))
	p.mu.Unlock()
}

// IdleCount returns the number of idle connections held for profileKey.
func (p *Pool) IdleCount(profileKey string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle[profileKey])
}

// Close closes every idle connection and the driver handles. Every close is
// attempted; the failures are joined. Calling Close again is a no-op.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = make(map[string][]connection.Conn)
	p.mu.Unlock()

	var errs []error
	for profileKey, conns := range idle {
		for _, conn := range conns {
			if err := conn.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close idle %s connection: %w", profileKey, err))
			}
		}
		observability.SetIdleConnections(profileKey, 0)
	}
	if err := p.opener.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close drivers: %w", err))
	}
	return errors.Join(errs...)
}
