package pool

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/nnnkkk7/sqlgateway/pkg/connection/conntest"
	"github.com/nnnkkk7/sqlgateway/pkg/profile"
	"github.com/nnnkkk7/sqlgateway/server/apierror"
)

func setupPool(t *testing.T) (*Pool, *conntest.Opener) {
	t.Helper()

	profiles := profile.Load(map[string]string{
		"default.driver":   "duckdb",
		"default.url":      "jdbc:duckdb:",
		"reporting.driver": "duckdb",
		"reporting.url":    "jdbc:duckdb:",
		"broken.driver":    "duckdb",
	}, nil)
	opener := &conntest.Opener{}
	p := New(profiles, opener, nil)
	t.Cleanup(func() { _ = p.Close() })
	return p, opener
}

func TestPool_AcquireOpensNewConnection(t *testing.T) {
	p, opener := setupPool(t)

	conn, err := p.Acquire(context.Background(), "default")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if len(opener.Opened()) != 1 || conn != opener.Opened()[0] {
		t.Fatalf("expected one newly opened connection, got %d", len(opener.Opened()))
	}
}

func TestPool_AcquireIsLIFO(t *testing.T) {
	p, _ := setupPool(t)
	ctx := context.Background()

	first, _ := p.Acquire(ctx, "default")
	second, _ := p.Acquire(ctx, "default")
	p.Release("default", first)
	p.Release("default", second)

	if got := p.IdleCount("default"); got != 2 {
		t.Fatalf("IdleCount() = %d, want 2", got)
	}

	got, err := p.Acquire(ctx, "default")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if got != second {
		t.Errorf("Acquire() returned connection %d, want most recently released %d",
			got.(*conntest.Conn).ID, second.(*conntest.Conn).ID)
	}
}

func TestPool_AcquireDiscardsStaleConnections(t *testing.T) {
	p, opener := setupPool(t)
	ctx := context.Background()

	a, _ := p.Acquire(ctx, "default")
	b, _ := p.Acquire(ctx, "default")
	p.Release("default", a)
	p.Release("default", b)

	a.(*conntest.Conn).Kill()
	b.(*conntest.Conn).Kill()

	conn, err := p.Acquire(ctx, "default")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if conn == a || conn == b {
		t.Fatal("Acquire() returned a stale connection")
	}
	if len(opener.Opened()) != 3 {
		t.Errorf("opened %d connections, want 3", len(opener.Opened()))
	}
	for _, stale := range []*conntest.Conn{a.(*conntest.Conn), b.(*conntest.Conn)} {
		if stale.CloseCount() != 1 {
			t.Errorf("stale connection %d closed %d times, want 1", stale.ID, stale.CloseCount())
		}
	}
	if got := p.IdleCount("default"); got != 0 {
		t.Errorf("IdleCount() = %d, want 0", got)
	}
}

func TestPool_AcquireSkipsStaleKeepsLive(t *testing.T) {
	p, opener := setupPool(t)
	ctx := context.Background()

	live, _ := p.Acquire(ctx, "default")
	stale, _ := p.Acquire(ctx, "default")
	p.Release("default", live)
	p.Release("default", stale)
	stale.(*conntest.Conn).Kill()

	conn, err := p.Acquire(ctx, "default")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if conn != live {
		t.Error("expected the live idle connection after skipping the stale one")
	}
	if len(opener.Opened()) != 2 {
		t.Errorf("opened %d connections, want 2", len(opener.Opened()))
	}
}

func TestPool_ProfilesAreIsolated(t *testing.T) {
	p, _ := setupPool(t)
	ctx := context.Background()

	conn, _ := p.Acquire(ctx, "default")
	p.Release("default", conn)

	other, err := p.Acquire(ctx, "reporting")
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if other == conn {
		t.Fatal("a connection of one profile was handed to another")
	}
	if got := p.IdleCount("default"); got != 1 {
		t.Errorf("IdleCount(default) = %d, want 1", got)
	}
}

func TestPool_AcquireErrors(t *testing.T) {
	tests := []struct {
		name    string
		profile string
		openErr error
		want    error
	}{
		{"UnknownProfile", "missing", nil, apierror.ErrProfileNotFound},
		{"DroppedProfile", "broken", nil, apierror.ErrProfileNotFound},
		{"CommonProfile", "common", nil, apierror.ErrProfileNotFound},
		{"DriverUnavailable", "default", apierror.NewDriverUnavailableError("x"), apierror.ErrDriverUnavailable},
		{"ConnectionFailed", "default", apierror.WrapError(apierror.CodeConnectionFailed, errors.New("refused")), apierror.ErrConnectionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, opener := setupPool(t)
			opener.Err = tt.openErr

			_, err := p.Acquire(context.Background(), tt.profile)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Acquire() error = %v, want %v", err, tt.want)
			}
			if tt.openErr == nil && len(opener.Opened()) != 0 {
				t.Error("no connection must be opened for an unresolvable profile")
			}
		})
	}
}

func TestPool_ReleaseClosedConnection(t *testing.T) {
	p, _ := setupPool(t)

	conn, _ := p.Acquire(context.Background(), "default")
	conn.(*conntest.Conn).Kill()
	p.Release("default", conn)

	if got := p.IdleCount("default"); got != 0 {
		t.Errorf("IdleCount() = %d, want 0", got)
	}
	if conn.(*conntest.Conn).CloseCount() != 1 {
		t.Error("expected released dead connection to be closed")
	}
	p.Release("default", nil)
}

func TestPool_Close(t *testing.T) {
	p, opener := setupPool(t)
	ctx := context.Background()

	a, _ := p.Acquire(ctx, "default")
	b, _ := p.Acquire(ctx, "reporting")
	a.(*conntest.Conn).FailClose(errors.New("close failed"))
	p.Release("default", a)
	p.Release("reporting", b)

	err := p.Close()
	if err == nil {
		t.Fatal("expected joined close error")
	}
	if a.(*conntest.Conn).CloseCount() != 1 || b.(*conntest.Conn).CloseCount() != 1 {
		t.Error("every idle connection must be closed despite failures")
	}
	if !opener.Closed() {
		t.Error("expected drivers to be closed")
	}

	if err := p.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := p.Acquire(ctx, "default"); err == nil {
		t.Error("expected Acquire on a closed pool to fail")
	}

	late := conntest.NewConn(99, "default")
	p.Release("default", late)
	if late.CloseCount() != 1 {
		t.Error("connection released after Close must be closed")
	}
}

func TestPool_ConcurrentAcquireRelease(t *testing.T) {
	p, opener := setupPool(t)
	ctx := context.Background()

	const goroutines = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		held = make(map[*conntest.Conn]bool)
		dup  bool
	)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				conn, err := p.Acquire(ctx, "default")
				if err != nil {
					t.Errorf("Acquire() error = %v", err)
					return
				}
				c := conn.(*conntest.Conn)
				mu.Lock()
				if held[c] {
					dup = true
				}
				held[c] = true
				mu.Unlock()

				mu.Lock()
				delete(held, c)
				mu.Unlock()
				p.Release("default", conn)
			}
		}()
	}
	wg.Wait()

	if dup {
		t.Error("a connection was handed to two callers at once")
	}
	if got, opened := p.IdleCount("default"), len(opener.Opened()); got != opened {
		t.Errorf("IdleCount() = %d, want every opened connection (%d) back in the pool", got, opened)
	}
}
