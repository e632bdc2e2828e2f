package connection

import (
	"context"
	"errors"
	"testing"

	"github.com/nnnkkk7/sqlgateway/server/apierror"
)

func TestDrivers_Family(t *testing.T) {
	drivers := NewDrivers()
	t.Cleanup(func() { _ = drivers.Close() })

	tests := []struct {
		driver  string
		wantPgx bool
		wantErr bool
	}{
		{driver: "duckdb"},
		{driver: "org.duckdb.DuckDBDriver"},
		{driver: "snowflake"},
		{driver: "net.snowflake.client.jdbc.SnowflakeDriver"},
		{driver: "pgx"},
		{driver: "postgres", wantPgx: true},
		{driver: "org.postgresql.Driver", wantPgx: true},
		{driver: "org.h2.Driver", wantErr: true},
		{driver: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			family, err := drivers.Family(tt.driver)
			if tt.wantErr {
				if !errors.Is(err, apierror.ErrDriverUnavailable) {
					t.Fatalf("Family() error = %v, want DriverUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Family() error = %v", err)
			}
			_, isPgx := family.(*PgxFamily)
			if isPgx != tt.wantPgx {
				t.Errorf("Family() = %T, wantPgx %v", family, tt.wantPgx)
			}
		})
	}
}

func TestDrivers_OpenErrors(t *testing.T) {
	drivers := NewDrivers()
	t.Cleanup(func() { _ = drivers.Close() })

	t.Run("DriverUnavailable", func(t *testing.T) {
		p := newProfile(t, "h2", map[string]string{"driver": "org.h2.Driver", "url": "jdbc:h2:mem:test"})
		_, err := drivers.Open(context.Background(), p)
		if !errors.Is(err, apierror.ErrDriverUnavailable) {
			t.Fatalf("Open() error = %v, want DriverUnavailable", err)
		}
	})

	t.Run("ConnectionFailed", func(t *testing.T) {
		p := newProfile(t, "broken", map[string]string{"driver": "postgres", "url": "postgres://db:notaport/app"})
		_, err := drivers.Open(context.Background(), p)
		if !errors.Is(err, apierror.ErrConnectionFailed) {
			t.Fatalf("Open() error = %v, want ConnectionFailed", err)
		}
	})
}

func TestStatus(t *testing.T) {
	tests := []struct {
		status Status
		usable bool
		name   string
	}{
		{StatusOpen, true, "open"},
		{StatusUnknown, true, "unknown"},
		{StatusClosed, false, "closed"},
	}

	for _, tt := range tests {
		if tt.status.Usable() != tt.usable {
			t.Errorf("%v.Usable() = %v, want %v", tt.status, tt.status.Usable(), tt.usable)
		}
		if tt.status.String() != tt.name {
			t.Errorf("String() = %q, want %q", tt.status.String(), tt.name)
		}
	}
}
