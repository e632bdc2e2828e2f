package connection

import (
	"context"
	"database/sql"
	"errors"
	"slices"

	"github.com/nnnkkk7/sqlgateway/pkg/profile"
	"github.com/nnnkkk7/sqlgateway/server/apierror"
)

// Drivers dispatches a profile to the family that can open it.
type Drivers struct {
	sql *SQLFamily
	pgx *PgxFamily
}

// NewDrivers creates the driver dispatcher with every built-in family.
func NewDrivers() *Drivers {
	return &Drivers{
		sql: NewSQLFamily(),
		pgx: NewPgxFamily(),
	}
}

// Family returns the family that handles driverName.
func (d *Drivers) Family(driverName string) (Family, error) {
	name := ResolveDriverName(driverName)
	if name == DriverPostgres {
		return d.pgx, nil
	}
	if name != "" && slices.Contains(sql.Drivers(), name) {
		return d.sql, nil
	}
	return nil, apierror.NewDriverUnavailableError(driverName)
}

// Open opens a new connection for p. Errors are DriverUnavailable or ConnectionFailed.
func (d *Drivers) Open(ctx context.Context, p profile.Profile) (Conn, error) {
	family, err := d.Family(p.Driver)
	if err != nil {
		return nil, err
	}
	conn, err := family.Open(ctx, p)
	if err != nil {
		var apiErr *apierror.Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, apierror.WrapError(apierror.CodeConnectionFailed, err).WithData("profile", p.Key)
	}
	return conn, nil
}

// Close releases the driver handles of every family.
func (d *Drivers) Close() error {
	return errors.Join(d.sql.Close(), d.pgx.Close())
}
