package connection

import (
	"net/url"
	"sort"
	"strings"

	"github.com/nnnkkk7/sqlgateway/pkg/config"
	"github.com/nnnkkk7/sqlgateway/pkg/profile"
)

// Driver names understood by the gateway.
const (
	DriverPgx       = "pgx"
	DriverPostgres  = "postgres"
	DriverDuckDB    = "duckdb"
	DriverSnowflake = "snowflake"
)

// driverAliases maps JDBC class names and common spellings to a registered driver.
var driverAliases = map[string]string{
	"org.postgresql.driver":                     DriverPostgres,
	"postgresql":                                DriverPostgres,
	"org.duckdb.duckdbdriver":                   DriverDuckDB,
	"net.snowflake.client.jdbc.snowflakedriver": DriverSnowflake,
}

// ResolveDriverName normalizes a configured driver name.
func ResolveDriverName(name string) string {
	name = strings.TrimSpace(name)
	if alias, ok := driverAliases[strings.ToLower(name)]; ok {
		return alias
	}
	return name
}

// NormalizeURL strips a JDBC "jdbc:" prefix. DuckDB additionally drops its
// subprotocol so "jdbc:duckdb:" opens an in-memory database.
func NormalizeURL(driverName, rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if len(u) >= 5 && strings.EqualFold(u[:5], "jdbc:") {
		u = u[5:]
	}
	if driverName == DriverDuckDB && len(u) >= 7 && strings.EqualFold(u[:7], "duckdb:") {
		u = u[7:]
	}
	return u
}

// BuildDSN renders the data source name for a database/sql driver. When both user and
// password are configured they are the only extra parameters; otherwise every setting
// other than driver and url is passed to the driver.
func BuildDSN(driverName string, p profile.Profile) string {
	dsn := NormalizeURL(driverName, p.URL)

	params := p.ExtraProperties()
	if p.HasCredentials() {
		params = map[string]string{
			config.UserKey:     p.User,
			config.PasswordKey: p.Password,
		}
	}
	if len(params) == 0 {
		return dsn
	}

	// Snowflake DSNs carry credentials as "user:password@account/...".
	if driverName == DriverSnowflake && p.HasCredentials() && !strings.Contains(dsn, "@") {
		return url.UserPassword(p.User, p.Password).String() + "@" + dsn
	}

	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		if p.HasCredentials() {
			u.User = url.UserPassword(p.User, p.Password)
			return u.String()
		}
		query := u.Query()
		for _, key := range sortedKeys(params) {
			query.Set(key, params[key])
		}
		u.RawQuery = query.Encode()
		return u.String()
	}

	values := url.Values{}
	for _, key := range sortedKeys(params) {
		values.Set(key, params[key])
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + values.Encode()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
