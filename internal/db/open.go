package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured driver. Aliases such as "pgx" and
// "sqlite3" are accepted.
func Open(ctx context.Context, driver, dsn string, cfg PoolConfig) (*sql.DB, error) {
	switch NormalizeDriver(driver) {
	case DriverPostgres:
		return OpenPostgres(ctx, dsn, cfg)
	case DriverSQLite:
		return OpenSQLite(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q (expected postgres|sqlite)", driver)
	}
}

// Migrate runs idempotent DDL statements in order.
func Migrate(ctx context.Context, db *sql.DB, stmts ...string) error {
	for _, stmt := range stmts {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate at %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func NormalizeDriver(d string) string {
	switch strings.ToLower(strings.TrimSpace(d)) {
	case "postgres", "postgresql", "pg", "pgx":
		return DriverPostgres
	case "sqlite", "sqlite3":
		return DriverSQLite
	default:
		return d
	}
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
