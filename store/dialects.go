package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// OpenMySQL opens a MySQL-backed ContinuationStore. dsn follows
// database/sql's driver DSN form (e.g. "user:pass@tcp(host:3306)/dbname"),
// the same string pkg/pdo.BuildMySQLDSN produces from a parsed pdo.DSN.
func OpenMySQL(ctx context.Context, dsn string) (ContinuationStore, error) {
	return open(ctx, "mysql", dsn, dialect{
		name: "mysql",
		createTable: `CREATE TABLE IF NOT EXISTS continuum_states (
			` + "`key`" + ` VARCHAR(255) PRIMARY KEY,
			method_token INT NOT NULL,
			format VARCHAR(16) NOT NULL,
			data LONGBLOB NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		placeholder: func(int) string { return "?" },
	})
}

// OpenPostgres opens a PostgreSQL-backed ContinuationStore, dsn following
// database/sql's "key=value" libpq form, the same string
// pkg/pdo.BuildPostgreSQLDSN produces.
func OpenPostgres(ctx context.Context, dsn string) (ContinuationStore, error) {
	return open(ctx, "postgres", dsn, dialect{
		name: "postgres",
		createTable: `CREATE TABLE IF NOT EXISTS continuum_states (
			"key" TEXT PRIMARY KEY,
			method_token INTEGER NOT NULL,
			format TEXT NOT NULL,
			data BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	})
}

// OpenSQLite opens a SQLite-backed ContinuationStore. path is a filesystem
// path or ":memory:", the same value pkg/pdo.BuildSQLiteDSN expects before
// it rewrites ":memory:" to the shared-cache DSN string.
func OpenSQLite(ctx context.Context, path string) (ContinuationStore, error) {
	dsn := path
	if path == "" || path == ":memory:" {
		dsn = "file::memory:?mode=memory&cache=shared"
	}
	return open(ctx, "sqlite", dsn, dialect{
		name: "sqlite",
		createTable: `CREATE TABLE IF NOT EXISTS continuum_states (
			key TEXT PRIMARY KEY,
			method_token INTEGER NOT NULL,
			format TEXT NOT NULL,
			data BLOB NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		placeholder: func(int) string { return "?" },
	})
}

func open(ctx context.Context, driverName, dsn string, d dialect) (ContinuationStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", driverName, err)
	}
	if _, err := db.ExecContext(ctx, d.createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create table: %w", err)
	}
	return &sqlStore{db: db, dialect: d}, nil
}

// OpenByDSN dispatches to OpenMySQL/OpenPostgres/OpenSQLite by the DSN's
// driver prefix ("mysql:", "pgsql:"/"postgres:", "sqlite:"), mirroring
// pkg/pdo.ParseDSN's driver-prefix dispatch without carrying over PDO's
// general-purpose query/statement machinery — this package only ever needs
// to round-trip one table.
func OpenByDSN(ctx context.Context, dsn string) (ContinuationStore, error) {
	driver, rest, ok := splitDriverPrefix(dsn)
	if !ok {
		return nil, fmt.Errorf("store: invalid DSN %q: missing driver prefix", dsn)
	}
	switch driver {
	case "mysql":
		return OpenMySQL(ctx, rest)
	case "pgsql", "postgres":
		return OpenPostgres(ctx, rest)
	case "sqlite":
		return OpenSQLite(ctx, rest)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}
}

func splitDriverPrefix(dsn string) (driver, rest string, ok bool) {
	for i := 0; i < len(dsn); i++ {
		if dsn[i] == ':' {
			return dsn[:i], dsn[i+1:], true
		}
	}
	return "", "", false
}
