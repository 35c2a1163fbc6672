package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migmysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migpgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migsqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/koopa0/sessiondb/session"
)

//go:embed migrations
var migrationsFS embed.FS

// SchemaVersion identifies the on-disk table layout the store runs
// against. Detection happens once at Open; a store never changes
// version while running.
type SchemaVersion int

const (
	// SchemaUnknown means detection has not run or failed.
	SchemaUnknown SchemaVersion = iota
	// SchemaLegacy is the wide-column layout: events carry one column
	// per field plus an opaque actions blob.
	SchemaLegacy
	// SchemaModern is the single-payload layout: events carry the whole
	// record as one JSON document plus a few indexed columns.
	SchemaModern
)

func (v SchemaVersion) String() string {
	switch v {
	case SchemaLegacy:
		return "legacy"
	case SchemaModern:
		return "modern"
	default:
		return "unknown"
	}
}

// detectSchema decides which layout an existing database uses, or
// reports that the database is empty and needs bootstrapping.
//
// Order matters: an explicit schema_metadata marker wins, then the
// shape of the events table, then emptiness. Anything else is a
// database this package does not own.
func detectSchema(ctx context.Context, db *sql.DB, dialect Dialect) (SchemaVersion, error) {
	hasMeta, err := tableExists(ctx, db, dialect, "schema_metadata")
	if err != nil {
		return SchemaUnknown, err
	}
	if hasMeta {
		var value string
		query := dialect.rebind(`SELECT meta_value FROM schema_metadata WHERE meta_key = ?`)
		err := db.QueryRowContext(ctx, query, "schema_version").Scan(&value)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return SchemaUnknown, fmt.Errorf("%w: schema_metadata has no schema_version row", session.ErrSchemaMismatch)
		case err != nil:
			return SchemaUnknown, translateErr(err)
		}
		switch value {
		case "1":
			return SchemaLegacy, nil
		case "2":
			return SchemaModern, nil
		default:
			return SchemaUnknown, fmt.Errorf("%w: unrecognized schema_version %q", session.ErrSchemaMismatch, value)
		}
	}

	hasEvents, err := tableExists(ctx, db, dialect, "events")
	if err != nil {
		return SchemaUnknown, err
	}
	if hasEvents {
		cols, err := tableColumns(ctx, db, dialect, "events")
		if err != nil {
			return SchemaUnknown, err
		}
		switch {
		case cols["event_json"]:
			return SchemaModern, nil
		case cols["actions"]:
			return SchemaLegacy, nil
		default:
			return SchemaUnknown, fmt.Errorf("%w: events table has neither event_json nor actions column", session.ErrSchemaMismatch)
		}
	}

	hasSessions, err := tableExists(ctx, db, dialect, "sessions")
	if err != nil {
		return SchemaUnknown, err
	}
	if hasSessions {
		return SchemaUnknown, fmt.Errorf("%w: sessions table present without events table", session.ErrSchemaMismatch)
	}

	// Empty database: the caller bootstraps the modern layout.
	return SchemaUnknown, nil
}

func tableExists(ctx context.Context, db *sql.DB, dialect Dialect, name string) (bool, error) {
	var found string
	err := db.QueryRowContext(ctx, dialect.rebind(dialect.tableExists()), name).Scan(&found)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, translateErr(err)
	}
	return true, nil
}

func tableColumns(ctx context.Context, db *sql.DB, dialect Dialect, name string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, dialect.rebind(dialect.tableColumns()), name)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, translateErr(err)
		}
		cols[col] = true
	}
	if err := rows.Err(); err != nil {
		return nil, translateErr(err)
	}
	return cols, nil
}

// bootstrapSchema creates the modern layout in an empty database by
// running the embedded migrations for the dialect. The final migration
// statement writes the schema_version marker, so a bootstrapped
// database detects as modern on every later open.
func bootstrapSchema(db *sql.DB, dialect Dialect, logger *slog.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	// The driver borrows the store's *sql.DB, so the migrator is never
	// Closed here: closing it would close the shared pool.
	var m *migrate.Migrate
	switch dialect {
	case DialectPostgres:
		driver, derr := migpgx.WithInstance(db, &migpgx.Config{})
		if derr != nil {
			return fmt.Errorf("migration driver: %w", translateErr(derr))
		}
		m, err = migrate.NewWithInstance("iofs", source, "pgx", driver)
	case DialectMySQL:
		driver, derr := migmysql.WithInstance(db, &migmysql.Config{})
		if derr != nil {
			return fmt.Errorf("migration driver: %w", translateErr(derr))
		}
		m, err = migrate.NewWithInstance("iofs", source, "mysql", driver)
	default:
		driver, derr := migsqlite.WithInstance(db, &migsqlite.Config{})
		if derr != nil {
			return fmt.Errorf("migration driver: %w", translateErr(derr))
		}
		m, err = migrate.NewWithInstance("iofs", source, "sqlite", driver)
	}
	if err != nil {
		return fmt.Errorf("create migrator: %w", translateErr(err))
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		version, dirty, verr := m.Version()
		if verr == nil && dirty {
			logger.Error("schema bootstrap left database dirty",
				"version", version,
				"hint", fmt.Sprintf("fix the schema and run: migrate force %d", version))
		}
		return fmt.Errorf("apply migrations: %w", translateErr(err))
	}

	logger.Info("schema bootstrapped", "dialect", string(dialect), "version", SchemaModern.String())
	return nil
}
