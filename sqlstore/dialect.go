package sqlstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/koopa0/sessiondb/config"
)

// Dialect selects the SQL flavor for one engine family. All queries in
// this package are written with ? placeholders and rebound per dialect.
type Dialect string

const (
	DialectSQLite   Dialect = config.DialectSQLite
	DialectPostgres Dialect = config.DialectPostgres
	DialectMySQL    Dialect = config.DialectMySQL
)

func dialectFrom(name string) (Dialect, error) {
	switch name {
	case config.DialectSQLite, config.DialectPostgres, config.DialectMySQL:
		return Dialect(name), nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", name)
	}
}

// driverName returns the registered database/sql driver for the dialect.
func (d Dialect) driverName() string {
	switch d {
	case DialectPostgres:
		return "pgx"
	case DialectMySQL:
		return "mysql"
	default:
		return "sqlite"
	}
}

// rebind converts ? placeholders to the dialect's native form.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 1
	for _, c := range query {
		if c == '?' {
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			n++
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// forUpdate returns the row-locking clause appended to the session
// lookup inside a write transaction. SQLite has no FOR UPDATE; its
// writers are serialized by the immediate transaction lock instead.
func (d Dialect) forUpdate() string {
	if d == DialectSQLite {
		return ""
	}
	return " FOR UPDATE"
}

// upsertAppState is the insert-or-update statement for the app_states
// row. Parameters: app_name, state, update_time.
func (d Dialect) upsertAppState() string {
	switch d {
	case DialectMySQL:
		return `INSERT INTO app_states (app_name, state, update_time)
			VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE state = VALUES(state), update_time = VALUES(update_time)`
	default: // sqlite and postgres share ON CONFLICT
		return `INSERT INTO app_states (app_name, state, update_time)
			VALUES (?, ?, ?)
			ON CONFLICT (app_name) DO UPDATE SET state = excluded.state, update_time = excluded.update_time`
	}
}

// upsertUserState is the insert-or-update statement for the user_states
// row. Parameters: app_name, user_id, state, update_time.
func (d Dialect) upsertUserState() string {
	switch d {
	case DialectMySQL:
		return `INSERT INTO user_states (app_name, user_id, state, update_time)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE state = VALUES(state), update_time = VALUES(update_time)`
	default:
		return `INSERT INTO user_states (app_name, user_id, state, update_time)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (app_name, user_id) DO UPDATE SET state = excluded.state, update_time = excluded.update_time`
	}
}

// tableExists is the introspection query for one table name; it returns
// at most one row.
func (d Dialect) tableExists() string {
	switch d {
	case DialectPostgres:
		return `SELECT table_name FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = ?`
	case DialectMySQL:
		return `SELECT table_name FROM information_schema.tables
			WHERE table_schema = DATABASE() AND table_name = ?`
	default:
		return `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
}

// tableColumns is the introspection query listing a table's column
// names.
func (d Dialect) tableColumns() string {
	switch d {
	case DialectPostgres:
		return `SELECT column_name FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ?`
	case DialectMySQL:
		return `SELECT column_name FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?`
	default:
		return `SELECT name FROM pragma_table_info(?)`
	}
}
