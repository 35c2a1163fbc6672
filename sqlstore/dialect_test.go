package sqlstore

import (
	"strings"
	"testing"
)

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		query   string
		want    string
	}{
		{
			name:    "postgres numbers placeholders",
			dialect: DialectPostgres,
			query:   "SELECT a FROM t WHERE x = ? AND y = ?",
			want:    "SELECT a FROM t WHERE x = $1 AND y = $2",
		},
		{
			name:    "sqlite keeps question marks",
			dialect: DialectSQLite,
			query:   "SELECT a FROM t WHERE x = ? AND y = ?",
			want:    "SELECT a FROM t WHERE x = ? AND y = ?",
		},
		{
			name:    "mysql keeps question marks",
			dialect: DialectMySQL,
			query:   "INSERT INTO t VALUES (?, ?, ?)",
			want:    "INSERT INTO t VALUES (?, ?, ?)",
		},
		{
			name:    "no placeholders",
			dialect: DialectPostgres,
			query:   "SELECT 1",
			want:    "SELECT 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.dialect.rebind(tt.query); got != tt.want {
				t.Errorf("rebind(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}

func TestForUpdate(t *testing.T) {
	if got := DialectSQLite.forUpdate(); got != "" {
		t.Errorf("sqlite forUpdate() = %q, want empty", got)
	}
	for _, d := range []Dialect{DialectPostgres, DialectMySQL} {
		if got := d.forUpdate(); got != " FOR UPDATE" {
			t.Errorf("%s forUpdate() = %q, want \" FOR UPDATE\"", d, got)
		}
	}
}

func TestUpsertStatements(t *testing.T) {
	if q := DialectMySQL.upsertAppState(); !strings.Contains(q, "ON DUPLICATE KEY UPDATE") {
		t.Errorf("mysql app upsert missing ON DUPLICATE KEY UPDATE: %s", q)
	}
	if q := DialectPostgres.upsertUserState(); !strings.Contains(q, "ON CONFLICT") {
		t.Errorf("postgres user upsert missing ON CONFLICT: %s", q)
	}
}

func TestDialectFrom(t *testing.T) {
	if _, err := dialectFrom("oracle"); err == nil {
		t.Error("dialectFrom(oracle) error = nil, want error")
	}
	d, err := dialectFrom("postgres")
	if err != nil {
		t.Fatalf("dialectFrom(postgres) error = %v", err)
	}
	if d.driverName() != "pgx" {
		t.Errorf("driverName() = %q, want pgx", d.driverName())
	}
}
