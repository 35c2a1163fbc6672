package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseSQLite(t *testing.T) {
	cfg, err := Parse("sqlite:///var/lib/app/sessions.db")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Dialect() != DialectSQLite {
		t.Errorf("Dialect() = %q, want %q", cfg.Dialect(), DialectSQLite)
	}
	dsn := cfg.DSN()
	if !strings.HasPrefix(dsn, "file:/var/lib/app/sessions.db?") {
		t.Errorf("DSN() = %q, want file:/var/lib/app/sessions.db?...", dsn)
	}
	for _, want := range []string{"foreign_keys%281%29", "busy_timeout%285000%29", "journal_mode%28WAL%29", "_txlock=immediate"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN() = %q, missing %q", dsn, want)
		}
	}
}

func TestParseSQLiteRelativePath(t *testing.T) {
	cfg, err := Parse("sqlite://sessions.db")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !strings.HasPrefix(cfg.DSN(), "file:sessions.db?") {
		t.Errorf("DSN() = %q, want file:sessions.db?...", cfg.DSN())
	}
}

func TestParsePostgres(t *testing.T) {
	cfg, err := Parse("postgresql://u:p@db:5432/sessions?sslmode=disable&pool_size=3")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Dialect() != DialectPostgres {
		t.Errorf("Dialect() = %q, want %q", cfg.Dialect(), DialectPostgres)
	}
	dsn := cfg.DSN()
	if !strings.HasPrefix(dsn, "postgres://u:p@db:5432/sessions") {
		t.Errorf("DSN() = %q, want postgres://u:p@db:5432/sessions...", dsn)
	}
	if strings.Contains(dsn, "pool_size") {
		t.Errorf("DSN() = %q, pool tuning must be stripped", dsn)
	}
	if !strings.Contains(dsn, "sslmode=disable") {
		t.Errorf("DSN() = %q, driver params must survive", dsn)
	}
	if cfg.PoolSize != 3 {
		t.Errorf("PoolSize = %d, want 3", cfg.PoolSize)
	}
}

func TestParseMySQL(t *testing.T) {
	cfg, err := Parse("mysql://u:p@db/sessions")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Dialect() != DialectMySQL {
		t.Errorf("Dialect() = %q, want %q", cfg.Dialect(), DialectMySQL)
	}
	dsn := cfg.DSN()
	if !strings.HasPrefix(dsn, "u:p@tcp(db:3306)/sessions?") {
		t.Errorf("DSN() = %q, want u:p@tcp(db:3306)/sessions?...", dsn)
	}
	for _, want := range []string{"parseTime=true", "multiStatements=true"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN() = %q, missing %q", dsn, want)
		}
	}
}

func TestParsePoolDefaults(t *testing.T) {
	cfg, err := Parse("sqlite://x.db")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.PoolSize != DefaultPoolSize {
		t.Errorf("PoolSize = %d, want %d", cfg.PoolSize, DefaultPoolSize)
	}
	if cfg.MaxOverflow != DefaultMaxOverflow {
		t.Errorf("MaxOverflow = %d, want %d", cfg.MaxOverflow, DefaultMaxOverflow)
	}
	if cfg.PoolTimeout != DefaultPoolTimeout {
		t.Errorf("PoolTimeout = %s, want %s", cfg.PoolTimeout, DefaultPoolTimeout)
	}
	if cfg.PoolRecycle != DefaultPoolRecycle {
		t.Errorf("PoolRecycle = %s, want %s", cfg.PoolRecycle, DefaultPoolRecycle)
	}
}

func TestParsePoolParams(t *testing.T) {
	cfg, err := Parse("sqlite://x.db?pool_size=2&max_overflow=1&pool_timeout=100ms&pool_recycle=60")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.PoolSize != 2 || cfg.MaxOverflow != 1 {
		t.Errorf("pool = %d+%d, want 2+1", cfg.PoolSize, cfg.MaxOverflow)
	}
	if cfg.PoolTimeout != 100*time.Millisecond {
		t.Errorf("PoolTimeout = %s, want 100ms", cfg.PoolTimeout)
	}
	// Bare integers are seconds.
	if cfg.PoolRecycle != 60*time.Second {
		t.Errorf("PoolRecycle = %s, want 60s", cfg.PoolRecycle)
	}
	if strings.Contains(cfg.DSN(), "pool_") {
		t.Errorf("DSN() = %q, pool tuning must be stripped", cfg.DSN())
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(""); !errors.Is(err, ErrMissingURL) {
		t.Errorf("Parse(\"\") error = %v, want ErrMissingURL", err)
	}
	if _, err := Parse("redis://host/0"); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("Parse(redis://) error = %v, want ErrUnsupportedScheme", err)
	}
	if _, err := Parse("sqlite://x.db?pool_size=zero"); err == nil {
		t.Error("Parse() with bad pool_size: error = nil, want error")
	}
	if _, err := Parse("sqlite://x.db?pool_timeout=-5s"); err == nil {
		t.Error("Parse() with negative pool_timeout: error = nil, want error")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("SESSIONDB_URL", "sqlite://env.db?pool_size=2")
	t.Setenv("SESSIONDB_POOL_SIZE", "7")
	t.Setenv("SESSIONDB_POOL_TIMEOUT", "250ms")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.Dialect() != DialectSQLite {
		t.Errorf("Dialect() = %q, want %q", cfg.Dialect(), DialectSQLite)
	}
	// Environment beats URL query.
	if cfg.PoolSize != 7 {
		t.Errorf("PoolSize = %d, want 7", cfg.PoolSize)
	}
	if cfg.PoolTimeout != 250*time.Millisecond {
		t.Errorf("PoolTimeout = %s, want 250ms", cfg.PoolTimeout)
	}
	// Unset overrides keep URL/default values.
	if cfg.MaxOverflow != DefaultMaxOverflow {
		t.Errorf("MaxOverflow = %d, want %d", cfg.MaxOverflow, DefaultMaxOverflow)
	}
}

func TestFromEnvMissingURL(t *testing.T) {
	t.Setenv("SESSIONDB_URL", "")

	if _, err := FromEnv(); !errors.Is(err, ErrMissingURL) {
		t.Errorf("FromEnv() error = %v, want ErrMissingURL", err)
	}
}
