package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/koopa0/sessiondb/config"
	"github.com/koopa0/sessiondb/log"
	"github.com/koopa0/sessiondb/session"
)

// Store persists sessions and their event history in a relational
// backend. One Store owns one connection pool; it is safe for
// concurrent use and must be closed when no longer needed.
type Store struct {
	pool    *pool
	dialect Dialect
	version SchemaVersion
	logger  *slog.Logger
}

// Open connects to the backend named by cfg, verifies connectivity,
// and fixes the schema version for the store's lifetime. An empty
// database is bootstrapped with the modern layout; a populated one is
// detected as legacy or modern, and anything unrecognizable fails with
// session.ErrSchemaMismatch.
//
// A nil logger disables logging.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	dialect, err := dialectFrom(cfg.Dialect())
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.driverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", session.ErrConnection, err)
	}

	p := newPool(db, cfg, logger)
	if err := p.pingWithRetry(ctx); err != nil {
		_ = p.close()
		return nil, err
	}

	version, err := detectSchema(ctx, db, dialect)
	if err != nil {
		_ = p.close()
		return nil, err
	}
	if version == SchemaUnknown {
		if err := bootstrapSchema(db, dialect, logger); err != nil {
			_ = p.close()
			return nil, err
		}
		version = SchemaModern
	}

	logger.Info("session store opened",
		"dialect", string(dialect),
		"schema", version.String(),
		"pool", cfg.String())

	return &Store{
		pool:    p,
		dialect: dialect,
		version: version,
		logger:  logger,
	}, nil
}

// SchemaVersion reports the layout detected at Open.
func (s *Store) SchemaVersion() SchemaVersion {
	return s.version
}

// Close releases the connection pool. The store is unusable afterwards.
func (s *Store) Close() error {
	return s.pool.close()
}
