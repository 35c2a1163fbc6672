package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/koopa0/sessiondb/config"
	"github.com/koopa0/sessiondb/session"
)

// pool bounds the store's live backend connections. It layers the
// configured acquire timeout and overflow limits on top of the
// database/sql connection pool: up to PoolSize+MaxOverflow connections
// may be open, further requests block, and a request still blocked when
// the timeout elapses fails with session.ErrPoolExhausted.
type pool struct {
	db      *sql.DB
	timeout time.Duration
	logger  *slog.Logger
}

func newPool(db *sql.DB, cfg config.Config, logger *slog.Logger) *pool {
	db.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	db.SetMaxIdleConns(cfg.PoolSize)
	db.SetConnMaxLifetime(cfg.PoolRecycle)

	return &pool{
		db:      db,
		timeout: cfg.PoolTimeout,
		logger:  logger,
	}
}

// acquire checks one connection out of the pool. The handle must be
// returned with its Close method; callers should prefer withConn or
// withTx, which guarantee the return on every exit path.
func (p *pool) acquire(ctx context.Context) (*sql.Conn, error) {
	acquireCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err != nil {
		// Distinguish our acquire deadline from the caller's own context.
		if acquireCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("%w: no connection available within %s", session.ErrPoolExhausted, p.timeout)
		}
		return nil, translateErr(err)
	}
	return conn, nil
}

// withConn runs fn with one pooled connection, returning it afterwards.
func (p *pool) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := conn.Close(); err != nil {
			p.logger.Debug("failed to return connection to pool", "error", err)
		}
	}()

	return fn(conn)
}

// withTx runs fn inside one transaction on one pooled connection. The
// transaction commits when fn returns nil and rolls back otherwise;
// the connection is returned in every case.
func (p *pool) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return p.withConn(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return translateErr(err)
		}
		// Rollback after a successful commit is a no-op error.
		defer func() {
			if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
				p.logger.Debug("transaction rollback failed", "error", err)
			}
		}()

		if err := fn(tx); err != nil {
			return err
		}
		return translateErr(tx.Commit())
	})
}

// pingWithRetry verifies connectivity at open time. Connection failures
// are the one transient class worth local retries; everything else
// surfaces immediately.
func (p *pool) pingWithRetry(ctx context.Context) error {
	const attempts = 3
	backoff := 100 * time.Millisecond

	var err error
	for i := 0; i < attempts; i++ {
		if err = p.db.PingContext(ctx); err == nil {
			return nil
		}
		if !isConnErr(err) {
			return translateErr(err)
		}
		if i == attempts-1 {
			break
		}

		p.logger.Debug("backend ping failed, retrying", "attempt", i+1, "backoff", backoff, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("%w: %v", session.ErrConnection, err)
}

func (p *pool) close() error {
	return p.db.Close()
}
