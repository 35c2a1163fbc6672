package sqlstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koopa0/sessiondb/session"
)

// MySQL server error numbers. Matches the mapping in the MySQL docs;
// the driver only carries the raw number.
const (
	mysqlErrDupEntry        = 1062
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
)

// translateErr folds a driver-specific failure into the store's error
// taxonomy. Errors already in the taxonomy (and context errors) pass
// through unchanged.
func translateErr(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{
		session.ErrNotFound,
		session.ErrDuplicateKey,
		session.ErrSchemaMismatch,
		session.ErrConnection,
		session.ErrPoolExhausted,
		session.ErrSerialization,
		session.ErrConstraint,
		session.ErrInvalidKey,
	} {
		if errors.Is(err, sentinel) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", session.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return fmt.Errorf("%w: %v", session.ErrDuplicateKey, err)
		case pgerrcode.ForeignKeyViolation:
			return fmt.Errorf("%w: %v", session.ErrConstraint, err)
		}
		return err
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDupEntry:
			return fmt.Errorf("%w: %v", session.ErrDuplicateKey, err)
		case mysqlErrRowIsReferenced, mysqlErrNoReferencedRow:
			return fmt.Errorf("%w: %v", session.ErrConstraint, err)
		}
		return err
	}

	// modernc.org/sqlite reports constraint failures by message; the
	// driver's error type is not part of its stable API.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", session.ErrDuplicateKey, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", session.ErrConstraint, err)
	}

	if isConnErr(err) {
		return fmt.Errorf("%w: %v", session.ErrConnection, err)
	}
	return err
}

// isConnErr reports whether an error is a backend connection failure,
// the only class (with pool exhaustion) eligible for automatic retry.
func isConnErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe")
}
