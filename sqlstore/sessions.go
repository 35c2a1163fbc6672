package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/sessiondb/session"
)

// now returns the wall clock truncated to the finest precision every
// supported backend can store, so timestamps survive a write/read round
// trip unchanged.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// CreateSession creates a new session under key. An empty SessionID is
// replaced with a fresh UUID. Keys from state prefixed with "app:" or
// "user:" seed the shared tiers; bare keys become the session's own
// state; "temp:" keys are dropped.
//
// The returned session carries the merged three-tier state view.
// Creating a session that already exists fails with
// session.ErrDuplicateKey.
func (s *Store) CreateSession(ctx context.Context, key session.Key, state map[string]any) (*session.Session, error) {
	if key.SessionID == "" {
		key.SessionID = uuid.NewString()
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}

	appDelta, userDelta, sessState := session.SplitDelta(state)
	ts := now()

	var appState, userState map[string]any
	err := s.pool.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		if appState, err = s.patchAppState(ctx, tx, key.AppName, appDelta, ts); err != nil {
			return err
		}
		if userState, err = s.patchUserState(ctx, tx, key.AppName, key.UserID, userDelta, ts); err != nil {
			return err
		}

		payload, err := encodeState(sessState)
		if err != nil {
			return err
		}
		query := s.dialect.rebind(`INSERT INTO sessions (app_name, user_id, id, state, create_time, update_time)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if _, err := tx.ExecContext(ctx, query, key.AppName, key.UserID, key.SessionID, payload, ts, ts); err != nil {
			return translateErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("session created", "app", key.AppName, "user", key.UserID, "session", key.SessionID)

	return &session.Session{
		Key:        key,
		State:      session.Merge(appState, userState, sessState),
		CreateTime: ts,
		UpdateTime: ts,
	}, nil
}

// GetSession loads one session with its merged state view. A session
// that does not exist returns (nil, nil): absence is an answer, not an
// error.
func (s *Store) GetSession(ctx context.Context, key session.Key) (*session.Session, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var sess *session.Session
	err := s.pool.withConn(ctx, func(conn *sql.Conn) error {
		var payload string
		var createTime, updateTime time.Time
		query := s.dialect.rebind(`SELECT state, create_time, update_time FROM sessions
			WHERE app_name = ? AND user_id = ? AND id = ?`)
		err := conn.QueryRowContext(ctx, query, key.AppName, key.UserID, key.SessionID).
			Scan(&payload, &createTime, &updateTime)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil
		case err != nil:
			return translateErr(err)
		}

		sessState, err := decodeState(payload)
		if err != nil {
			return err
		}
		appState, err := s.loadAppState(ctx, conn, key.AppName)
		if err != nil {
			return err
		}
		userState, err := s.loadUserState(ctx, conn, key.AppName, key.UserID)
		if err != nil {
			return err
		}

		sess = &session.Session{
			Key:        key,
			State:      session.Merge(appState, userState, sessState),
			CreateTime: createTime.UTC(),
			UpdateTime: updateTime.UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListSessions returns all of a user's sessions under an application,
// newest update first, each with its merged state view. The shared
// tiers are loaded once and reused across the result.
func (s *Store) ListSessions(ctx context.Context, appName, userID string) ([]*session.Session, error) {
	if appName == "" || userID == "" {
		return nil, session.ErrInvalidKey
	}

	var sessions []*session.Session
	err := s.pool.withConn(ctx, func(conn *sql.Conn) error {
		appState, err := s.loadAppState(ctx, conn, appName)
		if err != nil {
			return err
		}
		userState, err := s.loadUserState(ctx, conn, appName, userID)
		if err != nil {
			return err
		}

		query := s.dialect.rebind(`SELECT id, state, create_time, update_time FROM sessions
			WHERE app_name = ? AND user_id = ?
			ORDER BY update_time DESC, id`)
		rows, err := conn.QueryContext(ctx, query, appName, userID)
		if err != nil {
			return translateErr(err)
		}
		defer rows.Close()

		for rows.Next() {
			var id, payload string
			var createTime, updateTime time.Time
			if err := rows.Scan(&id, &payload, &createTime, &updateTime); err != nil {
				return translateErr(err)
			}
			sessState, err := decodeState(payload)
			if err != nil {
				return err
			}
			sessions = append(sessions, &session.Session{
				Key:        session.Key{AppName: appName, UserID: userID, SessionID: id},
				State:      session.Merge(appState, userState, sessState),
				CreateTime: createTime.UTC(),
				UpdateTime: updateTime.UTC(),
			})
		}
		return translateErr(rows.Err())
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// DeleteSession removes a session and its events in one transaction.
// The event delete runs explicitly even where the schema cascades, so
// behavior does not depend on backend foreign key enforcement. Deleting
// an absent session fails with session.ErrNotFound.
func (s *Store) DeleteSession(ctx context.Context, key session.Key) error {
	if err := key.Validate(); err != nil {
		return err
	}

	err := s.pool.withTx(ctx, func(tx *sql.Tx) error {
		query := s.dialect.rebind(`DELETE FROM events WHERE app_name = ? AND user_id = ? AND session_id = ?`)
		if _, err := tx.ExecContext(ctx, query, key.AppName, key.UserID, key.SessionID); err != nil {
			return translateErr(err)
		}

		query = s.dialect.rebind(`DELETE FROM sessions WHERE app_name = ? AND user_id = ? AND id = ?`)
		res, err := tx.ExecContext(ctx, query, key.AppName, key.UserID, key.SessionID)
		if err != nil {
			return translateErr(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return translateErr(err)
		}
		if n == 0 {
			return session.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("session deleted", "app", key.AppName, "user", key.UserID, "session", key.SessionID)
	return nil
}

// queryRower is the common surface of *sql.Conn and *sql.Tx used by the
// state readers below.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) loadAppState(ctx context.Context, q queryRower, appName string) (map[string]any, error) {
	return s.loadStateRow(ctx, q,
		s.dialect.rebind(`SELECT state FROM app_states WHERE app_name = ?`), appName)
}

func (s *Store) loadUserState(ctx context.Context, q queryRower, appName, userID string) (map[string]any, error) {
	return s.loadStateRow(ctx, q,
		s.dialect.rebind(`SELECT state FROM user_states WHERE app_name = ? AND user_id = ?`), appName, userID)
}

func (s *Store) loadStateRow(ctx context.Context, q queryRower, query string, args ...any) (map[string]any, error) {
	var payload string
	err := q.QueryRowContext(ctx, query, args...).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return map[string]any{}, nil
	case err != nil:
		return nil, translateErr(err)
	}
	return decodeState(payload)
}

// patchAppState folds delta into the app state row under the write
// lock of the surrounding transaction and returns the resulting state.
// An empty delta still reads the current state but writes nothing.
func (s *Store) patchAppState(ctx context.Context, tx *sql.Tx, appName string, delta map[string]any, ts time.Time) (map[string]any, error) {
	var payload string
	query := s.dialect.rebind(`SELECT state FROM app_states WHERE app_name = ?` + s.dialect.forUpdate())
	err := tx.QueryRowContext(ctx, query, appName).Scan(&payload)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, translateErr(err)
	}

	state, err := decodeState(payload)
	if err != nil {
		return nil, err
	}
	if len(delta) == 0 {
		return state, nil
	}

	state = session.ApplyPatch(state, delta)
	encoded, err := encodeState(state)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.upsertAppState()), appName, encoded, ts); err != nil {
		return nil, translateErr(err)
	}
	return state, nil
}

// patchUserState is patchAppState for the per-user tier.
func (s *Store) patchUserState(ctx context.Context, tx *sql.Tx, appName, userID string, delta map[string]any, ts time.Time) (map[string]any, error) {
	var payload string
	query := s.dialect.rebind(`SELECT state FROM user_states WHERE app_name = ? AND user_id = ?` + s.dialect.forUpdate())
	err := tx.QueryRowContext(ctx, query, appName, userID).Scan(&payload)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, translateErr(err)
	}

	state, err := decodeState(payload)
	if err != nil {
		return nil, err
	}
	if len(delta) == 0 {
		return state, nil
	}

	state = session.ApplyPatch(state, delta)
	encoded, err := encodeState(state)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.dialect.rebind(s.dialect.upsertUserState()), appName, userID, encoded, ts); err != nil {
		return nil, translateErr(err)
	}
	return state, nil
}
