package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/koopa0/sessiondb/session"
)

// AppendEvent appends one event to a session's history and folds its
// state delta into the three state tiers, all in one transaction. The
// session row is locked for the duration, so concurrent appends to the
// same session serialize.
//
// Partial events are transient streaming chunks: the call returns them
// untouched without writing anything. The returned event carries the
// ID and timestamp the store assigned when the input left them empty.
// Appending to a session that does not exist fails with
// session.ErrNotFound; reusing an event ID within a session fails with
// session.ErrDuplicateKey.
func (s *Store) AppendEvent(ctx context.Context, key session.Key, ev *session.Event) (*session.Event, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if ev.Partial {
		return ev, nil
	}

	stored := *ev
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Timestamp.IsZero() {
		stored.Timestamp = now()
	} else {
		stored.Timestamp = stored.Timestamp.UTC().Truncate(time.Microsecond)
	}

	appDelta, userDelta, sessDelta := session.SplitDelta(stored.Actions.StateDelta)

	err := s.pool.withTx(ctx, func(tx *sql.Tx) error {
		var payload string
		query := s.dialect.rebind(`SELECT state FROM sessions
			WHERE app_name = ? AND user_id = ? AND id = ?` + s.dialect.forUpdate())
		err := tx.QueryRowContext(ctx, query, key.AppName, key.UserID, key.SessionID).Scan(&payload)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return session.ErrNotFound
		case err != nil:
			return translateErr(err)
		}

		sessState, err := decodeState(payload)
		if err != nil {
			return err
		}

		if _, err := s.patchAppState(ctx, tx, key.AppName, appDelta, stored.Timestamp); err != nil {
			return err
		}
		if _, err := s.patchUserState(ctx, tx, key.AppName, key.UserID, userDelta, stored.Timestamp); err != nil {
			return err
		}

		sessState = session.ApplyPatch(sessState, sessDelta)
		encoded, err := encodeState(sessState)
		if err != nil {
			return err
		}
		query = s.dialect.rebind(`UPDATE sessions SET state = ?, update_time = ?
			WHERE app_name = ? AND user_id = ? AND id = ?`)
		if _, err := tx.ExecContext(ctx, query, encoded, stored.Timestamp,
			key.AppName, key.UserID, key.SessionID); err != nil {
			return translateErr(err)
		}

		if s.version == SchemaLegacy {
			return s.insertLegacyEvent(ctx, tx, key, &stored)
		}
		return s.insertModernEvent(ctx, tx, key, &stored)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("event appended",
		"app", key.AppName, "user", key.UserID, "session", key.SessionID, "event", stored.ID)
	return &stored, nil
}

// insertModernEvent writes one payload row. The per-session seq comes
// from MAX+1 under the session row lock, giving events a total order
// that breaks timestamp ties by insertion.
func (s *Store) insertModernEvent(ctx context.Context, tx *sql.Tx, key session.Key, ev *session.Event) error {
	var seq int64
	query := s.dialect.rebind(`SELECT COALESCE(MAX(seq), 0) FROM events
		WHERE app_name = ? AND user_id = ? AND session_id = ?`)
	if err := tx.QueryRowContext(ctx, query, key.AppName, key.UserID, key.SessionID).Scan(&seq); err != nil {
		return translateErr(err)
	}

	payload, err := encodeModernEvent(ev)
	if err != nil {
		return err
	}

	query = s.dialect.rebind(`INSERT INTO events (` + modernEventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = tx.ExecContext(ctx, query,
		ev.ID, key.AppName, key.UserID, key.SessionID, seq+1, ev.Timestamp, payload)
	return translateErr(err)
}

func (s *Store) insertLegacyEvent(ctx context.Context, tx *sql.Tx, key session.Key, ev *session.Event) error {
	values, err := encodeLegacyEvent(ev)
	if err != nil {
		return err
	}

	args := append([]any{ev.ID, key.AppName, key.UserID, key.SessionID}, values...)
	query := s.dialect.rebind(`INSERT INTO events (` + legacyEventColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = tx.ExecContext(ctx, query, args...)
	return translateErr(err)
}

// ListEvents returns a session's events in conversation order:
// ascending timestamp, ties broken by insertion order where the schema
// records it and by event ID otherwise. A non-zero since restricts the
// result to events strictly after that instant. Listing an absent
// session returns an empty slice.
func (s *Store) ListEvents(ctx context.Context, key session.Key, since time.Time) ([]*session.Event, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var events []*session.Event
	err := s.pool.withConn(ctx, func(conn *sql.Conn) error {
		var err error
		if s.version == SchemaLegacy {
			events, err = s.listLegacyEvents(ctx, conn, key, since)
		} else {
			events, err = s.listModernEvents(ctx, conn, key, since)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Store) listModernEvents(ctx context.Context, conn *sql.Conn, key session.Key, since time.Time) ([]*session.Event, error) {
	query := `SELECT id, timestamp, event_json FROM events
		WHERE app_name = ? AND user_id = ? AND session_id = ?`
	args := []any{key.AppName, key.UserID, key.SessionID}
	if !since.IsZero() {
		query += ` AND timestamp > ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY timestamp, seq`

	rows, err := conn.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var events []*session.Event
	for rows.Next() {
		var id, payload string
		var ts time.Time
		if err := rows.Scan(&id, &ts, &payload); err != nil {
			return nil, translateErr(err)
		}
		ev, err := decodeModernEvent(id, ts.UTC(), payload)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, translateErr(rows.Err())
}

func (s *Store) listLegacyEvents(ctx context.Context, conn *sql.Conn, key session.Key, since time.Time) ([]*session.Event, error) {
	query := `SELECT id, invocation_id, author, branch, timestamp, content, actions,
			long_running_tool_ids_json, grounding_metadata, partial, turn_complete,
			interrupted, error_code, error_message, custom_metadata
		FROM events
		WHERE app_name = ? AND user_id = ? AND session_id = ?`
	args := []any{key.AppName, key.UserID, key.SessionID}
	if !since.IsZero() {
		query += ` AND timestamp > ?`
		args = append(args, since.UTC())
	}
	query += ` ORDER BY timestamp, id`

	rows, err := conn.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, translateErr(err)
	}
	defer rows.Close()

	var events []*session.Event
	for rows.Next() {
		var row legacyEventRow
		if err := rows.Scan(&row.ID, &row.InvocationID, &row.Author, &row.Branch,
			&row.Timestamp, &row.Content, &row.Actions, &row.LongTools, &row.Grounding,
			&row.Partial, &row.TurnComplete, &row.Interrupted,
			&row.ErrorCode, &row.ErrorMessage, &row.CustomMeta); err != nil {
			return nil, translateErr(err)
		}
		row.Timestamp = row.Timestamp.UTC()
		ev, err := decodeLegacyEvent(&row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, translateErr(rows.Err())
}
