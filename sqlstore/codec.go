package sqlstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/koopa0/sessiondb/session"
)

// Column lists for the two event layouts. The modern layout stores the
// whole event as one JSON document next to the key and ordering
// columns; the legacy layout spreads the event over one column per
// field with an opaque actions blob.
const (
	modernEventColumns = `id, app_name, user_id, session_id, seq, timestamp, event_json`

	legacyEventColumns = `id, app_name, user_id, session_id, invocation_id, author, branch,
		timestamp, content, actions, long_running_tool_ids_json, grounding_metadata,
		partial, turn_complete, interrupted, error_code, error_message, custom_metadata`
)

// encodeModernEvent marshals the event into the modern payload column.
func encodeModernEvent(ev *session.Event) (string, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("%w: encode event %s: %v", session.ErrSerialization, ev.ID, err)
	}
	return string(payload), nil
}

// decodeModernEvent unmarshals one modern payload. The key and
// timestamp columns are authoritative and overwrite whatever the
// payload carries.
func decodeModernEvent(id string, ts time.Time, payload string) (*session.Event, error) {
	var ev session.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return nil, fmt.Errorf("%w: decode event %s: %v", session.ErrSerialization, id, err)
	}
	ev.ID = id
	ev.Timestamp = ts
	return &ev, nil
}

// legacyEventRow mirrors one row of the legacy events table. Nullable
// columns use sql.Null types because legacy writers leave absent fields
// NULL rather than empty.
type legacyEventRow struct {
	ID           string
	InvocationID sql.NullString
	Author       sql.NullString
	Branch       sql.NullString
	Timestamp    time.Time
	Content      sql.NullString
	Actions      []byte
	LongTools    sql.NullString
	Grounding    sql.NullString
	Partial      sql.NullBool
	TurnComplete sql.NullBool
	Interrupted  sql.NullBool
	ErrorCode    sql.NullString
	ErrorMessage sql.NullString
	CustomMeta   sql.NullString
}

// encodeLegacyEvent flattens the event into legacy column values, in
// legacyEventColumns order minus the three key columns that the caller
// binds itself. An event read from a legacy backend keeps its original
// actions blob verbatim; events born in this process write their
// actions as JSON.
func encodeLegacyEvent(ev *session.Event) ([]any, error) {
	content, err := marshalNullable(ev.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: encode event %s content: %v", session.ErrSerialization, ev.ID, err)
	}

	actions := ev.Actions.Raw
	if len(actions) == 0 {
		actions, err = json.Marshal(ev.Actions)
		if err != nil {
			return nil, fmt.Errorf("%w: encode event %s actions: %v", session.ErrSerialization, ev.ID, err)
		}
	}

	longTools, err := marshalNullable(ev.LongRunningToolIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: encode event %s tool ids: %v", session.ErrSerialization, ev.ID, err)
	}
	grounding, err := marshalNullable(ev.GroundingMetadata)
	if err != nil {
		return nil, fmt.Errorf("%w: encode event %s grounding: %v", session.ErrSerialization, ev.ID, err)
	}
	customMeta, err := marshalNullable(ev.CustomMetadata)
	if err != nil {
		return nil, fmt.Errorf("%w: encode event %s metadata: %v", session.ErrSerialization, ev.ID, err)
	}

	return []any{
		nullString(ev.InvocationID),
		nullString(ev.Author),
		nullString(ev.Branch),
		ev.Timestamp,
		content,
		actions,
		longTools,
		grounding,
		ev.Partial,
		ev.TurnComplete,
		ev.Interrupted,
		nullString(ev.ErrorCode),
		nullString(ev.ErrorMessage),
		customMeta,
	}, nil
}

// decodeLegacyEvent rebuilds an event from a scanned legacy row.
//
// The actions blob is decoded on a best-effort basis: blobs written by
// this package are JSON and unpack into structured actions; anything
// else is preserved verbatim in Actions.Raw so a later append does not
// corrupt it.
func decodeLegacyEvent(row *legacyEventRow) (*session.Event, error) {
	ev := &session.Event{
		ID:           row.ID,
		InvocationID: row.InvocationID.String,
		Author:       row.Author.String,
		Branch:       row.Branch.String,
		Timestamp:    row.Timestamp,
		Partial:      row.Partial.Bool,
		TurnComplete: row.TurnComplete.Bool,
		Interrupted:  row.Interrupted.Bool,
		ErrorCode:    row.ErrorCode.String,
		ErrorMessage: row.ErrorMessage.String,
	}

	if row.Content.Valid && row.Content.String != "" {
		var content session.Content
		if err := json.Unmarshal([]byte(row.Content.String), &content); err != nil {
			return nil, fmt.Errorf("%w: decode event %s content: %v", session.ErrSerialization, row.ID, err)
		}
		ev.Content = &content
	}

	if len(row.Actions) > 0 {
		var actions session.EventActions
		if err := json.Unmarshal(row.Actions, &actions); err != nil {
			ev.Actions = session.EventActions{Raw: row.Actions}
		} else {
			ev.Actions = actions
		}
	}

	if row.LongTools.Valid && row.LongTools.String != "" {
		if err := json.Unmarshal([]byte(row.LongTools.String), &ev.LongRunningToolIDs); err != nil {
			return nil, fmt.Errorf("%w: decode event %s tool ids: %v", session.ErrSerialization, row.ID, err)
		}
	}
	if row.Grounding.Valid && row.Grounding.String != "" {
		if err := json.Unmarshal([]byte(row.Grounding.String), &ev.GroundingMetadata); err != nil {
			return nil, fmt.Errorf("%w: decode event %s grounding: %v", session.ErrSerialization, row.ID, err)
		}
	}
	if row.CustomMeta.Valid && row.CustomMeta.String != "" {
		if err := json.Unmarshal([]byte(row.CustomMeta.String), &ev.CustomMetadata); err != nil {
			return nil, fmt.Errorf("%w: decode event %s metadata: %v", session.ErrSerialization, row.ID, err)
		}
	}

	return ev, nil
}

// encodeState marshals a state map for a state column; nil maps encode
// as the empty object so columns stay NOT NULL.
func encodeState(state map[string]any) (string, error) {
	if state == nil {
		state = map[string]any{}
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("%w: encode state: %v", session.ErrSerialization, err)
	}
	return string(payload), nil
}

func decodeState(payload string) (map[string]any, error) {
	state := map[string]any{}
	if payload == "" {
		return state, nil
	}
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("%w: decode state: %v", session.ErrSerialization, err)
	}
	return state, nil
}

// marshalNullable encodes v as JSON, mapping Go zero containers to SQL
// NULL the way legacy writers do.
func marshalNullable(v any) (sql.NullString, error) {
	switch val := v.(type) {
	case *session.Content:
		if val == nil {
			return sql.NullString{}, nil
		}
	case []string:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	case map[string]any:
		if len(val) == 0 {
			return sql.NullString{}, nil
		}
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(payload), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
