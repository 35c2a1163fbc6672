package session

import "time"

// Key identifies one conversation session. All three parts are required
// and immutable once the session is created.
type Key struct {
	AppName   string
	UserID    string
	SessionID string
}

// Validate reports whether the key is complete. SessionID may be empty
// only at creation time, when the store generates one.
func (k Key) Validate() error {
	if k.AppName == "" || k.UserID == "" || k.SessionID == "" {
		return ErrInvalidKey
	}
	return nil
}

// Session represents one conversation: its identity, its session-scoped
// state, and its lifecycle timestamps. The State map returned by store
// reads is the merged three-tier view (app, user, session); the map is
// owned by the caller and never shared with the store.
type Session struct {
	Key
	State      map[string]any
	CreateTime time.Time
	UpdateTime time.Time
}
