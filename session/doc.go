// Package session defines the domain model for conversational session
// persistence: sessions keyed by (application, user, session id), the
// immutable events that make up their history, and the three-tier state
// model (application, user, session) distinguished by key prefix.
//
// The package is pure: it performs no I/O and holds no shared state.
// Persistence lives in [github.com/koopa0/sessiondb/sqlstore].
//
// # State scoping
//
// State keys are routed by prefix: "app:" keys are shared by every user
// of an application, "user:" keys follow a user across all of their
// sessions, "temp:" keys are never persisted, and bare keys belong to a
// single session. [SplitDelta] is the routing function and [Merge]
// composes the externally visible view; both are deterministic and
// side-effect free.
//
// # Errors
//
// Sentinel errors form the store's public failure taxonomy and are
// checked with errors.Is:
//
//	sess, err := store.GetSession(ctx, app, user, id)
//	if errors.Is(err, session.ErrPoolExhausted) {
//	    // transient: safe to retry with backoff
//	}
package session
