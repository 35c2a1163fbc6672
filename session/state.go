package session

import (
	"maps"
	"strings"
)

// State key prefixes. A key's prefix alone decides which tier it is
// stored in, regardless of which operation carried it.
const (
	// StatePrefixApp marks state shared by every user of an application.
	StatePrefixApp = "app:"

	// StatePrefixUser marks state that follows a user across all of that
	// user's sessions within an application.
	StatePrefixUser = "user:"

	// StatePrefixTemp marks transient state that is never persisted.
	StatePrefixTemp = "temp:"
)

// Scope names the storage tier a state key belongs to.
type Scope int

const (
	ScopeSession Scope = iota
	ScopeApp
	ScopeUser
	ScopeTemp
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeApp:
		return "app"
	case ScopeUser:
		return "user"
	case ScopeTemp:
		return "temp"
	default:
		return "session"
	}
}

// ScopeOf routes a state key to its storage tier by prefix. Keys with no
// recognized prefix are session-scoped.
func ScopeOf(key string) Scope {
	switch {
	case strings.HasPrefix(key, StatePrefixApp):
		return ScopeApp
	case strings.HasPrefix(key, StatePrefixUser):
		return ScopeUser
	case strings.HasPrefix(key, StatePrefixTemp):
		return ScopeTemp
	default:
		return ScopeSession
	}
}

// SplitDelta partitions a state delta into its app, user and session
// parts, stripping the tier prefixes from app and user keys. Keys with
// the temp prefix are dropped: temporary state is never persisted.
//
// Routing is strictly by prefix; the call context (which operation the
// delta arrived with) does not change where a key goes.
func SplitDelta(delta map[string]any) (app, user, sess map[string]any) {
	app = make(map[string]any)
	user = make(map[string]any)
	sess = make(map[string]any)

	for key, value := range delta {
		switch ScopeOf(key) {
		case ScopeApp:
			app[strings.TrimPrefix(key, StatePrefixApp)] = value
		case ScopeUser:
			user[strings.TrimPrefix(key, StatePrefixUser)] = value
		case ScopeTemp:
			// dropped
		default:
			sess[key] = value
		}
	}
	return app, user, sess
}

// Merge composes the externally visible state view from the three tiers:
// app keys reappear under their "app:" names, user keys under "user:",
// session keys bare. The tiers use disjoint prefix conventions by
// construction, so the merge is a plain union. A nil tier is treated as
// empty. The result is a fresh map.
func Merge(app, user, sess map[string]any) map[string]any {
	merged := make(map[string]any, len(app)+len(user)+len(sess))

	maps.Copy(merged, sess)
	for k, v := range app {
		merged[StatePrefixApp+k] = v
	}
	for k, v := range user {
		merged[StatePrefixUser+k] = v
	}
	return merged
}

// ApplyPatch shallow-merges a patch into a state map, later values
// winning per key, and returns the result. The original map is not
// modified; a nil base is treated as empty.
func ApplyPatch(state, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(state)+len(patch))
	maps.Copy(merged, state)
	maps.Copy(merged, patch)
	return merged
}
