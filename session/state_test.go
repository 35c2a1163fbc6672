package session

import (
	"reflect"
	"testing"
)

func TestScopeOf(t *testing.T) {
	tests := []struct {
		key  string
		want Scope
	}{
		{"app:theme", ScopeApp},
		{"user:language", ScopeUser},
		{"temp:scratch", ScopeTemp},
		{"counter", ScopeSession},
		{"", ScopeSession},
		{"application:x", ScopeSession}, // prefix must match exactly
		{"app:", ScopeApp},
	}

	for _, tt := range tests {
		if got := ScopeOf(tt.key); got != tt.want {
			t.Errorf("ScopeOf(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestScopeString(t *testing.T) {
	tests := []struct {
		scope Scope
		want  string
	}{
		{ScopeApp, "app"},
		{ScopeUser, "user"},
		{ScopeTemp, "temp"},
		{ScopeSession, "session"},
	}

	for _, tt := range tests {
		if got := tt.scope.String(); got != tt.want {
			t.Errorf("Scope(%d).String() = %q, want %q", tt.scope, got, tt.want)
		}
	}
}

func TestSplitDelta(t *testing.T) {
	delta := map[string]any{
		"app:theme":     "dark",
		"user:language": "de",
		"temp:scratch":  42,
		"counter":       float64(3),
	}

	app, user, sess := SplitDelta(delta)

	if want := map[string]any{"theme": "dark"}; !reflect.DeepEqual(app, want) {
		t.Errorf("app delta = %v, want %v", app, want)
	}
	if want := map[string]any{"language": "de"}; !reflect.DeepEqual(user, want) {
		t.Errorf("user delta = %v, want %v", user, want)
	}
	if want := map[string]any{"counter": float64(3)}; !reflect.DeepEqual(sess, want) {
		t.Errorf("session delta = %v, want %v", sess, want)
	}
}

func TestSplitDeltaNil(t *testing.T) {
	app, user, sess := SplitDelta(nil)
	if len(app) != 0 || len(user) != 0 || len(sess) != 0 {
		t.Errorf("SplitDelta(nil) = %v, %v, %v, want empty maps", app, user, sess)
	}
}

func TestMerge(t *testing.T) {
	app := map[string]any{"x": 1}
	user := map[string]any{"y": 2}
	sess := map[string]any{"z": 3}

	got := Merge(app, user, sess)
	want := map[string]any{"app:x": 1, "user:y": 2, "z": 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
}

func TestMergeNilTiers(t *testing.T) {
	got := Merge(nil, nil, map[string]any{"z": 3})
	want := map[string]any{"z": 3}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge(nil, nil, sess) = %v, want %v", got, want)
	}

	if got := Merge(nil, nil, nil); len(got) != 0 {
		t.Errorf("Merge(nil, nil, nil) = %v, want empty map", got)
	}
}

func TestMergeRoundTripsSplit(t *testing.T) {
	delta := map[string]any{
		"app:theme":     "dark",
		"user:language": "de",
		"counter":       1,
	}

	app, user, sess := SplitDelta(delta)
	if got := Merge(app, user, sess); !reflect.DeepEqual(got, delta) {
		t.Errorf("Merge(SplitDelta(delta)) = %v, want %v", got, delta)
	}
}

func TestApplyPatch(t *testing.T) {
	state := map[string]any{"a": 1, "b": 2}
	patch := map[string]any{"b": 3, "c": 4}

	got := ApplyPatch(state, patch)
	want := map[string]any{"a": 1, "b": 3, "c": 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ApplyPatch() = %v, want %v", got, want)
	}

	// Original must not be modified.
	if state["b"] != 2 {
		t.Errorf("ApplyPatch() mutated its input: state[b] = %v, want 2", state["b"])
	}
}

func TestApplyPatchNilBase(t *testing.T) {
	got := ApplyPatch(nil, map[string]any{"a": 1})
	want := map[string]any{"a": 1}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ApplyPatch(nil, patch) = %v, want %v", got, want)
	}
}
