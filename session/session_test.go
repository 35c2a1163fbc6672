package session

import (
	"errors"
	"testing"
)

func TestKeyValidate(t *testing.T) {
	tests := []struct {
		name    string
		key     Key
		wantErr bool
	}{
		{"complete", Key{AppName: "app", UserID: "u1", SessionID: "s1"}, false},
		{"missing app", Key{UserID: "u1", SessionID: "s1"}, true},
		{"missing user", Key{AppName: "app", SessionID: "s1"}, true},
		{"missing session", Key{AppName: "app", UserID: "u1"}, true},
		{"empty", Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.key.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidKey) {
					t.Errorf("Validate() error = %v, want ErrInvalidKey", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
		})
	}
}
