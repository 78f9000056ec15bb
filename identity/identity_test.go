package identity

import (
	"testing"
	"time"
)

func TestIdentity_IsAnonymous(t *testing.T) {
	tests := []struct {
		name string
		id   *Identity
		want bool
	}{
		{"nil identity", nil, true},
		{"anonymous constructor", Anonymous(), true},
		{"empty principal", &Identity{Method: MethodJWT}, true},
		{"named principal", &Identity{Principal: "user-42", Method: MethodJWT}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.IsAnonymous(); got != tt.want {
				t.Errorf("IsAnonymous() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIdentity_IsExpired(t *testing.T) {
	tests := []struct {
		name string
		id   *Identity
		want bool
	}{
		{"nil identity", nil, false},
		{"zero expiry", &Identity{Principal: "u"}, false},
		{"future expiry", &Identity{Principal: "u", ExpiresAt: time.Now().Add(time.Hour)}, false},
		{"past expiry", &Identity{Principal: "u", ExpiresAt: time.Now().Add(-time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.id.IsExpired(); got != tt.want {
				t.Errorf("IsExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}
