package identity

import "time"

// Method indicates how the caller identity was established.
type Method string

const (
	MethodNone      Method = "none"
	MethodJWT       Method = "jwt"
	MethodSession   Method = "session"
	MethodAnonymous Method = "anonymous"
)

// Identity represents the current caller.
//
// Principal is the stable identifier the cache uses to partition entries
// under per-user sensitivity. An identity with an empty principal counts
// as anonymous.
type Identity struct {
	// Principal is the unique caller identifier (e.g. user ID, email).
	Principal string

	// Method indicates how the identity was established.
	Method Method

	// Claims contains raw claims carried by the credential, if any.
	Claims map[string]any

	// IssuedAt is when the identity was established.
	IssuedAt time.Time

	// ExpiresAt is when the identity expires. Zero means no expiry.
	ExpiresAt time.Time
}

// IsAnonymous returns true if this identity does not name a caller.
func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Method == MethodAnonymous || id.Principal == ""
}

// IsExpired checks if the identity has expired.
func (id *Identity) IsExpired() bool {
	if id == nil || id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}

// Anonymous creates an identity for an unauthenticated caller.
func Anonymous() *Identity {
	return &Identity{
		Method: MethodAnonymous,
		Claims: make(map[string]any),
	}
}
