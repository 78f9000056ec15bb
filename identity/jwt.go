package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT resolver.
type JWTConfig struct {
	// Issuer is the expected token issuer (iss claim). Empty skips the check.
	Issuer string

	// Audience is the expected token audience (aud claim). Empty skips the check.
	Audience string

	// TokenPrefix is the prefix before the token in the credential string.
	// Default: "Bearer "
	TokenPrefix string

	// PrincipalClaim is the claim containing the caller principal.
	// Default: "sub"
	PrincipalClaim string
}

// KeyProvider retrieves signing keys for JWT validation.
type KeyProvider interface {
	// GetKey returns the key for the given key ID.
	GetKey(ctx context.Context, keyID string) (any, error)
}

// StaticKeyProvider provides a single static signing key.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider creates a static key provider.
func NewStaticKeyProvider(key []byte) *StaticKeyProvider {
	return &StaticKeyProvider{key: key}
}

// GetKey returns the static key.
func (p *StaticKeyProvider) GetKey(_ context.Context, _ string) (any, error) {
	return p.key, nil
}

// JWTResolver turns bearer tokens into caller identities.
//
// Embedding servers resolve the inbound credential once per request and
// attach the result with WithIdentity so the cache can partition entries
// by caller.
type JWTResolver struct {
	config      JWTConfig
	keyProvider KeyProvider
}

// NewJWTResolver creates a new JWT resolver.
func NewJWTResolver(config JWTConfig, keyProvider KeyProvider) *JWTResolver {
	if config.TokenPrefix == "" {
		config.TokenPrefix = "Bearer "
	}
	if config.PrincipalClaim == "" {
		config.PrincipalClaim = "sub"
	}

	return &JWTResolver{
		config:      config,
		keyProvider: keyProvider,
	}
}

// Resolve validates the credential and returns the caller identity.
// An empty credential yields an anonymous identity, not an error.
func (r *JWTResolver) Resolve(ctx context.Context, credential string) (*Identity, error) {
	if credential == "" {
		return Anonymous(), nil
	}

	tokenString := strings.TrimPrefix(credential, r.config.TokenPrefix)
	if tokenString == credential {
		return nil, ErrMissingCredentials
	}
	tokenString = strings.TrimSpace(tokenString)

	opts := []jwt.ParserOption{}
	if r.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(r.config.Issuer))
	}
	if r.config.Audience != "" {
		opts = append(opts, jwt.WithAudience(r.config.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		kid := ""
		if kidVal, ok := token.Header["kid"].(string); ok {
			kid = kidVal
		}
		return r.keyProvider.GetKey(ctx, kid)
	}, opts...)
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !token.Valid {
		return nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	principal, _ := claims[r.config.PrincipalClaim].(string)
	if principal == "" {
		return nil, ErrInvalidCredentials
	}

	id := &Identity{
		Principal: principal,
		Method:    MethodJWT,
		Claims:    map[string]any(claims),
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	return id, nil
}
