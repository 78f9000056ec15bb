package secret

import (
	"context"
	"fmt"
	"os"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret
// values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// EnvProvider resolves references from the process environment. The ref is
// the variable name.
type EnvProvider struct{}

// Name returns the provider name used in secret references.
func (EnvProvider) Name() string {
	return "env"
}

// Resolve reads the named environment variable. Unset variables are an
// error; a credential silently defaulting to "" is worse than failing.
func (EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	value, ok := os.LookupEnv(ref)
	if !ok {
		return "", fmt.Errorf("environment variable %s is not set", ref)
	}
	return value, nil
}

// Ensure EnvProvider implements Provider
var _ Provider = EnvProvider{}
