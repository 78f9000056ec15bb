package cache

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonwraymond/respcache/identity"
	"github.com/jonwraymond/respcache/observe"
	"github.com/jonwraymond/respcache/request"
)

// Sensitivity governs how caller identity partitions cache entries.
type Sensitivity int

const (
	// SensitivityNone shares one entry across all callers.
	SensitivityNone Sensitivity = iota

	// SensitivityGuestOnly caches for anonymous callers only; any
	// authenticated caller renders the invocation uncacheable.
	SensitivityGuestOnly

	// SensitivitySplit keeps one entry for "some authenticated caller"
	// and one for "no caller".
	SensitivitySplit

	// SensitivityPerUser keeps one entry per distinct caller principal,
	// with a distinguished bucket for "no caller".
	SensitivityPerUser
)

// Signature statically declares a handler's parameter names and defaults,
// replacing runtime introspection: the wrapping call site names the
// positional parameter order so positional arguments can be mapped back to
// parameter names.
type Signature struct {
	// Params are the declared parameter names in positional order.
	Params []string

	// Defaults maps parameter names to their declared default values.
	Defaults map[string]any
}

// Reserved key dimensions. Evaluated argument names must not collide with
// these, which is why a leading underscore is rejected at wrap time.
const (
	dimUser        = "__user"
	dimLocale      = "__lang"
	dimPath        = "__path"
	dimVersion     = "__appVersion"
	dimEnvironment = "_cacheEnvironment"

	// userBucketAuthenticated is the shared identity bucket under
	// SensitivitySplit.
	userBucketAuthenticated = "__ISUSER"
)

// Fingerprinter derives deterministic cache keys for one wrapped handler.
//
// Contract:
// - Determinism: identical inputs and context always yield the same key;
//   any difference in a contributing dimension changes the key.
// - Concurrency: safe for concurrent use.
// - Errors: ErrUncacheable means "run uncached"; ErrDuplicateArgument is a
//   configuration error the caller must see.
type Fingerprinter struct {
	sig             Signature
	sensitivity     Sensitivity
	localeSensitive bool
	evaluated       []string
	evaluatedSet    map[string]bool

	environmentKey func(ctx context.Context) (string, error)
	version        func(ctx context.Context) (string, error)
	logger         observe.Logger
}

// NewFingerprinter creates a fingerprinter for one handler.
//
// evaluatedArgs is the complete allowlist of parameter names whose values
// influence the handler's output; names outside it are ignored for key
// purposes. Omitting a semantically relevant parameter is a correctness bug
// at the call site that cannot be detected here.
func NewFingerprinter(
	sig Signature,
	sensitivity Sensitivity,
	localeSensitive bool,
	evaluatedArgs []string,
	environmentKey func(ctx context.Context) (string, error),
	version func(ctx context.Context) (string, error),
	logger observe.Logger,
) (*Fingerprinter, error) {
	set := make(map[string]bool, len(evaluatedArgs))
	for _, name := range evaluatedArgs {
		if strings.HasPrefix(name, "_") {
			return nil, fmt.Errorf("%w: %q", ErrReservedArgName, name)
		}
		set[name] = true
	}
	if logger == nil {
		logger = observe.NopLogger()
	}

	return &Fingerprinter{
		sig:             sig,
		sensitivity:     sensitivity,
		localeSensitive: localeSensitive,
		evaluated:       append([]string(nil), evaluatedArgs...),
		evaluatedSet:    set,
		environmentKey:  environmentKey,
		version:         version,
		logger:          logger,
	}, nil
}

// Key derives the cache key for one invocation.
//
// The key folds together the evaluated argument values (defaults filled
// in), the identity bucket, the locale, the environment fingerprint, the
// route path, and the deployment version, serialized canonically and
// hashed with SHA-512.
func (f *Fingerprinter) Key(ctx context.Context, path string, args []any, kwargs map[string]any) (string, error) {
	dims := make(map[string]any, len(f.evaluated)+5)

	// Declared defaults first, then positional, then keyword arguments.
	for name, value := range f.sig.Defaults {
		if f.evaluatedSet[name] {
			dims[name] = value
		}
	}

	setPositionally := make(map[string]bool)
	for i, value := range args {
		if i >= len(f.sig.Params) {
			break
		}
		name := f.sig.Params[i]
		if f.evaluatedSet[name] {
			dims[name] = value
			setPositionally[name] = true
		}
	}

	for name, value := range kwargs {
		if !f.evaluatedSet[name] {
			continue
		}
		if setPositionally[name] {
			return "", fmt.Errorf("%w: %q supplied positionally and by keyword", ErrDuplicateArgument, name)
		}
		dims[name] = value
	}

	if err := f.addIdentity(ctx, dims); err != nil {
		return "", err
	}

	req := request.FromContext(ctx)
	if f.localeSensitive {
		locale := ""
		if req != nil {
			locale = req.Locale
		}
		dims[dimLocale] = locale
	}

	if f.environmentKey != nil {
		env, err := f.environmentKey(ctx)
		if err != nil {
			// A wrong entry is worse than no entry.
			return "", fmt.Errorf("%w: environment fingerprint: %v", ErrUncacheable, err)
		}
		dims[dimEnvironment] = env
	}

	// Different paths may render the same data differently (html, xml, ...).
	dims[dimPath] = path
	dims[dimVersion] = f.resolveVersion(ctx)

	// Every evaluated parameter must have a value by now. Fewer positional
	// arguments than declared and no default means this invocation cannot
	// be keyed.
	for _, name := range f.evaluated {
		if _, ok := dims[name]; !ok {
			return "", fmt.Errorf("%w: missing value for %q", ErrUncacheable, name)
		}
	}

	serialized, err := canonicalize(dims)
	if err != nil {
		return "", fmt.Errorf("%w: serialize: %v", ErrUncacheable, err)
	}

	digest := sha512.Sum512(serialized)
	return hex.EncodeToString(digest[:]), nil
}

func (f *Fingerprinter) addIdentity(ctx context.Context, dims map[string]any) error {
	if f.sensitivity == SensitivityNone {
		return nil
	}

	id := identity.FromContext(ctx)
	authenticated := !id.IsAnonymous()

	switch f.sensitivity {
	case SensitivityGuestOnly:
		if authenticated {
			return fmt.Errorf("%w: caching is guest-only and caller is authenticated", ErrUncacheable)
		}
	case SensitivitySplit:
		if authenticated {
			dims[dimUser] = userBucketAuthenticated
		} else {
			dims[dimUser] = nil
		}
	case SensitivityPerUser:
		if authenticated {
			dims[dimUser] = id.Principal
		} else {
			dims[dimUser] = nil
		}
	}
	return nil
}

// resolveVersion returns the deployment version dimension. A lookup failure
// degrades to the empty string: caching continues, flagged as a
// cross-version leakage risk.
func (f *Fingerprinter) resolveVersion(ctx context.Context) string {
	if f.version == nil {
		return ""
	}
	v, err := f.version(ctx)
	if err != nil {
		f.logger.Warn(ctx, "could not determine deployment version, caching may leak across versions",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return ""
	}
	return v
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key so iteration order never leaks into the digest.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}
