package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jonwraymond/respcache/identity"
	"github.com/jonwraymond/respcache/observe"
	"github.com/jonwraymond/respcache/request"
)

// renderSignature declares the test handler render(id, order="asc").
func renderSignature() Signature {
	return Signature{
		Params:   []string{"id", "order"},
		Defaults: map[string]any{"order": "asc"},
	}
}

// newTestFingerprinter builds a fingerprinter with the render signature.
func newTestFingerprinter(t *testing.T, sensitivity Sensitivity, localeSensitive bool) *Fingerprinter {
	t.Helper()

	fp, err := NewFingerprinter(
		renderSignature(),
		sensitivity,
		localeSensitive,
		[]string{"id", "order"},
		nil,
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("NewFingerprinter() error = %v", err)
	}
	return fp
}

func authenticatedCtx(principal string) context.Context {
	return identity.WithIdentity(context.Background(), &identity.Identity{
		Principal: principal,
		Method:    identity.MethodJWT,
	})
}

func TestFingerprinter_Deterministic(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityNone, false)
	ctx := context.Background()

	first, err := fp.Key(ctx, "/page/view", []any{5}, nil)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		again, err := fp.Key(ctx, "/page/view", []any{5}, nil)
		if err != nil {
			t.Fatalf("Key() error = %v", err)
		}
		if again != first {
			t.Fatalf("Key() not deterministic: %s != %s", again, first)
		}
	}
}

// TestFingerprinter_DefaultFillsIn verifies that an omitted argument with a
// declared default keys identically to passing the default explicitly.
func TestFingerprinter_DefaultFillsIn(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityNone, false)
	ctx := context.Background()

	omitted, err := fp.Key(ctx, "/page/view", []any{5}, nil)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	explicit, err := fp.Key(ctx, "/page/view", []any{5}, map[string]any{"order": "asc"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if omitted != explicit {
		t.Errorf("render(5) and render(5, order=asc) keys differ:\n %s\n %s", omitted, explicit)
	}

	descending, err := fp.Key(ctx, "/page/view", []any{5}, map[string]any{"order": "desc"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if descending == omitted {
		t.Error("render(5, order=desc) must not share a key with render(5)")
	}
}

func TestFingerprinter_ArgumentValueChangesKey(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityNone, false)
	ctx := context.Background()

	k5, _ := fp.Key(ctx, "/page/view", []any{5}, nil)
	k6, _ := fp.Key(ctx, "/page/view", []any{6}, nil)
	if k5 == k6 {
		t.Error("different argument values must produce different keys")
	}
}

func TestFingerprinter_PathChangesKey(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityNone, false)
	ctx := context.Background()

	html, _ := fp.Key(ctx, "/page/view", []any{5}, nil)
	pdf, _ := fp.Key(ctx, "/pdf/page/view", []any{5}, nil)
	if html == pdf {
		t.Error("different paths must produce different keys")
	}
}

// TestFingerprinter_IgnoresUnlistedArguments verifies parameters outside the
// evaluated allowlist do not influence the key.
func TestFingerprinter_IgnoresUnlistedArguments(t *testing.T) {
	fp, err := NewFingerprinter(
		Signature{Params: []string{"id", "trace"}},
		SensitivityNone,
		false,
		[]string{"id"},
		nil, nil, nil,
	)
	if err != nil {
		t.Fatalf("NewFingerprinter() error = %v", err)
	}
	ctx := context.Background()

	with, _ := fp.Key(ctx, "/p", []any{5, "on"}, nil)
	without, _ := fp.Key(ctx, "/p", []any{5, "off"}, nil)
	if with != without {
		t.Error("unlisted parameter changed the key")
	}
}

func TestFingerprinter_SensitivityNone(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityNone, false)

	anon, _ := fp.Key(context.Background(), "/p", []any{5}, nil)
	user, _ := fp.Key(authenticatedCtx("user-1"), "/p", []any{5}, nil)
	if anon != user {
		t.Error("identity-independent mode must share one key across callers")
	}
}

func TestFingerprinter_SensitivityGuestOnly(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityGuestOnly, false)

	if _, err := fp.Key(context.Background(), "/p", []any{5}, nil); err != nil {
		t.Errorf("anonymous caller should be cacheable, got %v", err)
	}

	_, err := fp.Key(authenticatedCtx("user-1"), "/p", []any{5}, nil)
	if !errors.Is(err, ErrUncacheable) {
		t.Errorf("authenticated caller error = %v, want ErrUncacheable", err)
	}
}

func TestFingerprinter_SensitivitySplit(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivitySplit, false)

	anon, _ := fp.Key(context.Background(), "/p", []any{5}, nil)
	alice, _ := fp.Key(authenticatedCtx("alice"), "/p", []any{5}, nil)
	bob, _ := fp.Key(authenticatedCtx("bob"), "/p", []any{5}, nil)

	if alice != bob {
		t.Error("two-way split must share one key among authenticated callers")
	}
	if anon == alice {
		t.Error("two-way split must separate anonymous from authenticated callers")
	}
}

func TestFingerprinter_SensitivityPerUser(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityPerUser, false)

	anon, _ := fp.Key(context.Background(), "/p", []any{5}, nil)
	alice, _ := fp.Key(authenticatedCtx("alice"), "/p", []any{5}, nil)
	bob, _ := fp.Key(authenticatedCtx("bob"), "/p", []any{5}, nil)

	if alice == bob {
		t.Error("per-identity mode must separate distinct principals")
	}
	if anon == alice || anon == bob {
		t.Error("per-identity mode must keep a distinguished anonymous bucket")
	}
}

func TestFingerprinter_LocaleSensitive(t *testing.T) {
	localized := func(locale string) context.Context {
		req := request.New("page", "view")
		req.Locale = locale
		return request.WithRequest(context.Background(), req)
	}

	sensitive := newTestFingerprinter(t, SensitivityNone, true)
	en, _ := sensitive.Key(localized("en"), "/page/view", []any{5}, nil)
	de, _ := sensitive.Key(localized("de"), "/page/view", []any{5}, nil)
	if en == de {
		t.Error("locale-sensitive keys must differ per locale")
	}

	insensitive := newTestFingerprinter(t, SensitivityNone, false)
	en2, _ := insensitive.Key(localized("en"), "/page/view", []any{5}, nil)
	de2, _ := insensitive.Key(localized("de"), "/page/view", []any{5}, nil)
	if en2 != de2 {
		t.Error("locale-insensitive keys must not depend on locale")
	}
}

// TestFingerprinter_MissingArgument verifies the completeness guard: fewer
// positional arguments than declared, no default, name allowlisted.
func TestFingerprinter_MissingArgument(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityNone, false)

	_, err := fp.Key(context.Background(), "/page/view", nil, nil)
	if !errors.Is(err, ErrUncacheable) {
		t.Errorf("Key() error = %v, want ErrUncacheable", err)
	}
}

func TestFingerprinter_DuplicateArgument(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityNone, false)

	_, err := fp.Key(context.Background(), "/page/view", []any{5}, map[string]any{"id": 5})
	if !errors.Is(err, ErrDuplicateArgument) {
		t.Errorf("Key() error = %v, want ErrDuplicateArgument", err)
	}
}

func TestFingerprinter_EnvironmentKey(t *testing.T) {
	build := func(env string, fail bool) *Fingerprinter {
		fp, err := NewFingerprinter(
			renderSignature(),
			SensitivityNone,
			false,
			[]string{"id", "order"},
			func(ctx context.Context) (string, error) {
				if fail {
					return "", errors.New("memcache unavailable")
				}
				return env, nil
			},
			nil, nil,
		)
		if err != nil {
			t.Fatalf("NewFingerprinter() error = %v", err)
		}
		return fp
	}
	ctx := context.Background()

	blue, _ := build("blue", false).Key(ctx, "/p", []any{5}, nil)
	green, _ := build("green", false).Key(ctx, "/p", []any{5}, nil)
	if blue == green {
		t.Error("environment fingerprint must be folded into the key")
	}

	_, err := build("", true).Key(ctx, "/p", []any{5}, nil)
	if !errors.Is(err, ErrUncacheable) {
		t.Errorf("failing environment producer error = %v, want ErrUncacheable", err)
	}
}

func TestFingerprinter_VersionChangesKey(t *testing.T) {
	build := func(version string) *Fingerprinter {
		fp, err := NewFingerprinter(
			renderSignature(),
			SensitivityNone,
			false,
			[]string{"id", "order"},
			nil,
			func(ctx context.Context) (string, error) { return version, nil },
			nil,
		)
		if err != nil {
			t.Fatalf("NewFingerprinter() error = %v", err)
		}
		return fp
	}
	ctx := context.Background()

	v1, _ := build("v1").Key(ctx, "/p", []any{5}, nil)
	v2, _ := build("v2").Key(ctx, "/p", []any{5}, nil)
	if v1 == v2 {
		t.Error("deployment version must be folded into the key")
	}
}

// TestFingerprinter_VersionFailureDegrades verifies a version lookup failure
// degrades to the empty-string component with a logged warning instead of
// failing the key.
func TestFingerprinter_VersionFailureDegrades(t *testing.T) {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("warn", &buf)
	ctx := context.Background()

	failing, err := NewFingerprinter(
		renderSignature(), SensitivityNone, false, []string{"id", "order"},
		nil,
		func(ctx context.Context) (string, error) { return "", errors.New("env not populated") },
		logger,
	)
	if err != nil {
		t.Fatalf("NewFingerprinter() error = %v", err)
	}

	key, err := failing.Key(ctx, "/p", []any{5}, nil)
	if err != nil {
		t.Fatalf("Key() error = %v, want nil (degraded)", err)
	}

	// Same key as a fingerprinter with no version source at all.
	unversioned := newTestFingerprinter(t, SensitivityNone, false)
	want, _ := unversioned.Key(ctx, "/p", []any{5}, nil)
	if key != want {
		t.Error("failed version lookup must degrade to the empty-string component")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one warning log line, got %q", buf.String())
	}
	if entry["level"] != "warn" {
		t.Errorf("log level = %v, want warn", entry["level"])
	}
}

func TestNewFingerprinter_ReservedArgName(t *testing.T) {
	for _, name := range []string{"_cacheEnvironment", "__user", "_x"} {
		t.Run(name, func(t *testing.T) {
			_, err := NewFingerprinter(
				Signature{Params: []string{name}},
				SensitivityNone, false, []string{name},
				nil, nil, nil,
			)
			if !errors.Is(err, ErrReservedArgName) {
				t.Errorf("NewFingerprinter() error = %v, want ErrReservedArgName", err)
			}
		})
	}
}

// TestFingerprinter_KeyIsHexDigest sanity-checks the output encoding.
func TestFingerprinter_KeyIsHexDigest(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityNone, false)

	key, err := fp.Key(context.Background(), "/p", []any{5}, nil)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if len(key) != 128 { // hex-encoded SHA-512
		t.Errorf("key length = %d, want 128", len(key))
	}
	for _, c := range key {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			t.Fatalf("key contains non-hex character %q", c)
		}
	}
}

func TestCanonicalize_MapOrderIndependent(t *testing.T) {
	a := map[string]any{"b": 2, "a": 1, "c": []any{1, 2}}
	b := map[string]any{"c": []any{1, 2}, "a": 1, "b": 2}

	ca, err := canonicalize(a)
	if err != nil {
		t.Fatalf("canonicalize() error = %v", err)
	}
	cb, err := canonicalize(b)
	if err != nil {
		t.Fatalf("canonicalize() error = %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Errorf("canonical forms differ:\n %s\n %s", ca, cb)
	}
}

func TestCanonicalize_Unserializable(t *testing.T) {
	fp := newTestFingerprinter(t, SensitivityNone, false)

	_, err := fp.Key(context.Background(), "/p", []any{func() {}}, map[string]any{"order": "asc"})
	if !errors.Is(err, ErrUncacheable) {
		t.Errorf("Key() with unserializable argument error = %v, want ErrUncacheable", err)
	}
}
