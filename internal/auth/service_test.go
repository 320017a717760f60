package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authchain/authchain/internal/auth/attrmap"
)

type stubAdapter struct {
	mu       sync.Mutex
	calls    int
	raw      attrmap.Raw
	err      error
	panicMsg string
	mapping  attrmap.Mapping
	identity string
	onCall   func(ctx context.Context)
}

func (s *stubAdapter) Authenticate(ctx context.Context, _ Request) (attrmap.Raw, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.onCall != nil {
		s.onCall(ctx)
	}

	if s.panicMsg != "" {
		panic(s.panicMsg)
	}

	return s.raw, s.err
}

func (s *stubAdapter) AttributeMap() attrmap.Mapping { return s.mapping }

func (s *stubAdapter) IdentityAttribute() string { return s.identity }

func (s *stubAdapter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.calls
}

func declining() *stubAdapter {
	return &stubAdapter{err: fmt.Errorf("%w: no credentials", ErrDeclined), identity: "uid"}
}

func matching(uid string) *stubAdapter {
	return &stubAdapter{raw: attrmap.Raw{"uid": []string{uid}}, identity: "uid"}
}

func emptyRequest() StaticRequest {
	return StaticRequest{Headers: http.Header{}}
}

func TestInjectAdapter(t *testing.T) {
	svc := NewService()

	require.ErrorIs(t, svc.InjectAdapter(nil, "nil"), ErrConfiguration)
	require.NoError(t, svc.InjectAdapter(matching("a"), "first"))
	require.ErrorIs(t, svc.InjectAdapter(matching("b"), "first"), ErrAdapterAlreadyRegistered)

	// the default name is the adapter type
	require.NoError(t, svc.InjectAdapter(matching("c"), ""))
	assert.True(t, svc.HasAdapter("*auth.stubAdapter"))
	require.ErrorIs(t, svc.InjectAdapter(matching("d"), ""), ErrAdapterAlreadyRegistered)

	assert.True(t, svc.HasAdapter("first"))
	assert.False(t, svc.HasAdapter("second"))
}

func TestAdapterLookup(t *testing.T) {
	svc := NewService()
	first := matching("a")
	require.NoError(t, svc.InjectAdapter(first, "first"))

	a, err := svc.Adapter("first")
	require.NoError(t, err)
	assert.Same(t, first, a)

	_, err = svc.Adapter("missing")
	require.ErrorIs(t, err, ErrAdapterNotFound)
}

func TestAdapters(t *testing.T) {
	svc := NewService()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, svc.InjectAdapter(matching(name), name))
	}

	names := func(list []NamedAdapter) []string {
		out := make([]string, 0, len(list))
		for _, na := range list {
			out = append(out, na.Name)
		}

		return out
	}

	all, err := svc.Adapters()
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, names(all))

	filtered, err := svc.Adapters("b", "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b"}, names(filtered))

	_, err = svc.Adapters("a", "missing")
	require.ErrorIs(t, err, ErrAdapterNotFound)
}

func TestRequireOneFallthrough(t *testing.T) {
	failing := &stubAdapter{err: fmt.Errorf("%w: directory down", ErrUpstream), identity: "uid"}
	first := declining()
	winner := matching("alice")
	after := matching("bob")

	svc := NewService()
	require.NoError(t, svc.InjectAdapter(first, "declining"))
	require.NoError(t, svc.InjectAdapter(failing, "failing"))
	require.NoError(t, svc.InjectAdapter(winner, "winner"))
	require.NoError(t, svc.InjectAdapter(after, "after"))

	identity, err := svc.RequireOne(context.Background(), emptyRequest())
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Identifier())
	assert.Equal(t, "winner", identity.AdapterName())
	assert.Same(t, winner, identity.Adapter())

	assert.Equal(t, 1, first.callCount())
	assert.Equal(t, 1, failing.callCount())
	assert.Equal(t, 1, winner.callCount())
	assert.Zero(t, after.callCount())
}

func TestRequireOneAllDeclined(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.InjectAdapter(declining(), "one"))
	require.NoError(t, svc.InjectAdapter(&stubAdapter{err: ErrInvalidToken, identity: "sub"}, "two"))

	identity, err := svc.RequireOne(context.Background(), emptyRequest())
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Nil(t, identity)
}

func TestRequireOneNoAdapters(t *testing.T) {
	_, err := NewService().RequireOne(context.Background(), emptyRequest())
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRequireOneIdentityAttributeMissingIsHardStop(t *testing.T) {
	testCases := []struct {
		name string
		raw  attrmap.Raw
	}{
		{name: "absent", raw: attrmap.Raw{"mail": []string{"alice@example.org"}}},
		{name: "empty list", raw: attrmap.Raw{"uid": []string{}}},
		{name: "empty string", raw: attrmap.Raw{"uid": ""}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			next := matching("bob")

			svc := NewService()
			require.NoError(t, svc.InjectAdapter(&stubAdapter{raw: tc.raw, identity: "uid"}, "broken"))
			require.NoError(t, svc.InjectAdapter(next, "next"))

			_, err := svc.RequireOne(context.Background(), emptyRequest())
			require.ErrorIs(t, err, ErrIdentityAttributeMissing)
			assert.Zero(t, next.callCount())
		})
	}
}

func TestRequireOneAdapterIdentityAttributeMissingFallsThrough(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.InjectAdapter(&stubAdapter{err: ErrIdentityAttributeMissing, identity: "sub"}, "oidc"))
	require.NoError(t, svc.InjectAdapter(matching("alice"), "ldap"))

	identity, err := svc.RequireOne(context.Background(), emptyRequest())
	require.NoError(t, err)
	assert.Equal(t, "ldap", identity.AdapterName())
}

func TestRequireOneRecoversPanics(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.InjectAdapter(&stubAdapter{panicMsg: "boom", identity: "uid"}, "panicking"))
	require.NoError(t, svc.InjectAdapter(matching("alice"), "winner"))

	before := testutil.ToFloat64(adapterAttempts.WithLabelValues("panicking", resultError))

	identity, err := svc.RequireOne(context.Background(), emptyRequest())
	require.NoError(t, err)
	assert.Equal(t, "alice", identity.Identifier())
	assert.InDelta(t, before+1, testutil.ToFloat64(adapterAttempts.WithLabelValues("panicking", resultError)), 0)
}

func TestRequireOneCancellation(t *testing.T) {
	t.Run("cancelled before start", func(t *testing.T) {
		first := matching("alice")

		svc := NewService()
		require.NoError(t, svc.InjectAdapter(first, "first"))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := svc.RequireOne(ctx, emptyRequest())
		require.ErrorIs(t, err, ErrNotAuthenticated)
		assert.Zero(t, first.callCount())
	})

	t.Run("cancelled by an adapter", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		first := &stubAdapter{
			err:      ErrUpstream,
			identity: "uid",
			onCall:   func(context.Context) { cancel() },
		}
		second := matching("alice")

		svc := NewService()
		require.NoError(t, svc.InjectAdapter(first, "first"))
		require.NoError(t, svc.InjectAdapter(second, "second"))

		_, err := svc.RequireOne(ctx, emptyRequest())
		require.ErrorIs(t, err, ErrNotAuthenticated)
		assert.Zero(t, second.callCount())
	})
}

func TestRequireOneAnonymous(t *testing.T) {
	svc := NewService()
	require.NoError(t, svc.InjectAdapter(&stubAdapter{raw: attrmap.Raw{}}, "anonymous"))

	identity, err := svc.RequireOne(context.Background(), emptyRequest())
	require.NoError(t, err)
	assert.Empty(t, identity.Identifier())
	assert.Empty(t, identity.Attributes())
}

func TestIdentityAttributes(t *testing.T) {
	raw := attrmap.Raw{
		"uid":        []string{"alice"},
		"mail":       []string{"alice@example.org"},
		"memberOf":   []string{"admins", "users"},
		"uidNumber":  []string{"1000"},
		"loginShell": []string{"/bin/zsh"},
	}
	adapter := &stubAdapter{
		raw:      raw,
		identity: "uid",
		mapping: attrmap.Mapping{
			{Name: "email", Attr: "mail", Type: attrmap.KindString},
			{Name: "groups", Attr: "memberOf", Type: attrmap.KindArray},
			{Name: "uid_number", Attr: "uidNumber", Type: attrmap.KindInt},
			{Name: "shell", Attr: "loginShell", Type: attrmap.KindCustom},
			{Name: "missing", Attr: "nope", Type: attrmap.KindString},
		},
	}

	svc := NewService(WithCoercion(attrmap.KindCustom, func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("not a string")
		}

		return strings.TrimPrefix(s, "/bin/"), nil
	}))
	require.NoError(t, svc.InjectAdapter(adapter, "ldap"))

	identity, err := svc.RequireOne(context.Background(), emptyRequest())
	require.NoError(t, err)

	want := map[string]any{
		"email":      "alice@example.org",
		"groups":     []any{"admins", "users"},
		"uid_number": 1000,
		"shell":      "zsh",
	}
	assert.Equal(t, want, identity.Attributes())

	// raw attributes are captured at authentication time
	raw["mail"] = []string{"mallory@example.org"}
	assert.Equal(t, want, identity.Attributes())
}

func TestIdentityContext(t *testing.T) {
	assert.Nil(t, IdentityFromContext(context.Background()))

	id := &Identity{identifier: "alice"}
	ctx := WithIdentity(context.Background(), id)
	assert.Same(t, id, IdentityFromContext(ctx))
}
