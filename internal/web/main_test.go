package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/auth/adapter/basic"
	"github.com/authchain/authchain/internal/auth/attrmap"
	"github.com/authchain/authchain/internal/config"
	"github.com/authchain/authchain/internal/logger/adapter/stdlogger"
	"github.com/authchain/authchain/internal/web/handler/whoami"
)

type staticAccount struct{}

func (staticAccount) PlainAuth(_ context.Context, username, password string) (attrmap.Raw, error) {
	if username != "alice" || password != "secret" {
		return nil, fmt.Errorf("%w: unknown account", auth.ErrDeclined)
	}

	return attrmap.Raw{"uid": []string{"alice"}, "memberOf": []string{"admins"}}, nil
}

func newTestService(t *testing.T) *Service {
	t.Helper()

	a, err := basic.New(staticAccount{}, attrmap.Mapping{
		{Name: "groups", Attr: "memberOf", Type: attrmap.KindArray},
	}, "uid")
	require.NoError(t, err)

	svc := auth.NewService()
	require.NoError(t, svc.InjectAdapter(a, "ldap"))

	return New(&config.Config{
		Title: "authchain",
		Webserver: config.Webserver{
			Port:              8080,
			URL:               "http://localhost:8080",
			IdentityAttribute: config.DefaultIdentityAttribute,
		},
	}, svc)
}

func get(t *testing.T, s *Service, path, authorization string) (int, []byte) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(auth.HeaderAuthorization, authorization)
	}

	resp, err := s.App.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func TestCheckAlive(t *testing.T) {
	s := newTestService(t)

	status, body := get(t, s, CheckAlivePath, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", string(body))

	s.alive.Store(false)

	status, _ = get(t, s, CheckAlivePath, "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestMetrics(t *testing.T) {
	s := newTestService(t)

	// produce at least one adapter sample
	_, _ = get(t, s, whoami.Path, "")

	status, body := get(t, s, MetricsPath, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "authchain_adapter_attempts_total")
}

func TestWhoami(t *testing.T) {
	s := newTestService(t)

	status, _ := get(t, s, whoami.Path, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := get(t, s, whoami.Path,
		"Basic "+base64.StdEncoding.EncodeToString([]byte("alice:secret")))
	require.Equal(t, http.StatusOK, status)

	var resp whoami.Response
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, whoami.Response{
		Identifier: "alice",
		Adapter:    "ldap",
		Attributes: map[string]any{"groups": []any{"admins"}},
	}, resp)
}

func TestServerLogsThroughZerolog(t *testing.T) {
	s := newTestService(t)

	assert.IsType(t, &stdlogger.Logger{}, s.App.Server().Logger)
}

func TestNewPanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { New(nil, auth.NewService()) })
	assert.Panics(t, func() { New(&config.Config{}, nil) })
}
