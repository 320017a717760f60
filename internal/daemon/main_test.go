package daemon

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/auth/adapter/basic"
	"github.com/authchain/authchain/internal/auth/adapter/directory"
	"github.com/authchain/authchain/internal/auth/adapter/none"
	"github.com/authchain/authchain/internal/auth/adapter/oidc"
	"github.com/authchain/authchain/internal/auth/attrmap"
	"github.com/authchain/authchain/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		Title: "authchain",
		Webserver: config.Webserver{
			Port:              8080,
			URL:               "http://localhost:8080",
			IdentityAttribute: config.DefaultIdentityAttribute,
		},
		Auth: config.Auth{
			Adapters: []config.Adapter{
				{
					Name: "sso",
					Type: config.AdapterOIDC,
					OIDC: &oidc.Config{ProviderURL: "https://sso.example.com"},
				},
				{
					Name:              "directory",
					Type:              config.AdapterLDAP,
					IdentityAttribute: "uid",
					LDAP:              &directory.Config{BaseDN: "dc=example,dc=com"},
				},
				{
					Name: "anonymous",
					Type: config.AdapterNone,
					Map:  attrmap.Mapping{{Name: "role", Attr: "role", Type: attrmap.KindString}},
				},
			},
		},
	}
}

func TestNewAuthService(t *testing.T) {
	svc, err := NewAuthService(testConfig())
	require.NoError(t, err)

	adapters, err := svc.Adapters()
	require.NoError(t, err)
	require.Len(t, adapters, 3)

	assert.Equal(t, "sso", adapters[0].Name)
	assert.IsType(t, &oidc.Adapter{}, adapters[0].Adapter)
	assert.Equal(t, "directory", adapters[1].Name)
	assert.IsType(t, &basic.Adapter{}, adapters[1].Adapter)
	assert.Equal(t, "uid", adapters[1].Adapter.IdentityAttribute())
	assert.Equal(t, "anonymous", adapters[2].Name)
	assert.IsType(t, &none.Adapter{}, adapters[2].Adapter)
}

func TestNewAuthServiceAnonymous(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Adapters = cfg.Auth.Adapters[2:]

	svc, err := NewAuthService(cfg)
	require.NoError(t, err)

	identity, err := svc.RequireOne(context.Background(), auth.StaticRequest{})
	require.NoError(t, err)
	assert.Equal(t, "anonymous", identity.AdapterName())
	assert.Empty(t, identity.Identifier())
}

func TestNewAuthServiceErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *config.Config)
	}{
		{
			name:   "oidc without endpoints",
			modify: func(c *config.Config) { c.Auth.Adapters[0].OIDC = nil },
		},
		{
			name: "ldap with invalid uri",
			modify: func(c *config.Config) {
				c.Auth.Adapters[1].LDAP = &directory.Config{URI: "http://localhost"}
			},
		},
		{
			name:   "unknown type",
			modify: func(c *config.Config) { c.Auth.Adapters[2].Type = "kerberos" },
		},
		{
			name:   "duplicate name",
			modify: func(c *config.Config) { c.Auth.Adapters[2].Name = "sso" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(cfg)

			_, err := NewAuthService(cfg)
			require.Error(t, err)
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	d, err := New(testConfig())
	require.NoError(t, err)
	require.NotNil(t, d.webService)
}
