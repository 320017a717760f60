// Package oidc provides an adapter for OAuth2 bearer tokens verified by an
// OpenID Connect provider.
//
// A token is accepted if the provider answers a request carrying it with
// status 200 and a JSON object. The request goes either to a configured token
// validation URL (RFC 7662 style, the token replaces "{token}") or to the
// userinfo_endpoint announced by the provider's discovery document. The JSON
// object becomes the raw attributes of the identity.
package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/auth/attrmap"
)

const (
	// Scheme is the HTTP authentication scheme handled by this adapter.
	Scheme = "Bearer"
	// QueryAccessToken is the discouraged query parameter fallback (RFC 6750 2.3).
	QueryAccessToken = "access_token"
	// DiscoveryPath is appended to the provider URL to locate the discovery document.
	DiscoveryPath = "/.well-known/openid-configuration"
	// DefaultIdentityAttribute is used when no identity attribute is configured.
	DefaultIdentityAttribute = "preferred_username"
	// DefaultTimeout bounds discovery and token verification requests.
	DefaultTimeout = 10 * time.Second

	tokenPlaceholder = "{token}"
	maxResponseSize  = 1 << 20
)

// Config holds the provider endpoints.
type Config struct {
	// ProviderURL is the issuer URL of the OpenID Connect provider.
	ProviderURL string `mapstructure:"provider_url"`
	// TokenValidationURL, if set, is called instead of the userinfo endpoint.
	// It must contain the placeholder {token}.
	TokenValidationURL string `mapstructure:"token_validation_url"`
	// Timeout bounds each outbound request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Adapter authenticates requests carrying a bearer token.
type Adapter struct {
	cfg               Config
	mapping           attrmap.Mapping
	identityAttribute string
	client            *http.Client
	discovery         *DiscoveryCache
}

var _ auth.Adapter = (*Adapter)(nil)

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the HTTP client used for all provider requests.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Adapter) {
		if client != nil {
			a.client = client
		}
	}
}

// WithDiscoveryCache replaces DefaultDiscoveryCache.
func WithDiscoveryCache(cache *DiscoveryCache) Option {
	return func(a *Adapter) {
		if cache != nil {
			a.discovery = cache
		}
	}
}

// New creates an OIDC adapter. An empty identityAttribute defaults to
// DefaultIdentityAttribute.
func New(cfg Config, identityAttribute string, mapping attrmap.Mapping, opts ...Option) (*Adapter, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if identityAttribute == "" {
		identityAttribute = DefaultIdentityAttribute
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		cfg:               cfg,
		mapping:           append(attrmap.Mapping(nil), mapping...),
		identityAttribute: identityAttribute,
		client:            &http.Client{Timeout: cfg.Timeout},
		discovery:         DefaultDiscoveryCache,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a, nil
}

func (c *Config) validate() error {
	if c.ProviderURL == "" && c.TokenValidationURL == "" {
		return fmt.Errorf("%w: either provider_url or token_validation_url is required", auth.ErrConfiguration)
	}

	if c.ProviderURL != "" {
		if u, err := url.Parse(c.ProviderURL); err != nil || u.Host == "" {
			return fmt.Errorf("%w: invalid provider_url %q", auth.ErrConfiguration, c.ProviderURL)
		}
	}

	if c.TokenValidationURL != "" && !strings.Contains(c.TokenValidationURL, tokenPlaceholder) {
		return fmt.Errorf("%w: token_validation_url must contain %s", auth.ErrConfiguration, tokenPlaceholder)
	}

	return nil
}

// DiscoveryURL returns the location of the provider's discovery document.
func (a *Adapter) DiscoveryURL() string {
	return normalizeProviderURL(a.cfg.ProviderURL) + DiscoveryPath
}

// AttributeMap implements auth.Adapter.
func (a *Adapter) AttributeMap() attrmap.Mapping {
	return append(attrmap.Mapping(nil), a.mapping...)
}

// IdentityAttribute implements auth.Adapter.
func (a *Adapter) IdentityAttribute() string {
	return a.identityAttribute
}

// Authenticate implements auth.Adapter.
func (a *Adapter) Authenticate(ctx context.Context, req auth.Request) (attrmap.Raw, error) {
	token, err := accessToken(req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	var raw attrmap.Raw

	if a.cfg.TokenValidationURL != "" {
		raw, err = a.introspect(ctx, token)
	} else {
		raw, err = a.userinfo(ctx, token)
	}

	if err != nil {
		return nil, err
	}

	if _, ok := raw[a.identityAttribute]; !ok {
		return nil, fmt.Errorf("%w: %s not found in oauth2 response", auth.ErrIdentityAttributeMissing, a.identityAttribute)
	}

	log.Debug().Msg("successfully verified oauth2 access token via authorization server")

	return raw, nil
}

// introspect verifies token with the configured token validation URL.
func (a *Adapter) introspect(ctx context.Context, token string) (attrmap.Raw, error) {
	endpoint := strings.ReplaceAll(a.cfg.TokenValidationURL, tokenPlaceholder, url.QueryEscape(token))

	log.Debug().Msg("validate oauth2 token via token validation endpoint")

	raw, err := fetchAttributes(ctx, a.client, endpoint)
	if err != nil {
		return nil, err
	}

	// RFC 7662 answers 200 for inactive tokens as well
	if active, ok := raw["active"].(bool); ok && !active {
		return nil, fmt.Errorf("%w: token is not active", auth.ErrInvalidToken)
	}

	return raw, nil
}

// userinfo verifies token by calling the provider's userinfo endpoint.
func (a *Adapter) userinfo(ctx context.Context, token string) (attrmap.Raw, error) {
	provider, err := a.discovery.Provider(ctx, a.cfg.ProviderURL, a.client, a.cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrUpstream, err)
	}

	var discovery struct {
		UserInfoURL string `json:"userinfo_endpoint"`
	}

	if err = provider.Claims(&discovery); err != nil || discovery.UserInfoURL == "" {
		a.discovery.Invalidate(a.cfg.ProviderURL)

		return nil, fmt.Errorf("%w: userinfo_endpoint could not be determined", auth.ErrUpstream)
	}

	log.Debug().Str("userinfo_endpoint", discovery.UserInfoURL).
		Msg("validate token via openid-connect userinfo_endpoint")

	client := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, a.client),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: Scheme}),
	)

	raw, err := fetchAttributes(ctx, client, discovery.UserInfoURL)
	if errors.Is(err, auth.ErrUpstream) {
		a.discovery.Invalidate(a.cfg.ProviderURL)
	}

	return raw, err
}

// accessToken extracts the bearer token from the Authorization header or,
// failing that, from the access_token query parameter.
func accessToken(req auth.Request) (string, error) {
	if header := req.Header(auth.HeaderAuthorization); header != "" {
		scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
		if found && strings.EqualFold(scheme, Scheme) {
			if token := strings.TrimSpace(value); token != "" {
				log.Debug().Msg("found http bearer authorization header")

				return token, nil
			}
		}
	}

	if token := req.Query(QueryAccessToken); token != "" {
		log.Warn().
			Str("parameter", QueryAccessToken).
			Msg("access token passed as query parameter, use the authorization header instead (RFC 6750 section 2.3)")

		return token, nil
	}

	return "", fmt.Errorf("%w: no http bearer authorization header or access_token param found", auth.ErrDeclined)
}

// fetchAttributes performs a GET on endpoint and decodes a JSON object body.
func fetchAttributes(ctx context.Context, client *http.Client, endpoint string) (attrmap.Raw, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid verification url: %w", auth.ErrConfiguration, err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to reach authorization server: %w", auth.ErrUpstream, err)
	}

	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).
			Msg("failed verify oauth2 access token via authorization server")

		return nil, fmt.Errorf("%w: authorization server returned status %d", auth.ErrInvalidToken, resp.StatusCode)
	}

	// numbers stay json.Number so large numeric ids keep their precision
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize))
	dec.UseNumber()

	var raw attrmap.Raw
	if err = dec.Decode(&raw); err != nil || raw == nil {
		return nil, fmt.Errorf("%w: authorization server returned no json object", auth.ErrUpstream)
	}

	return raw, nil
}
