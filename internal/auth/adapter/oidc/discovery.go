package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultDiscoveryTTL is how long a discovery document is reused.
	DefaultDiscoveryTTL = time.Hour
	// DefaultDiscoverySize is the number of provider documents kept.
	DefaultDiscoverySize = 64
)

var errIssuerMismatch = errors.New("oidc: issuer mismatch")

// DefaultDiscoveryCache is shared by all adapters unless configured otherwise.
var DefaultDiscoveryCache = NewDiscoveryCache(DefaultDiscoverySize, DefaultDiscoveryTTL)

// DiscoveryCache holds resolved OpenID Connect providers keyed by provider
// URL. Concurrent lookups of the same uncached provider share one fetch;
// failed fetches are not cached.
type DiscoveryCache struct {
	providers *expirable.LRU[string, *gooidc.Provider]
	group     singleflight.Group
}

// NewDiscoveryCache creates a cache holding at most size providers for ttl.
func NewDiscoveryCache(size int, ttl time.Duration) *DiscoveryCache {
	if size <= 0 {
		size = DefaultDiscoverySize
	}

	if ttl <= 0 {
		ttl = DefaultDiscoveryTTL
	}

	return &DiscoveryCache{
		providers: expirable.NewLRU[string, *gooidc.Provider](size, nil, ttl),
	}
}

// Provider returns the provider for providerURL, fetching its discovery
// document with client if it is not cached. The fetch is not cancelled when
// ctx is, since other callers may wait for it, but it is bounded by timeout.
// Provider URLs and issuers are compared without trailing slashes.
func (c *DiscoveryCache) Provider(
	ctx context.Context,
	providerURL string,
	client *http.Client,
	timeout time.Duration,
) (*gooidc.Provider, error) {
	providerURL = normalizeProviderURL(providerURL)

	if provider, ok := c.providers.Get(providerURL); ok {
		return provider, nil
	}

	ch := c.group.DoChan(providerURL, func() (any, error) {
		if provider, ok := c.providers.Get(providerURL); ok {
			return provider, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		log.Debug().Str("provider_url", providerURL).Msg("fetch openid-connect discovery document")

		// the issuer is checked below, tolerating a trailing slash on either side
		fetchCtx = gooidc.InsecureIssuerURLContext(gooidc.ClientContext(fetchCtx, client), providerURL)

		provider, err := gooidc.NewProvider(fetchCtx, providerURL)
		if err == nil {
			err = checkIssuer(provider, providerURL)
		}

		if err != nil {
			discoveryFetches.WithLabelValues("error").Inc()

			return nil, fmt.Errorf("failed to get openid-connect discovery document: %w", err)
		}

		discoveryFetches.WithLabelValues("success").Inc()
		c.providers.Add(providerURL, provider)

		return provider, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		provider, _ := res.Val.(*gooidc.Provider)

		return provider, nil
	}
}

// Invalidate drops the cached provider for providerURL.
func (c *DiscoveryCache) Invalidate(providerURL string) {
	providerURL = normalizeProviderURL(providerURL)

	if c.providers.Remove(providerURL) {
		log.Debug().Str("provider_url", providerURL).Msg("invalidated openid-connect discovery document")
	}
}

// Len returns the number of cached providers.
func (c *DiscoveryCache) Len() int {
	return c.providers.Len()
}

func normalizeProviderURL(providerURL string) string {
	return strings.TrimRight(providerURL, "/")
}

// checkIssuer verifies the document was issued for providerURL.
func checkIssuer(provider *gooidc.Provider, providerURL string) error {
	var doc struct {
		Issuer string `json:"issuer"`
	}

	if err := provider.Claims(&doc); err != nil {
		return err //nolint:wrapcheck
	}

	if normalizeProviderURL(doc.Issuer) != providerURL {
		return fmt.Errorf("%w: issuer %q does not match provider url %q", errIssuerMismatch, doc.Issuer, providerURL)
	}

	return nil
}
