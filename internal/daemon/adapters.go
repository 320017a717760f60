package daemon

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/auth/adapter/directory"
	"github.com/authchain/authchain/internal/auth/adapter/none"
	"github.com/authchain/authchain/internal/auth/adapter/oidc"
	"github.com/authchain/authchain/internal/config"
)

// NewAuthService builds the auth service with the configured adapter chain,
// registered in configuration order.
func NewAuthService(cfg *config.Config, opts ...auth.Option) (*auth.Service, error) {
	svc := auth.NewService(opts...)

	for _, ac := range cfg.Auth.Adapters {
		adapter, err := newAdapter(ac)
		if err != nil {
			return nil, fmt.Errorf("auth adapter %s: %w", ac.Name, err)
		}

		if err = svc.InjectAdapter(adapter, ac.Name); err != nil {
			return nil, err //nolint:wrapcheck
		}

		log.Info().Str("adapter", ac.Name).Str("type", ac.Type).Msg("auth adapter configured")
	}

	return svc, nil
}

func newAdapter(ac config.Adapter) (auth.Adapter, error) {
	switch ac.Type {
	case config.AdapterNone:
		return none.New(ac.Map), nil
	case config.AdapterLDAP:
		var ldapCfg directory.Config
		if ac.LDAP != nil {
			ldapCfg = *ac.LDAP
		}

		return directory.NewAdapter(ldapCfg, ac.IdentityAttribute, ac.Map) //nolint:wrapcheck
	case config.AdapterOIDC:
		var oidcCfg oidc.Config
		if ac.OIDC != nil {
			oidcCfg = *ac.OIDC
		}

		return oidc.New(oidcCfg, ac.IdentityAttribute, ac.Map) //nolint:wrapcheck
	default:
		return nil, fmt.Errorf("%w: unknown adapter type %q", auth.ErrConfiguration, ac.Type)
	}
}
