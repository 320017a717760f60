package config

import (
	"time"

	"github.com/authchain/authchain/internal/auth/adapter/directory"
	"github.com/authchain/authchain/internal/auth/adapter/oidc"
	"github.com/authchain/authchain/internal/auth/attrmap"
	"github.com/authchain/authchain/internal/logger"
)

// Adapter types.
const (
	AdapterNone = "none"
	AdapterLDAP = "ldap"
	AdapterOIDC = "oidc"
)

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	Log       logger.Log
	Title     string
	Webserver Webserver
	Auth      Auth
}

// Webserver implement webserver settings.
type Webserver struct {
	DisableRecover bool   // disable recover middleware
	Port           int    `validate:"gt=0"` // listening port for the webserver
	ShutDownTime   int    // wait time for shutdown in seconds
	URL            string `validate:"required,url"` // base url for the webserver
	// IdentityAttribute is the request local the authenticated identity is stored under.
	IdentityAttribute string `mapstructure:"identity_attribute"`
	// AuthTimeout bounds the adapter chain of one request.
	AuthTimeout time.Duration `mapstructure:"auth_timeout"`
}

// Auth holds the ordered adapter chain.
type Auth struct {
	Adapters []Adapter `validate:"dive"`
}

// Adapter configures one entry of the adapter chain. Adapters are tried in
// the order they are listed.
type Adapter struct {
	Name              string          `validate:"required"`
	Type              string          `validate:"required,oneof=none ldap oidc"`
	IdentityAttribute string          `mapstructure:"identity_attribute"`
	Map               attrmap.Mapping `validate:"dive"`

	LDAP *directory.Config `mapstructure:"ldap"`
	OIDC *oidc.Config      `mapstructure:"oidc"`
}
