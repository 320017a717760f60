package directory

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/authchain/authchain/internal/auth"
)

const (
	// DefaultURI is used when no uri is configured.
	DefaultURI = "ldap://127.0.0.1:389"
	// DefaultAccountFilter is used when no account_filter is configured.
	DefaultAccountFilter = "(uid=%s)"
	// DefaultTimeout bounds every directory operation.
	DefaultTimeout = 10 * time.Second

	ldapPort  = "389"
	ldapsPort = "636"

	optionSizeLimit  = "size_limit"
	optionTimeLimit  = "time_limit"
	optionSkipVerify = "skip_verify"
	optionServerName = "server_name"
)

// Config holds the directory connection and search parameters.
type Config struct {
	// URI is the directory server URL (ldap:// or ldaps://).
	URI string `mapstructure:"uri"`
	// BindDN is the distinguished name used for account searches.
	// Empty means anonymous search.
	BindDN string `mapstructure:"binddn"`
	// BindPW is the password for BindDN.
	BindPW string `mapstructure:"bindpw"`
	// BaseDN is the search base for accounts.
	BaseDN string `mapstructure:"basedn"`
	// TLS upgrades an ldap:// connection with StartTLS.
	TLS bool `mapstructure:"tls"`
	// Options are additional connection options: size_limit, time_limit,
	// skip_verify and server_name.
	Options map[string]string `mapstructure:"options"`
	// AccountFilter is the search filter; its single %s is replaced by the
	// escaped username (e.g. "(uid=%s)").
	AccountFilter string `mapstructure:"account_filter"`
	// Timeout bounds dialing and each directory request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// options is the parsed form of Config.Options.
type options struct {
	sizeLimit  int
	timeLimit  int
	skipVerify bool
	serverName string
}

func (c *Config) setDefaults() {
	if c.URI == "" {
		c.URI = DefaultURI
	}

	if c.AccountFilter == "" {
		c.AccountFilter = DefaultAccountFilter
	}

	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
}

func (c *Config) validate() error {
	u, err := url.Parse(c.URI)
	if err != nil || (u.Scheme != "ldap" && u.Scheme != "ldaps") || u.Host == "" {
		return fmt.Errorf("%w: invalid ldap uri %q", auth.ErrConfiguration, c.URI)
	}

	if strings.Count(c.AccountFilter, "%s") != 1 ||
		strings.Contains(fmt.Sprintf(c.AccountFilter, "x"), "%!") {
		return fmt.Errorf("%w: account_filter must contain exactly one %%s placeholder", auth.ErrConfiguration)
	}

	return nil
}

// address returns host:port of URI, with the scheme's default port if none is given.
func (c *Config) address() string {
	u, err := url.Parse(c.URI)
	if err != nil {
		return c.URI
	}

	port := u.Port()
	if port == "" {
		port = ldapPort
		if c.isLDAPS() {
			port = ldapsPort
		}
	}

	return net.JoinHostPort(u.Hostname(), port)
}

func (c *Config) isLDAPS() bool {
	return strings.HasPrefix(strings.ToLower(c.URI), "ldaps://")
}

func (c *Config) parseOptions() (options, error) {
	var (
		opts options
		err  error
	)

	for key, value := range c.Options {
		switch strings.ToLower(key) {
		case optionSizeLimit:
			opts.sizeLimit, err = cast.ToIntE(value)
		case optionTimeLimit:
			opts.timeLimit, err = cast.ToIntE(value)
		case optionSkipVerify:
			opts.skipVerify, err = cast.ToBoolE(value)
		case optionServerName:
			opts.serverName = value
		default:
			return options{}, fmt.Errorf("%w: invalid ldap option %s given", auth.ErrConfiguration, key)
		}

		if err != nil {
			return options{}, fmt.Errorf("%w: ldap option %s: %w", auth.ErrConfiguration, key, err)
		}
	}

	return opts, nil
}

// tlsConfig returns the TLS configuration for ldaps:// and StartTLS, or nil.
func (c *Config) tlsConfig(opts options) *tls.Config {
	if !c.TLS && !c.isLDAPS() {
		return nil
	}

	serverName := opts.serverName
	if serverName == "" {
		if u, err := url.Parse(c.URI); err == nil {
			serverName = u.Hostname()
		}
	}

	return &tls.Config{
		InsecureSkipVerify: opts.skipVerify, //nolint:gosec // explicitly configured
		ServerName:         serverName,
		MinVersion:         tls.VersionTLS12,
	}
}
