// Package directory verifies HTTP Basic credentials against an LDAP
// directory. It implements basic.PlainAuthenticator.
//
// For every authentication attempt a fresh connection is opened: the service
// account (binddn) searches the account with the configured filter, exactly
// one entry must match, and a bind as that entry with the supplied password
// proves the credentials. No bind state is shared between requests.
package directory

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"

	"github.com/authchain/authchain/internal/auth"
	"github.com/authchain/authchain/internal/auth/adapter/basic"
	"github.com/authchain/authchain/internal/auth/attrmap"
)

// AttributeDN is the raw attribute holding the entry's distinguished name.
const AttributeDN = "dn"

// Conn is the subset of *ldap.Conn used by the directory.
type Conn interface {
	Bind(username, password string) error
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
	Close() error
}

// Dialer opens directory connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

// Dial implements Dialer.
func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}

// Directory authenticates accounts by search and bind.
type Directory struct {
	cfg               Config
	opts              options
	identityAttribute string
	attributes        []string
	dialer            Dialer
}

var _ basic.PlainAuthenticator = (*Directory)(nil)

// Option configures a Directory.
type Option func(*Directory)

// WithDialer replaces the network dialer, mainly for tests.
func WithDialer(dialer Dialer) Option {
	return func(d *Directory) {
		d.dialer = dialer
	}
}

// New creates a Directory. The search requests the identity attribute and
// every source attribute of mapping.
func New(cfg Config, identityAttribute string, mapping attrmap.Mapping, opts ...Option) (*Directory, error) {
	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if identityAttribute == "" {
		return nil, fmt.Errorf("%w: identity_attribute is required", auth.ErrConfiguration)
	}

	parsed, err := cfg.parseOptions()
	if err != nil {
		return nil, err
	}

	d := &Directory{
		cfg:               cfg,
		opts:              parsed,
		identityAttribute: identityAttribute,
		attributes:        searchAttributes(identityAttribute, mapping),
	}
	d.dialer = DialerFunc(d.dial)

	for _, opt := range opts {
		opt(d)
	}

	if cfg.BindDN == "" {
		log.Warn().Str("uri", cfg.URI).Msg("no binddn set for ldap connection, you should avoid anonymous bind")
	}

	if !cfg.TLS && !cfg.isLDAPS() {
		log.Warn().Str("uri", cfg.URI).
			Msg("neither tls nor ldaps enabled for ldap connection, it is strongly recommended to encrypt ldap connections")
	}

	return d, nil
}

// NewAdapter creates a basic adapter backed by a new Directory.
func NewAdapter(cfg Config, identityAttribute string, mapping attrmap.Mapping, opts ...Option) (*basic.Adapter, error) {
	d, err := New(cfg, identityAttribute, mapping, opts...)
	if err != nil {
		return nil, err
	}

	return basic.New(d, mapping, identityAttribute)
}

// PlainAuth implements basic.PlainAuthenticator.
func (d *Directory) PlainAuth(ctx context.Context, username, password string) (attrmap.Raw, error) {
	conn, err := d.dialer.Dial(ctx)
	if err != nil {
		return nil, err
	}

	// closing the connection aborts any request still in flight
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})

	defer func() {
		if !stop() {
			return
		}

		if errClose := conn.Close(); errClose != nil {
			log.Warn().Err(errClose).Msg("failed to close LDAP connection")
		}
	}()

	if err = d.bindServiceForSearch(conn); err != nil {
		return nil, err
	}

	entry, err := d.searchAccountEntry(conn, username)
	if err != nil {
		return nil, err
	}

	log.Info().Str("dn", entry.DN).Msg("found ldap account")

	if err = d.authenticateAsUser(conn, entry.DN, password); err != nil {
		return nil, err
	}

	log.Debug().Str("dn", entry.DN).Msg("bind ldap account")

	return entryAttributes(entry), nil
}

// dial connects to the directory server, upgrading with StartTLS if configured.
// Connecting and the TLS handshake stop as soon as ctx is done.
func (d *Directory) dial(ctx context.Context) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	netConn, err := (&net.Dialer{Timeout: d.cfg.Timeout}).DialContext(dialCtx, "tcp", d.cfg.address())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to LDAP server: %w", auth.ErrUpstream, err)
	}

	tlsConfig := d.cfg.tlsConfig(d.opts)

	if d.cfg.isLDAPS() {
		tlsConn := tls.Client(netConn, tlsConfig)
		if err = tlsConn.HandshakeContext(dialCtx); err != nil {
			_ = netConn.Close()

			return nil, fmt.Errorf("%w: failed to connect to LDAP server: %w", auth.ErrUpstream, err)
		}

		netConn = tlsConn
	}

	conn := ldap.NewConn(netConn, d.cfg.isLDAPS())
	conn.Start()
	conn.SetTimeout(d.cfg.Timeout)

	if d.cfg.TLS && !d.cfg.isLDAPS() {
		if errStartTLS := conn.StartTLS(tlsConfig); errStartTLS != nil {
			if errClose := conn.Close(); errClose != nil {
				log.Error().Err(errClose).Msg("failed to close LDAP connection")
			}

			return nil, fmt.Errorf("%w: failed to start TLS: %w", auth.ErrUpstream, errStartTLS)
		}
	}

	return conn, nil
}

// bindServiceForSearch binds with the configured service account, if any.
func (d *Directory) bindServiceForSearch(conn Conn) error {
	if d.cfg.BindDN == "" {
		return nil
	}

	if err := conn.Bind(d.cfg.BindDN, d.cfg.BindPW); err != nil {
		return fmt.Errorf("%w: failed to bind with service account: %w", auth.ErrUpstream, err)
	}

	return nil
}

// searchAccountEntry returns the single entry matching username. Zero or
// several matches decline the attempt.
func (d *Directory) searchAccountEntry(conn Conn, username string) (*ldap.Entry, error) {
	filter := fmt.Sprintf(d.cfg.AccountFilter, ldap.EscapeFilter(username))
	searchRequest := ldap.NewSearchRequest(
		d.cfg.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		d.opts.sizeLimit,
		d.opts.timeLimit,
		false,
		filter,
		d.attributes,
		nil,
	)

	searchResult, err := conn.Search(searchRequest)

	switch {
	case ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded):
		// the server cut the result short, so more than one entry matched
		log.Warn().Str("filter", filter).Int("size_limit", d.opts.sizeLimit).
			Msg("size limit exceeded searching ldap account, more than one object matches")

		return nil, fmt.Errorf("%w: multiple accounts found", auth.ErrDeclined)
	case err != nil:
		return nil, fmt.Errorf("%w: failed to search for account: %w", auth.ErrUpstream, err)
	case searchResult == nil:
		return nil, fmt.Errorf("%w: empty search response", auth.ErrUpstream)
	}

	switch len(searchResult.Entries) {
	case 0:
		log.Warn().Str("filter", filter).Msg("no object found with ldap filter")

		return nil, fmt.Errorf("%w: no account found", auth.ErrDeclined)
	case 1:
		return searchResult.Entries[0], nil
	default:
		log.Warn().Str("filter", filter).Int("entries", len(searchResult.Entries)).
			Msg("more than one object found with ldap filter")

		return nil, fmt.Errorf("%w: multiple accounts found", auth.ErrDeclined)
	}
}

// authenticateAsUser binds using the account DN and the supplied password.
func (d *Directory) authenticateAsUser(conn Conn, dn, password string) error {
	err := conn.Bind(dn, password)

	switch {
	case err == nil:
		return nil
	case ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials):
		return fmt.Errorf("%w: invalid credentials for %s", auth.ErrDeclined, dn)
	default:
		return fmt.Errorf("%w: failed to bind ldap account: %w", auth.ErrUpstream, err)
	}
}

func searchAttributes(identityAttribute string, mapping attrmap.Mapping) []string {
	seen := map[string]struct{}{AttributeDN: {}}
	attrs := []string{identityAttribute}
	seen[identityAttribute] = struct{}{}

	for _, e := range mapping {
		if _, ok := seen[e.Attr]; ok || e.Attr == "" {
			continue
		}

		seen[e.Attr] = struct{}{}
		attrs = append(attrs, e.Attr)
	}

	return attrs
}

func entryAttributes(entry *ldap.Entry) attrmap.Raw {
	raw := make(attrmap.Raw, len(entry.Attributes)+1)

	for _, a := range entry.Attributes {
		raw[a.Name] = append([]string(nil), a.Values...)
	}

	raw[AttributeDN] = entry.DN

	return raw
}
