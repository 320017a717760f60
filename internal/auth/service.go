package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/authchain/authchain/internal/auth/attrmap"
)

// Service owns an ordered registry of adapters and authenticates requests
// against them.
type Service struct {
	mu        sync.RWMutex
	adapters  []NamedAdapter
	index     map[string]int
	coercions []attrmap.Option
}

// Option configures a Service.
type Option func(*Service)

// WithCoercion registers a custom attribute coercion used by every identity
// the service creates.
func WithCoercion(kind attrmap.Kind, fn attrmap.Coercion) Option {
	return func(s *Service) {
		s.coercions = append(s.coercions, attrmap.WithCoercion(kind, fn))
	}
}

// NewService creates a new auth service without adapters.
func NewService(opts ...Option) *Service {
	s := &Service{index: make(map[string]int)}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// InjectAdapter registers adapter under name. An empty name defaults to the
// adapter's type name. Adapters are tried in registration order.
func (s *Service) InjectAdapter(adapter Adapter, name string) error {
	if adapter == nil {
		return fmt.Errorf("%w: adapter is nil", ErrConfiguration)
	}

	if name == "" {
		name = fmt.Sprintf("%T", adapter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrAdapterAlreadyRegistered, name)
	}

	s.index[name] = len(s.adapters)
	s.adapters = append(s.adapters, NamedAdapter{Name: name, Adapter: adapter})

	log.Debug().
		Str("adapter", name).
		Str("type", fmt.Sprintf("%T", adapter)).
		Msg("inject auth adapter")

	return nil
}

// HasAdapter reports whether an adapter is registered under name.
func (s *Service) HasAdapter(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.index[name]

	return ok
}

// Adapter returns the adapter registered under name.
func (s *Service) Adapter(name string) (Adapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
	}

	return s.adapters[i].Adapter, nil
}

// Adapters returns the registered adapters in registration order. If names
// are given only those are returned, still in registration order; an unknown
// name fails the whole call.
func (s *Service) Adapters(names ...string) ([]NamedAdapter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(names) == 0 {
		return append([]NamedAdapter(nil), s.adapters...), nil
	}

	wanted := make(map[string]struct{}, len(names))

	for _, name := range names {
		if _, ok := s.index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrAdapterNotFound, name)
		}

		wanted[name] = struct{}{}
	}

	list := make([]NamedAdapter, 0, len(wanted))

	for _, na := range s.adapters {
		if _, ok := wanted[na.Name]; ok {
			list = append(list, na)
		}
	}

	return list, nil
}

// RequireOne tries each adapter in registration order until one matches and
// returns the resulting identity.
//
// Adapter errors, including panics, are logged and treated as that adapter
// failing. Once an adapter matched no further adapter is tried: if its
// response lacks the declared identity attribute RequireOne fails with
// ErrIdentityAttributeMissing. If no adapter matched, or ctx is done, it
// fails with ErrNotAuthenticated.
func (s *Service) RequireOne(ctx context.Context, req Request) (*Identity, error) {
	adapters, _ := s.Adapters()

	for _, na := range adapters {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Str("adapter", na.Name).Msg("authentication aborted")

			return nil, ErrNotAuthenticated
		}

		raw, err := s.authenticate(ctx, na, req)
		if err == nil {
			return s.createIdentity(na, raw)
		}

		if errors.Is(err, ErrDeclined) {
			log.Debug().Err(err).Str("adapter", na.Name).Msg("auth adapter declined")
		} else {
			log.Error().Err(err).Str("adapter", na.Name).Msg("failed authenticate user, auth adapter failed")
		}
	}

	if err := ctx.Err(); err != nil {
		log.Warn().Err(err).Msg("authentication aborted")

		return nil, ErrNotAuthenticated
	}

	log.Warn().Int("adapters", len(adapters)).Msg("all authentication adapters have failed")

	return nil, ErrNotAuthenticated
}

// authenticate runs one adapter, converting a panic into an error.
func (s *Service) authenticate(ctx context.Context, na NamedAdapter, req Request) (raw attrmap.Raw, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			raw = nil
			err = fmt.Errorf("auth adapter panicked: %v", r) //nolint:err113
		}

		adapterDuration.WithLabelValues(na.Name).Observe(time.Since(start).Seconds())
		adapterAttempts.WithLabelValues(na.Name, resultLabel(err)).Inc()
	}()

	return na.Adapter.Authenticate(ctx, req)
}

func (s *Service) createIdentity(na NamedAdapter, raw attrmap.Raw) (*Identity, error) {
	key := na.Adapter.IdentityAttribute()

	id, err := identifier(raw, key)
	if err != nil {
		log.Error().
			Err(err).
			Str("adapter", na.Name).
			Str("identity_attribute", key).
			Msg("auth adapter succeeded without identity attribute, check adapter configuration")

		return nil, err
	}

	identity := &Identity{
		identifier:   id,
		adapterName:  na.Name,
		adapter:      na.Adapter,
		attributeMap: attrmap.New(na.Adapter.AttributeMap(), s.coercions...),
		raw:          copyRaw(raw),
	}

	log.Info().
		Str("identity", id).
		Str("adapter", na.Name).
		Msg("identity authenticated over adapter")

	return identity, nil
}

// identifier resolves the principal identifier under key. An empty key is the
// anonymous identifier.
func identifier(raw attrmap.Raw, key string) (string, error) {
	if key == "" {
		return "", nil
	}

	value, ok := raw[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrIdentityAttributeMissing, key)
	}

	first, ok := attrmap.First(value)
	if !ok {
		return "", fmt.Errorf("%w: %s is empty", ErrIdentityAttributeMissing, key)
	}

	id, err := cast.ToStringE(first)
	if err != nil || id == "" {
		return "", fmt.Errorf("%w: %s has no usable value", ErrIdentityAttributeMissing, key)
	}

	return id, nil
}

func copyRaw(raw attrmap.Raw) attrmap.Raw {
	out := make(attrmap.Raw, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	return out
}
