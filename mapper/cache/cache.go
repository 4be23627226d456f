// Package cache stores mapped struct instances keyed by record kind and
// identifier, so applications that map the same records repeatedly can
// skip refetching and remapping. The mapper itself stays a pure in-memory
// transformation; this layer is opt-in.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/entitymap/entitymap/mapper/core"
)

const (
	// FormatJSON identifies JSON payloads within the store abstraction.
	FormatJSON = "json"
)

var (
	// ErrNotFound indicates the store holds no entry for the key.
	ErrNotFound = errors.New("cache: entry not found")
	// ErrStoreRequired indicates a cache cannot operate without a store.
	ErrStoreRequired = errors.New("cache: store is required")
	// ErrRegistryRequired indicates a cache needs a binding registry.
	ErrRegistryRequired = errors.New("cache: registry is required")
	// ErrBlankKind occurs when a caller provides a blank record kind.
	ErrBlankKind = errors.New("cache: kind must not be blank")
)

// Payload contains serialized bytes plus format information.
type Payload struct {
	Format string
	Data   []byte
}

// Store is the backend contract for cached payloads.
type Store interface {
	Set(ctx context.Context, key string, payload Payload, ttl time.Duration) error
	Get(ctx context.Context, key string) (Payload, error)
	Delete(ctx context.Context, key string) error
}

// Serializer converts mapped structs to and from cached payloads using
// their binding tables.
type Serializer interface {
	Format() string
	Serialize(bindings []core.Binding, value any) (Payload, error)
	Deserialize(bindings []core.Binding, payload Payload, out any) error
}

// Option configures cache behavior.
type Option func(*config)

type config struct {
	namespace  string
	ttl        time.Duration
	serializer Serializer
}

// WithNamespace prepends the provided namespace to all cache keys.
func WithNamespace(namespace string) Option {
	return func(cfg *config) {
		cfg.namespace = namespace
	}
}

// WithTTL sets the TTL applied when writing entries (zero means no TTL).
func WithTTL(ttl time.Duration) Option {
	return func(cfg *config) {
		cfg.ttl = ttl
	}
}

// WithSerializer injects a custom serializer implementation.
func WithSerializer(serializer Serializer) Option {
	return func(cfg *config) {
		cfg.serializer = serializer
	}
}

// Cache persists mapped instances in a Store, serialized under their
// entity field names so cached payloads share the source record's
// vocabulary.
type Cache struct {
	store      Store
	registry   *core.Registry
	serializer Serializer
	namespace  string
	ttl        time.Duration
}

// New constructs a cache around a store and the mapper's registry.
func New(store Store, registry *core.Registry, opts ...Option) (*Cache, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	cfg := config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	serializer := cfg.serializer
	if serializer == nil {
		serializer = NewJSONSerializer()
	}

	return &Cache{
		store:      store,
		registry:   registry,
		serializer: serializer,
		namespace:  cfg.namespace,
		ttl:        cfg.ttl,
	}, nil
}

// Put serializes the instance's bound fields and stores them under the
// kind and identifier.
func (c *Cache) Put(ctx context.Context, kind string, id uuid.UUID, instance any) error {
	if strings.TrimSpace(kind) == "" {
		return ErrBlankKind
	}

	bindings, err := c.registry.Bindings(instance)
	if err != nil {
		return err
	}

	payload, err := c.serializer.Serialize(bindings, instance)
	if err != nil {
		return err
	}

	return c.store.Set(ctx, c.key(kind, id), payload, c.ttl)
}

// Fetch hydrates out, a struct pointer, from the cached payload. Returns
// ErrNotFound when the entry is absent or expired.
func (c *Cache) Fetch(ctx context.Context, kind string, id uuid.UUID, out any) error {
	if strings.TrimSpace(kind) == "" {
		return ErrBlankKind
	}

	bindings, err := c.registry.Bindings(out)
	if err != nil {
		return err
	}

	payload, err := c.store.Get(ctx, c.key(kind, id))
	if err != nil {
		return err
	}

	return c.serializer.Deserialize(bindings, payload, out)
}

// Invalidate removes the cached entry for the kind and identifier.
func (c *Cache) Invalidate(ctx context.Context, kind string, id uuid.UUID) error {
	if strings.TrimSpace(kind) == "" {
		return ErrBlankKind
	}
	return c.store.Delete(ctx, c.key(kind, id))
}

func (c *Cache) key(kind string, id uuid.UUID) string {
	if c.namespace == "" {
		return fmt.Sprintf("%s:%s", kind, id)
	}
	return fmt.Sprintf("%s:%s:%s", c.namespace, kind, id)
}
