package cache

import (
	"context"
	"time"

	"github.com/goliatone/go-query-cache/internal/cacheinfra"
)

// Config exposes in-memory cache configuration options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewStore constructs the default in-memory Store using the provided configuration.
func NewStore(cfg Config) (Store, error) {
	s, err := cacheinfra.NewSturdycStore(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return &memoryStore{s: s}, nil
}

// memoryStore keys the sturdyc store by full query text, so fingerprints
// never collide.
type memoryStore struct {
	s *cacheinfra.SturdycStore
}

var _ Store = (*memoryStore)(nil)

func (m *memoryStore) IsCached(ctx context.Context, fp Fingerprint) (bool, error) {
	return m.s.Contains(ctx, fp.Text()), nil
}

func (m *memoryStore) Put(ctx context.Context, fp Fingerprint, value any) error {
	m.s.Set(ctx, fp.Text(), value)
	return nil
}

func (m *memoryStore) Load(ctx context.Context, fp Fingerprint) (any, bool, error) {
	v, ok := m.s.Get(ctx, fp.Text())
	return v, ok, nil
}

func (m *memoryStore) Invalidate(ctx context.Context, fp Fingerprint) error {
	m.s.Delete(ctx, fp.Text())
	return nil
}

func (m *memoryStore) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	return m.s.DeleteByPrefix(ctx, prefix), nil
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
