package cache

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	redisFieldText  = "t"
	redisFieldValue = "v"
)

// RedisOption configures a redis backed Store.
type RedisOption func(*redisStore)

// WithRedisPrefix namespaces every key written by the store.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *redisStore) { s.prefix = prefix }
}

// WithRedisTTL sets the expiry applied on Put. Zero keeps entries until invalidated.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *redisStore) { s.ttl = ttl }
}

type redisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ Store = (*redisStore)(nil)

// NewRedisStore returns a Store backed by redis. Each fingerprint maps to a
// hash holding the full query text and the msgpack encoded value; the text
// is compared on every lookup so two texts sharing a hashed key never alias.
// The caller owns the client lifecycle.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) Store {
	s := &redisStore{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *redisStore) key(fp Fingerprint) string {
	if s.prefix == "" {
		return fp.Key()
	}
	return s.prefix + ":" + fp.Key()
}

func (s *redisStore) IsCached(ctx context.Context, fp Fingerprint) (bool, error) {
	text, err := s.client.HGet(ctx, s.key(fp), redisFieldText).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "redis lookup %s", fp)
	}
	return text == fp.Text(), nil
}

func (s *redisStore) Put(ctx context.Context, fp Fingerprint, value any) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return errors.Wrapf(err, "encode value for %s", fp)
	}

	key := s.key(fp)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, redisFieldText, fp.Text(), redisFieldValue, data)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return errors.Wrapf(err, "redis store %s", fp)
	}
	return nil
}

func (s *redisStore) Load(ctx context.Context, fp Fingerprint) (any, bool, error) {
	vals, err := s.client.HMGet(ctx, s.key(fp), redisFieldText, redisFieldValue).Result()
	if err != nil {
		return nil, false, errors.Wrapf(err, "redis load %s", fp)
	}
	text, _ := vals[0].(string)
	data, _ := vals[1].(string)
	if vals[0] == nil || vals[1] == nil || text != fp.Text() {
		return nil, false, nil
	}
	return Encoded(data), true, nil
}

// InvalidatePrefix scans the store's keys and deletes those whose stored text
// starts with prefix. Keys are hashed, so every entry under the store prefix
// is visited. On a cluster client only the node serving the scan is searched.
func (s *redisStore) InvalidatePrefix(ctx context.Context, prefix string) (int, error) {
	pattern := KeyPrefix + "*"
	if s.prefix != "" {
		pattern = s.prefix + ":" + pattern
	}

	removed := 0
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		text, err := s.client.HGet(ctx, key, redisFieldText).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return removed, errors.Wrapf(err, "redis lookup %s", key)
		}
		if !strings.HasPrefix(text, prefix) {
			continue
		}
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return removed, errors.Wrapf(err, "redis invalidate %s", key)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, errors.Wrap(err, "redis scan")
	}
	return removed, nil
}

func (s *redisStore) Invalidate(ctx context.Context, fp Fingerprint) error {
	ok, err := s.IsCached(ctx, fp)
	if err != nil || !ok {
		return err
	}
	if err := s.client.Del(ctx, s.key(fp)).Err(); err != nil {
		return errors.Wrapf(err, "redis invalidate %s", fp)
	}
	return nil
}
