package cache

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const defaultRedisNamespace = "cwt-verifier:did"

// RedisCache shares entries between replicas. Values are stored as JSON with a TTL of the max age, and a
// sorted set of last access times bounds the number of entries.
type RedisCache[V any] struct {
	client    redis.UniversalClient
	clock     clock.Clock
	namespace string
	options
}

var _ Cache[string] = (*RedisCache[string])(nil)

type RedisOption func(*redisSettings)

type redisSettings struct {
	clock     clock.Clock
	namespace string
}

// WithClock sets the clock used to order entries by last access.
func WithClock(c clock.Clock) RedisOption {
	return func(s *redisSettings) {
		s.clock = c
	}
}

// WithNamespace prefixes every key written by the cache.
func WithNamespace(namespace string) RedisOption {
	return func(s *redisSettings) {
		s.namespace = namespace
	}
}

func NewRedisCache[V any](client redis.UniversalClient, opts []Option, redisOpts ...RedisOption) *RedisCache[V] {
	settings := redisSettings{clock: clock.New(), namespace: defaultRedisNamespace}
	for _, opt := range redisOpts {
		opt(&settings)
	}
	return &RedisCache[V]{
		client:    client,
		clock:     settings.clock,
		namespace: settings.namespace,
		options:   newOptions(opts),
	}
}

// NewRedisClient connects to a redis server with tracing enabled.
func NewRedisClient(ctx context.Context, address, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: address, Password: password})
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, errors.Wrap(err, "instrumenting redis client")
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "pinging redis<%s>", address)
	}
	return client, nil
}

func (c *RedisCache[V]) entryKey(key string) string {
	return c.namespace + ":entry:" + key
}

func (c *RedisCache[V]) indexKey() string {
	return c.namespace + ":index"
}

func (c *RedisCache[V]) Get(ctx context.Context, key string) (V, bool) {
	var value V
	raw, err := c.client.Get(ctx, c.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		// expired by TTL; drop it from the index too
		if err = c.client.ZRem(ctx, c.indexKey(), key).Err(); err != nil {
			logrus.WithError(err).Warnf("removing expired cache entry<%s> from index", key)
		}
		return value, false
	}
	if err != nil {
		logrus.WithError(err).Errorf("reading cache entry<%s>", key)
		return value, false
	}
	if err = json.Unmarshal(raw, &value); err != nil {
		logrus.WithError(err).Errorf("decoding cache entry<%s>", key)
		return value, false
	}
	if err = c.client.ZAdd(ctx, c.indexKey(), c.accessedNow(key)).Err(); err != nil {
		logrus.WithError(err).Warnf("touching cache entry<%s>", key)
	}
	return value, true
}

func (c *RedisCache[V]) Set(ctx context.Context, key string, value V) bool {
	raw, err := json.Marshal(value)
	if err != nil {
		logrus.WithError(err).Errorf("encoding cache entry<%s>", key)
		return false
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, c.entryKey(key), raw, c.maxAge)
		pipe.ZAdd(ctx, c.indexKey(), c.accessedNow(key))
		return nil
	})
	if err != nil {
		logrus.WithError(err).Errorf("writing cache entry<%s>", key)
		return false
	}
	if err = c.trim(ctx); err != nil {
		logrus.WithError(err).Warn("trimming cache")
	}
	return true
}

// trim evicts the least recently used entries beyond the max size.
func (c *RedisCache[V]) trim(ctx context.Context) error {
	size, err := c.client.ZCard(ctx, c.indexKey()).Result()
	if err != nil {
		return errors.Wrap(err, "counting entries")
	}
	excess := size - int64(c.maxSize)
	if excess <= 0 {
		return nil
	}
	evicted, err := c.client.ZRange(ctx, c.indexKey(), 0, excess-1).Result()
	if err != nil {
		return errors.Wrap(err, "listing least recently used entries")
	}
	if len(evicted) == 0 {
		return nil
	}
	entryKeys := make([]string, 0, len(evicted))
	members := make([]any, 0, len(evicted))
	for _, key := range evicted {
		entryKeys = append(entryKeys, c.entryKey(key))
		members = append(members, key)
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, entryKeys...)
		pipe.ZRem(ctx, c.indexKey(), members...)
		return nil
	})
	return errors.Wrap(err, "evicting entries")
}

func (c *RedisCache[V]) accessedNow(key string) redis.Z {
	return redis.Z{Score: float64(c.clock.Now().UnixMicro()), Member: key}
}
