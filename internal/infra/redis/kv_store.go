package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// KVStore is a Redis-backed app.KeyValueStore.
// Notes:
//   - Keys are namespaced with a prefix so several users (or services) can share one database.
//   - Every write refreshes the TTL; a flag left behind by a crashed gateway expires on its own.
type KVStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewKVStore(client *redis.Client, prefix string, ttl time.Duration) *KVStore {
	return &KVStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

// Scoped returns a store sharing the client whose keys live under an extra prefix.
func (s *KVStore) Scoped(prefix string) *KVStore {
	return &KVStore{client: s.client, prefix: s.prefix + prefix, ttl: s.ttl}
}

func (s *KVStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", s.key(key))
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key, value string) error {
	return errors.Wrapf(s.client.Set(ctx, s.key(key), value, s.ttl).Err(), "set %s", s.key(key))
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	return errors.Wrapf(s.client.Del(ctx, s.key(key)).Err(), "del %s", s.key(key))
}

func (s *KVStore) key(key string) string {
	return s.prefix + key
}
