package kvstore

import (
	"context"
	"errors"
	"time"

	redislib "github.com/redis/go-redis/v9"

	redisclient "github.com/mercadito-app/mercadito-backend/pkg/redis"
)

// Redis adapts the platform Redis client to the Storage contract. Keys are
// namespaced under the client's state prefix; a TTL of zero persists forever.
type Redis struct {
	client *redisclient.Client
	ttl    time.Duration
}

// NewRedis wraps the provided client. ttl bounds how long snapshots are kept
// (guest state typically expires, authenticated state does not).
func NewRedis(client *redisclient.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) GetItem(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.client.StateKey(key))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (r *Redis) SetItem(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.client.StateKey(key), value, r.ttl)
}

func (r *Redis) RemoveItem(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.client.StateKey(key))
}
