package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jrsteele09/sahasik/credentials"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sahasik:credentials:"

var _ credentials.RefreshRepo = (*RedisRepo)(nil)

// RedisRepo keeps refresh token entries in Redis so several processes can
// share one login. Entries expire through the Redis TTL; the last writer wins.
type RedisRepo struct {
	client *redis.Client
	scope  string
}

// New creates a repo. scope separates the entries of different users or
// profiles sharing one Redis instance.
func New(client *redis.Client, scope string) *RedisRepo {
	return &RedisRepo{client: client, scope: scope}
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}

func (r *RedisRepo) key(name string) string {
	if r.scope == "" {
		return keyPrefix + name
	}
	return keyPrefix + r.scope + ":" + name
}

func (r *RedisRepo) Put(ctx context.Context, entry credentials.Entry) error {
	ttl := time.Until(entry.Expires)
	if ttl <= 0 {
		return r.Delete(ctx, entry.Name)
	}
	b, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("[RedisRepo.Put] %w", err)
	}
	if err := r.client.Set(ctx, r.key(entry.Name), b, ttl).Err(); err != nil {
		return fmt.Errorf("[RedisRepo.Put] %w", err)
	}
	return nil
}

func (r *RedisRepo) Get(ctx context.Context, name string) (*credentials.Entry, error) {
	raw, err := r.client.Get(ctx, r.key(name)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[RedisRepo.Get] %w", err)
	}
	var entry credentials.Entry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("[RedisRepo.Get] %w", err)
	}
	if entry.Expired(time.Now()) {
		return nil, nil
	}
	return &entry, nil
}

func (r *RedisRepo) Delete(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, r.key(name)).Err(); err != nil {
		return fmt.Errorf("[RedisRepo.Delete] %w", err)
	}
	return nil
}
