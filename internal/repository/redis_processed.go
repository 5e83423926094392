package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProcessedStore marks admitted orders with SETNX so that every gateway
// instance sharing the Redis sees the same marker.
type RedisProcessedStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisProcessedStore(client *RedisClient, ttl time.Duration) *RedisProcessedStore {
	return &RedisProcessedStore{
		rdb:    client.Client,
		prefix: "processed",
		ttl:    ttl,
	}
}

func (s *RedisProcessedStore) key(orderID string) string {
	return s.prefix + ":" + orderID
}

func (s *RedisProcessedStore) IsProcessed(ctx context.Context, orderID string) (bool, error) {
	_, err := s.rdb.Get(ctx, s.key(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis: processed lookup: %w", err)
	}
	return true, nil
}

func (s *RedisProcessedStore) Claim(ctx context.Context, orderID string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, s.key(orderID), time.Now().UTC().Unix(), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis: processed claim: %w", err)
	}
	return ok, nil
}
