package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/GoPolymarket/swapgate/internal/model"
	"github.com/GoPolymarket/swapgate/internal/service"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisPriceCache reads USD prices published by an external price feeder.
// Each token is a hash at price:{chain_id}:{token hex} with fields "usd" and
// "ts" (unix seconds).
type RedisPriceCache struct {
	rdb    *redis.Client
	maxAge time.Duration
}

// NewRedisPriceCache returns a cache that treats entries older than maxAge
// as missing. A zero maxAge accepts any age.
func NewRedisPriceCache(client *RedisClient, maxAge time.Duration) *RedisPriceCache {
	return &RedisPriceCache{rdb: client.Client, maxAge: maxAge}
}

func priceKey(chainID model.ChainID, token []byte) string {
	return fmt.Sprintf("price:%d:%s", chainID, hexutil.Encode(token))
}

func (c *RedisPriceCache) SetPrice(ctx context.Context, chainID model.ChainID, token []byte, usd decimal.Decimal, ts time.Time) error {
	fields := map[string]interface{}{
		"usd": usd.String(),
		"ts":  strconv.FormatInt(ts.Unix(), 10),
	}
	if err := c.rdb.HSet(ctx, priceKey(chainID, token), fields).Err(); err != nil {
		return fmt.Errorf("redis: set price: %w", err)
	}
	return nil
}

func (c *RedisPriceCache) USDPrice(ctx context.Context, chainID model.ChainID, token []byte) (decimal.Decimal, error) {
	key := priceKey(chainID, token)
	vals, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: get price %s: %w", key, err)
	}
	raw, ok := vals["usd"]
	if !ok {
		return decimal.Zero, service.ErrPriceNotFound
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("redis: parse price %s: %w", key, err)
	}

	if c.maxAge > 0 {
		ts, err := strconv.ParseInt(vals["ts"], 10, 64)
		if err != nil || time.Since(time.Unix(ts, 0)) > c.maxAge {
			return decimal.Zero, service.ErrPriceNotFound
		}
	}
	return price, nil
}
