package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Purplemerit/linkshortner-sub001/internal/types"
)

// ErrCacheMiss is returned when a short code is not cached.
var ErrCacheMiss = redis.Nil

type Cache struct {
	rdb *redis.Client
}

func ConnectRedis(addr, password string) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Cache{rdb: rdb}, nil
}

func (c *Cache) Get(ctx context.Context, shortCode string) (*types.LinkCache, error) {
	raw, err := c.rdb.Get(ctx, shortCode).Bytes()
	if err != nil {
		return nil, err
	}
	var entry types.LinkCache
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Cache) Set(ctx context.Context, shortCode string, entry *types.LinkCache, expiration time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, shortCode, raw, expiration).Err()
}

func (c *Cache) Delete(ctx context.Context, shortCode string) error {
	return c.rdb.Del(ctx, shortCode).Err()
}

func (c *Cache) Close() error {
	return c.rdb.Close()
}
