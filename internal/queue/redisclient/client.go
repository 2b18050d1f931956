package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Client struct {
	redisdb *redis.Client
}

type Config struct {
	Addr     string
	Password string
	DB       int
}

func New(cfg Config) *Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &Client{redisdb: redisdb}
}

// this ping function checks redis connectivity

func (c *Client) Ping(ctx context.Context) error {
	return c.redisdb.Ping(ctx).Err()
}

// this closes the client

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// AcquireLock takes a best-effort distributed lock (SET NX). It returns true
// when this process got the lock. The expiry-check operation uses it so two
// concurrent invocations cannot both run the sweep.
func (c *Client) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return c.redisdb.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLock drops the lock early. Letting the TTL lapse is also fine.
func (c *Client) ReleaseLock(ctx context.Context, key string) error {
	return c.redisdb.Del(ctx, key).Err()
}

// Raw exposes the underlying client.

func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
