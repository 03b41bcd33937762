package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON-encoded values in Redis under an optional key prefix.
// A missing key surfaces as redis.Nil from Get.
type Cache struct {
	client *redis.Client
	prefix string
}

type Options struct {
	Address      string
	Password     string
	DB           int
	KeyPrefix    string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Option func(*Options)

func WithAddress(addr string) Option {
	return func(o *Options) {
		o.Address = addr
	}
}

func WithPassword(pass string) Option {
	return func(o *Options) {
		o.Password = pass
	}
}

func WithDB(db int) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithKeyPrefix namespaces every key, e.g. "assessment:".
func WithKeyPrefix(prefix string) Option {
	return func(o *Options) {
		o.KeyPrefix = prefix
	}
}

func WithTimeouts(dial, read, write time.Duration) Option {
	return func(o *Options) {
		o.DialTimeout = dial
		o.ReadTimeout = read
		o.WriteTimeout = write
	}
}

// New connects to Redis and verifies the connection with a PING.
func New(ctx context.Context, opts ...Option) (*Cache, error) {
	options := &Options{
		Address:      "localhost:6379",
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         options.Address,
		Password:     options.Password,
		DB:           options.DB,
		DialTimeout:  options.DialTimeout,
		ReadTimeout:  options.ReadTimeout,
		WriteTimeout: options.WriteTimeout,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", options.Address, err)
	}

	return &Cache{client: client, prefix: options.KeyPrefix}, nil
}

func (c *Cache) key(k string) string {
	return c.prefix + k
}

func (c *Cache) Get(ctx context.Context, key string, dest any) error {
	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("decode cached %q: %w", key, err)
	}
	return nil
}

func (c *Cache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %q for cache: %w", key, err)
	}
	return c.client.Set(ctx, c.key(key), data, expiration).Err()
}

// Delete drops keys, ignoring ones that do not exist.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}
	return c.client.Del(ctx, prefixed...).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
