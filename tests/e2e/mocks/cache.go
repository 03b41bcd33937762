package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type cacheEntry struct {
	data   []byte
	expiry time.Time
}

// InMemoryCache mimics pkg/cache: values are stored as JSON and misses
// return redis.Nil.
type InMemoryCache struct {
	mu       sync.Mutex
	data     map[string]cacheEntry
	GetCalls int
	SetCalls int
	Hits     int
}

func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{data: make(map[string]cacheEntry)}
}

func (c *InMemoryCache) Get(ctx context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.GetCalls++
	entry, ok := c.data[key]
	if !ok || time.Now().After(entry.expiry) {
		return redis.Nil
	}
	c.Hits++
	return json.Unmarshal(entry.data, dest)
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value any, exp time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.SetCalls++
	c.data[key] = cacheEntry{data: data, expiry: time.Now().Add(exp)}
	return nil
}

func (c *InMemoryCache) Close() error {
	return nil
}

// Counts returns get, set and hit counts.
func (c *InMemoryCache) Counts() (gets, sets, hits int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.GetCalls, c.SetCalls, c.Hits
}
