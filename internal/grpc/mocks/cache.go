package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MockCacher is a function-based cache double. Unset funcs behave like an
// empty cache: Get misses with redis.Nil and Set discards the value.
type MockCacher struct {
	GetFunc   func(ctx context.Context, key string, dest any) error
	SetFunc   func(ctx context.Context, key string, value any, expiration time.Duration) error
	CloseFunc func() error

	mu   sync.Mutex
	sets []string
}

func (m *MockCacher) Get(ctx context.Context, key string, dest any) error {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key, dest)
	}
	return redis.Nil
}

func (m *MockCacher) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	m.mu.Lock()
	m.sets = append(m.sets, key)
	m.mu.Unlock()

	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value, expiration)
	}
	return nil
}

func (m *MockCacher) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// SetKeys returns the keys passed to Set so far.
func (m *MockCacher) SetKeys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.sets...)
}
