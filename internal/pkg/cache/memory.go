package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// memoryCache keeps entries in process. Every entry lives for the ttl given
// at construction; the per-call ttl is only honoured by Redis.
type memoryCache struct {
	lru         *expirable.LRU[string, string]
	serviceName string
}

// NewMemoryCache is used when no Redis address is configured.
func NewMemoryCache(size int, ttl time.Duration, serviceName string) Cache {
	return &memoryCache{
		lru:         expirable.NewLRU[string, string](size, nil, ttl),
		serviceName: serviceName,
	}
}

func (m *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	switch v := value.(type) {
	case string:
		m.lru.Add(key, v)
	case []byte:
		m.lru.Add(key, string(v))
	default:
		m.lru.Add(key, fmt.Sprint(v))
	}
	return nil
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	v, _ := m.lru.Get(key)
	return v, nil
}

func (m *memoryCache) GenerateKey(operation, key string) string {
	return generateKey(m.serviceName, operation, key)
}

func (m *memoryCache) Close() error {
	m.lru.Purge()
	return nil
}
