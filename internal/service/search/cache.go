package search

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache 搜索结果缓存
// 进程内为第一层（显式 TTL 与容量上限），配置 Redis 时写穿到共享缓存，
// 多实例部署时由共享层保证一致
type Cache struct {
	mu       sync.Mutex
	entries  map[string]cacheEntry
	ttl      time.Duration
	capacity int
	redis    *redis.Client // 可为 nil
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewCache 创建缓存
func NewCache(ttl time.Duration, capacity int, redisClient *redis.Client) *Cache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cache{
		entries:  make(map[string]cacheEntry),
		ttl:      ttl,
		capacity: capacity,
		redis:    redisClient,
	}
}

// Get 读取缓存
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		ok = false
	}
	c.mu.Unlock()

	if ok {
		return entry.value, true
	}

	// 本地未命中时查共享缓存
	if c.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
			c.setLocal(key, data)
			return data, true
		}
	}

	return nil, false
}

// Set 写入缓存
func (c *Cache) Set(key string, value []byte) {
	c.setLocal(key, value)

	if c.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.redis.Set(ctx, key, value, c.ttl).Err()
	}
}

// setLocal 写入本地层，超出容量时先淘汰过期项，再淘汰最早过期项
func (c *Cache) setLocal(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if len(c.entries) >= c.capacity {
		for k, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
	if len(c.entries) >= c.capacity {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.entries {
			if oldestKey == "" || e.expiresAt.Before(oldest) {
				oldestKey = k
				oldest = e.expiresAt
			}
		}
		delete(c.entries, oldestKey)
	}

	c.entries[key] = cacheEntry{value: value, expiresAt: now.Add(c.ttl)}
}

// Len 返回本地缓存条目数
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
