// Package cache 提供带容量与 TTL 的泛型缓存，底层为 golang-lru 的 expirable LRU
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache 通用泛型缓存。TTL 自写入起计算，访问不续期
type Cache[K comparable, V any] struct {
	name   string
	config Config
	lru    *expirable.LRU[K, V]

	hits    atomic.Int64
	misses  atomic.Int64
	removed atomic.Int64
}

// Config 缓存配置
type Config struct {
	// Name 缓存名称（用于日志和统计）
	Name string

	// MaxSize 最大条目数，0 表示无限制
	MaxSize int

	// TTL 过期时间，0 表示永不过期
	TTL time.Duration

	// OnLookup 每次 Get 后回调，用于导出命中率指标
	OnLookup func(hit bool)
}

// CacheStats 缓存统计信息
type CacheStats struct {
	Hits    int64 // 命中次数
	Misses  int64 // 未命中次数
	Removed int64 // 被驱逐、过期或删除的条目数
	Size    int   // 当前条目数
}

// New 创建缓存实例
func New[K comparable, V any](config Config) *Cache[K, V] {
	if config.Name == "" {
		config.Name = "unnamed"
	}
	c := &Cache[K, V]{name: config.Name, config: config}
	c.lru = expirable.NewLRU[K, V](config.MaxSize, func(K, V) { c.removed.Add(1) }, config.TTL)
	return c
}

// Get 获取未过期的缓存值
func (c *Cache[K, V]) Get(key K) (V, bool) {
	value, ok := c.lru.Get(key)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	if c.config.OnLookup != nil {
		c.config.OnLookup(ok)
	}
	return value, ok
}

// Set 写入或覆盖，覆盖时重新计算 TTL
func (c *Cache[K, V]) Set(key K, value V) {
	c.lru.Add(key, value)
}

// Delete 删除条目，返回是否存在
func (c *Cache[K, V]) Delete(key K) bool {
	return c.lru.Remove(key)
}

// Clear 清空缓存
func (c *Cache[K, V]) Clear() {
	c.lru.Purge()
}

// Size 当前条目数
func (c *Cache[K, V]) Size() int {
	return c.lru.Len()
}

// Stats 统计信息快照
func (c *Cache[K, V]) Stats() CacheStats {
	return CacheStats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Removed: c.removed.Load(),
		Size:    c.lru.Len(),
	}
}

// HitRate 命中率
func (c *Cache[K, V]) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// String 返回缓存信息的字符串表示
func (c *Cache[K, V]) String() string {
	st := c.Stats()
	return fmt.Sprintf("Cache[%s]: size=%d/%d, hits=%d, misses=%d, hit_rate=%.2f%%, removed=%d",
		c.name, st.Size, c.config.MaxSize, st.Hits, st.Misses, c.HitRate()*100, st.Removed)
}
