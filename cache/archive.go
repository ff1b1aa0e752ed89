package cache

import (
	"time"

	"recordbin/domain/record"
	"recordbin/domain/snapshot"
)

// ArchiveKey 归档缓存键
type ArchiveKey struct {
	Family record.Family
	ID     int64
}

// ArchiveCache 已读取的归档行缓存，归档写入、恢复、彻底删除时失效
type ArchiveCache struct {
	c *Cache[ArchiveKey, snapshot.Archive]
}

// NewArchiveCache size<=0 时使用默认容量 512
func NewArchiveCache(size int, ttl time.Duration, onLookup func(hit bool)) *ArchiveCache {
	if size <= 0 {
		size = 512
	}
	return &ArchiveCache{c: New[ArchiveKey, snapshot.Archive](Config{
		Name:     "archive",
		MaxSize:  size,
		TTL:      ttl,
		OnLookup: onLookup,
	})}
}

// Get 返回副本，调用方修改 Payload 不影响缓存
func (a *ArchiveCache) Get(family record.Family, id int64) (snapshot.Archive, bool) {
	arc, ok := a.c.Get(ArchiveKey{Family: family, ID: id})
	if !ok {
		return snapshot.Archive{}, false
	}
	return cloneArchive(arc), true
}

// Put 缓存归档行副本
func (a *ArchiveCache) Put(arc snapshot.Archive) {
	a.c.Set(ArchiveKey{Family: arc.Family, ID: arc.ID}, cloneArchive(arc))
}

// Invalidate 移除缓存项
func (a *ArchiveCache) Invalidate(family record.Family, id int64) {
	a.c.Delete(ArchiveKey{Family: family, ID: id})
}

// Stats 统计信息
func (a *ArchiveCache) Stats() CacheStats {
	return a.c.Stats()
}

func cloneArchive(arc snapshot.Archive) snapshot.Archive {
	if arc.Payload != nil {
		arc.Payload = append([]byte(nil), arc.Payload...)
	}
	if arc.OriginalID != nil {
		id := *arc.OriginalID
		arc.OriginalID = &id
	}
	if arc.OwnerID != nil {
		id := *arc.OwnerID
		arc.OwnerID = &id
	}
	return arc
}
