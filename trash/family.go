// Package trash 实现记录的回收站生命周期：软删除归档、恢复、彻底删除与批量操作。
//
// 引擎对记录族泛型化：每个记录族提供一组能力（Family）与存储（Stores），
// 业务规则只在 Engine 中实现一次。
package trash

import (
	"context"
	"time"

	core "recordbin/data/db"
	"recordbin/domain/record"
	"recordbin/domain/snapshot"
)

// Family 记录族能力集。R 为在线记录类型，S 为归档载荷类型
type Family[R any, S any] interface {
	Kind() record.Family
	Base(r *R) *record.Base
	ToSnapshot(r *R) S
	// FromSnapshot 把载荷写入 r，不修改 ID 与删除标记
	FromSnapshot(s S, r *R) error
	Meta(s S) snapshot.Meta
	// Preview 草稿预览，可重新计算派生字段
	Preview(s S) S
}

// LiveStore 在线记录存储
type LiveStore[R any] interface {
	// Get 读取记录，不论是否已软删除
	Get(ctx context.Context, id int64) (*R, error)
	List(ctx context.Context, q record.ListQuery) ([]*R, error)
	Insert(ctx context.Context, r *R) (int64, error)
	Overwrite(ctx context.Context, r *R) error
	MarkDeleted(ctx context.Context, id int64, at time.Time) error
	HardDelete(ctx context.Context, id int64) error
}

// ChildStore 带子行的记录族（发票明细）
type ChildStore[R any, S any] interface {
	ChildCount(ctx context.Context, id int64) (int, error)
	// RestoreChildren 从载荷重建子行，结果写回 r
	RestoreChildren(ctx context.Context, r *R, s S) error
	// Recompute 按当前子行重新计算并保存派生字段
	Recompute(ctx context.Context, r *R) error
}

// ArchiveStore 归档存储
type ArchiveStore interface {
	Upsert(ctx context.Context, a snapshot.Archive) (int64, error)
	Fetch(ctx context.Context, family record.Family, id int64) (snapshot.Archive, error)
	FetchByOriginal(ctx context.Context, family record.Family, originalID int64) (snapshot.Archive, error)
	Delete(ctx context.Context, family record.Family, id int64) error
	List(ctx context.Context, q snapshot.TrashQuery) (snapshot.Page, error)
}

// Stores 绑定到同一数据库句柄（连接池或事务）的存储
type Stores[R any, S any] struct {
	Live     LiveStore[R]
	Children ChildStore[R, S] // 无子行的记录族为 nil
	Archives ArchiveStore
}

// StoreFactory 按数据库句柄创建存储，事务内操作通过它拿到绑定事务的存储
type StoreFactory[R any, S any] func(db core.IDatabase) Stores[R, S]
