package trash

import (
	"context"
	"fmt"
	"time"

	core "recordbin/data/db"
	"recordbin/domain/ownership"
	"recordbin/domain/record"
	"recordbin/domain/snapshot"
	"recordbin/errors"
	"recordbin/events"
	"recordbin/logging"
)

// DefaultMaxBulkSize 单次批量操作的最大条目数
const DefaultMaxBulkSize = 500

// ArchiveCache 归档读取缓存
type ArchiveCache interface {
	Get(family record.Family, id int64) (snapshot.Archive, bool)
	Put(arc snapshot.Archive)
	Invalidate(family record.Family, id int64)
}

// Observer 操作指标
type Observer interface {
	ObserveOperation(family, action string, err error, elapsed time.Duration)
	ObserveBulk(family, action string, succeeded, failed int)
}

// Options 引擎的可选依赖，零值可用
type Options struct {
	Publisher   events.Publisher
	Cache       ArchiveCache
	Observer    Observer
	Logger      logging.Logger
	Now         func() time.Time
	MaxBulkSize int
}

// Engine 单个记录族的回收站引擎
type Engine[R any, S any] struct {
	db     core.IDatabase
	family Family[R, S]
	stores StoreFactory[R, S]

	publisher   events.Publisher
	cache       ArchiveCache
	observer    Observer
	logger      logging.Logger
	now         func() time.Time
	maxBulkSize int
}

// New 创建引擎
func New[R any, S any](db core.IDatabase, family Family[R, S], stores StoreFactory[R, S], opts Options) *Engine[R, S] {
	e := &Engine[R, S]{
		db:          db,
		family:      family,
		stores:      stores,
		publisher:   opts.Publisher,
		cache:       opts.Cache,
		observer:    opts.Observer,
		logger:      opts.Logger,
		now:         opts.Now,
		maxBulkSize: opts.MaxBulkSize,
	}
	if e.publisher == nil {
		e.publisher = events.NopPublisher{}
	}
	if e.logger == nil {
		e.logger = logging.Named("trash")
	}
	e.logger = e.logger.WithFields(logging.String("family", string(family.Kind())))
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.maxBulkSize <= 0 {
		e.maxBulkSize = DefaultMaxBulkSize
	}
	return e
}

// Kind 记录族
func (e *Engine[R, S]) Kind() record.Family { return e.family.Kind() }

// Trash 把在线记录归档并标记为已删除。
//
// 记录不存在或已删除返回 NOT_FOUND；非归属用户返回 FORBIDDEN。
// 归档写入与删除标记在同一事务中完成，任何失败都不会留下半归档状态。
func (e *Engine[R, S]) Trash(ctx context.Context, id int64, actor record.Actor) (err error) {
	defer e.observe(ownership.ActionTrash, time.Now(), &err)
	kind := e.family.Kind()

	var archiveID int64
	var label string
	err = core.InTx(ctx, e.db, func(tx core.IDatabase) error {
		st := e.stores(tx)
		rec, err := st.Live.Get(ctx, id)
		if err != nil {
			return err
		}
		base := e.family.Base(rec)
		if base.IsDeleted() {
			return errors.NotFoundf("%s %d not found", kind, id)
		}
		if err := ownership.Authorize(actor, base.OwnerID, ownership.ActionTrash); err != nil {
			return err
		}

		snap := e.family.ToSnapshot(rec)
		payload, err := snapshot.Encode(snap)
		if err != nil {
			return err
		}
		meta := e.family.Meta(snap)
		at := e.now()
		originalID := id
		archiveID, err = st.Archives.Upsert(ctx, snapshot.Archive{
			Family:     kind,
			OriginalID: &originalID,
			OwnerID:    base.OwnerID,
			Label:      meta.Label,
			Detail:     meta.Detail,
			Payload:    payload,
			CreatedAt:  base.CreatedAt,
			DeletedAt:  at,
		})
		if err != nil {
			return err
		}
		label = meta.Label
		return st.Live.MarkDeleted(ctx, id, at)
	})
	if err != nil {
		return err
	}

	e.invalidate(archiveID)
	e.logger.Info(ctx, "record trashed", logging.Int64("id", id), logging.Int64("archive_id", archiveID))
	e.publish(ctx, events.New(events.KindTrashed, kind, id, archiveID, actor, label, e.now()))
	return nil
}

// Restore 从归档恢复记录，返回恢复后的在线记录 ID。
//
// 原记录仍存在且已删除时原地恢复，不存在时以新 ID 重建；原记录未删除返回 CONFLICT。
// 恢复成功后删除归档，失败时归档保持不变。
func (e *Engine[R, S]) Restore(ctx context.Context, archiveID int64, actor record.Actor) (restoredID int64, err error) {
	defer e.observe(ownership.ActionRestore, time.Now(), &err)
	kind := e.family.Kind()

	var label string
	err = core.InTx(ctx, e.db, func(tx core.IDatabase) error {
		st := e.stores(tx)
		arc, err := st.Archives.Fetch(ctx, kind, archiveID)
		if err != nil {
			return err
		}
		if err := ownership.Authorize(actor, arc.OwnerID, ownership.ActionRestore); err != nil {
			return err
		}
		snap, err := snapshot.Decode[S](arc.Payload)
		if err != nil {
			return err
		}

		target, rehydrate, err := e.restoreTarget(ctx, st, arc)
		if err != nil {
			return err
		}
		if err := e.family.FromSnapshot(snap, target); err != nil {
			return err
		}
		base := e.family.Base(target)
		base.ClearDeleted()
		if base.CreatedAt.IsZero() {
			base.CreatedAt = e.now()
		}

		if rehydrate {
			if err := st.Live.Overwrite(ctx, target); err != nil {
				return err
			}
		} else {
			base.ID = 0
			if _, err := st.Live.Insert(ctx, target); err != nil {
				return err
			}
		}
		restoredID = base.ID

		if st.Children != nil {
			if err := e.restoreChildren(ctx, st.Children, target, restoredID, snap); err != nil {
				return err
			}
		}

		label = arc.Label
		return st.Archives.Delete(ctx, kind, archiveID)
	})
	if err != nil {
		return 0, err
	}

	e.invalidate(archiveID)
	e.logger.Info(ctx, "record restored", logging.Int64("archive_id", archiveID), logging.Int64("id", restoredID))
	e.publish(ctx, events.New(events.KindRestored, kind, restoredID, archiveID, actor, label, e.now()))
	return restoredID, nil
}

// restoreTarget 找到原地恢复的目标；返回 rehydrate=false 表示需要重建
func (e *Engine[R, S]) restoreTarget(ctx context.Context, st Stores[R, S], arc snapshot.Archive) (*R, bool, error) {
	if arc.OriginalID == nil {
		return new(R), false, nil
	}
	existing, err := st.Live.Get(ctx, *arc.OriginalID)
	switch {
	case err == nil:
		if !e.family.Base(existing).IsDeleted() {
			return nil, false, errors.Conflictf("%s %d is active; archive %d is stale",
				arc.Family, *arc.OriginalID, arc.ID)
		}
		return existing, true, nil
	case errors.IsNotFound(err):
		return new(R), false, nil
	default:
		return nil, false, err
	}
}

// restoreChildren 只有目标当前没有子行时才从载荷重建，避免重复插入；之后总是重新计算派生字段
func (e *Engine[R, S]) restoreChildren(ctx context.Context, children ChildStore[R, S], target *R, id int64, snap S) error {
	n, err := children.ChildCount(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		if err := children.RestoreChildren(ctx, target, snap); err != nil {
			return err
		}
	}
	return children.Recompute(ctx, target)
}

// Purge 彻底删除归档；原记录仍以已删除状态存在时一并物理删除。归档不存在返回 NOT_FOUND
func (e *Engine[R, S]) Purge(ctx context.Context, archiveID int64, actor record.Actor) (err error) {
	defer e.observe(ownership.ActionPurge, time.Now(), &err)
	kind := e.family.Kind()

	var recordID int64
	var label string
	err = core.InTx(ctx, e.db, func(tx core.IDatabase) error {
		st := e.stores(tx)
		arc, err := st.Archives.Fetch(ctx, kind, archiveID)
		if err != nil {
			return err
		}
		if err := ownership.Authorize(actor, arc.OwnerID, ownership.ActionPurge); err != nil {
			return err
		}
		if err := st.Archives.Delete(ctx, kind, archiveID); err != nil {
			return err
		}
		label = arc.Label
		if arc.OriginalID == nil {
			return nil
		}
		recordID = *arc.OriginalID
		existing, err := st.Live.Get(ctx, recordID)
		if err != nil {
			if errors.IsNotFound(err) {
				return nil
			}
			return err
		}
		if !e.family.Base(existing).IsDeleted() {
			return nil
		}
		return st.Live.HardDelete(ctx, recordID)
	})
	if err != nil {
		return err
	}

	e.invalidate(archiveID)
	e.logger.Info(ctx, "archive purged", logging.Int64("archive_id", archiveID), logging.Int64("id", recordID))
	e.publish(ctx, events.New(events.KindPurged, kind, recordID, archiveID, actor, label, e.now()))
	return nil
}

// ListLive 默认列表：只含未删除记录，普通用户只看到自己的记录
func (e *Engine[R, S]) ListLive(ctx context.Context, actor record.Actor, q record.ListQuery) ([]*R, error) {
	if !actor.Elevated {
		q.OwnerID = ownership.Scope(actor)
	}
	return e.stores(e.db).Live.List(ctx, q)
}

// GetLive 读取在线记录，已删除视为不存在
func (e *Engine[R, S]) GetLive(ctx context.Context, id int64, actor record.Actor) (*R, error) {
	rec, err := e.stores(e.db).Live.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	base := e.family.Base(rec)
	if base.IsDeleted() {
		return nil, errors.NotFoundf("%s %d not found", e.family.Kind(), id)
	}
	if err := ownership.Authorize(actor, base.OwnerID, ownership.ActionView); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListTrash 回收站列表，按删除时间倒序
func (e *Engine[R, S]) ListTrash(ctx context.Context, actor record.Actor, q snapshot.TrashQuery) (snapshot.Page, error) {
	q.Family = e.family.Kind()
	if !actor.Elevated {
		q.OwnerID = ownership.Scope(actor)
	}
	return e.stores(e.db).Archives.List(ctx, q)
}

// ViewArchive 归档的只读视图
func (e *Engine[R, S]) ViewArchive(ctx context.Context, archiveID int64, actor record.Actor) (ArchivedView[S], error) {
	arc, err := e.fetchArchive(ctx, archiveID)
	if err != nil {
		return ArchivedView[S]{}, err
	}
	if err := ownership.Authorize(actor, arc.OwnerID, ownership.ActionView); err != nil {
		return ArchivedView[S]{}, err
	}
	payload, err := snapshot.Decode[S](arc.Payload)
	if err != nil {
		return ArchivedView[S]{}, err
	}
	return archivedView(arc, payload), nil
}

// Resolve 按 id 查找可见记录：先找在线记录，再找原 ID 为 id 的归档，最后把 id 当作归档 ID。
// 不可见的候选视为不存在
func (e *Engine[R, S]) Resolve(ctx context.Context, id int64, actor record.Actor) (RecordView, error) {
	kind := e.family.Kind()
	st := e.stores(e.db)

	rec, err := st.Live.Get(ctx, id)
	switch {
	case err == nil:
		base := e.family.Base(rec)
		if !base.IsDeleted() && ownership.Allowed(actor, base.OwnerID) {
			return LiveView[R]{Kind: kind, Record: rec}, nil
		}
	case !errors.IsNotFound(err):
		return nil, err
	}

	arc, err := st.Archives.FetchByOriginal(ctx, kind, id)
	switch {
	case err == nil:
		if ownership.Allowed(actor, arc.OwnerID) {
			return e.decodeView(arc)
		}
	case !errors.IsNotFound(err):
		return nil, err
	}

	arc, err = e.fetchArchive(ctx, id)
	switch {
	case err == nil:
		if ownership.Allowed(actor, arc.OwnerID) {
			return e.decodeView(arc)
		}
	case !errors.IsNotFound(err):
		return nil, err
	}
	return nil, errors.NotFoundf("%s %d not found", kind, id)
}

// Preview 草稿预览
func (e *Engine[R, S]) Preview(draft S) RecordView {
	p := e.family.Preview(draft)
	return PreviewView[S]{Kind: e.family.Kind(), Meta: e.family.Meta(p), Payload: p}
}

func (e *Engine[R, S]) decodeView(arc snapshot.Archive) (RecordView, error) {
	payload, err := snapshot.Decode[S](arc.Payload)
	if err != nil {
		return nil, err
	}
	return archivedView(arc, payload), nil
}

func (e *Engine[R, S]) fetchArchive(ctx context.Context, archiveID int64) (snapshot.Archive, error) {
	kind := e.family.Kind()
	if e.cache != nil {
		if arc, ok := e.cache.Get(kind, archiveID); ok {
			return arc, nil
		}
	}
	arc, err := e.stores(e.db).Archives.Fetch(ctx, kind, archiveID)
	if err != nil {
		return snapshot.Archive{}, err
	}
	if e.cache != nil {
		e.cache.Put(arc)
	}
	return arc, nil
}

func (e *Engine[R, S]) invalidate(archiveID int64) {
	if e.cache != nil {
		e.cache.Invalidate(e.family.Kind(), archiveID)
	}
}

// publish 事件投递失败只记录日志，不影响已提交的操作
func (e *Engine[R, S]) publish(ctx context.Context, evt events.Event) {
	if err := e.publisher.Publish(ctx, evt); err != nil {
		e.logger.Warn(ctx, "publish lifecycle event failed",
			logging.String("kind", string(evt.Kind)),
			logging.Int64("archive_id", evt.ArchiveID),
			logging.Error(err))
	}
}

func (e *Engine[R, S]) observe(action ownership.Action, start time.Time, err *error) {
	if e.observer != nil {
		e.observer.ObserveOperation(string(e.family.Kind()), string(action), *err, time.Since(start))
	}
}

func (e *Engine[R, S]) String() string {
	return fmt.Sprintf("trash.Engine[%s]", e.family.Kind())
}
