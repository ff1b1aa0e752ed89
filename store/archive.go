package store

import (
	"context"
	"strings"
	"time"

	core "recordbin/data/db"
	sqlbuilder "recordbin/data/db/sql"
	"recordbin/domain/record"
	"recordbin/domain/snapshot"
	"recordbin/errors"
	"recordbin/logging"
)

const archiveTable = "record_archives"

var archiveColumns = []string{
	"id", "family", "original_id", "owner_id", "label", "detail", "payload", "created_at", "deleted_at",
}

// ArchiveStore 归档表存储，所有记录族共用一张表，以 (family, original_id) 唯一
type ArchiveStore struct {
	db     core.IDatabase
	sql    sqlbuilder.ISql
	logger logging.Logger
}

// NewArchiveStore 创建归档存储
func NewArchiveStore(db core.IDatabase) *ArchiveStore {
	return &ArchiveStore{db: db, sql: sqlbuilder.New(db), logger: logging.Named("store.archive")}
}

// Upsert 写入归档并返回归档 id
//
// 同一 (family, original_id) 已有归档时原地更新全部字段；否则插入。
// 插入时若与并发写入方撞上唯一索引，退化为更新，冲突不会返回给调用方。
func (s *ArchiveStore) Upsert(ctx context.Context, a snapshot.Archive) (int64, error) {
	if a.OriginalID == nil {
		return s.insert(ctx, a)
	}

	existing, err := s.FetchByOriginal(ctx, a.Family, *a.OriginalID)
	switch {
	case err == nil:
		if err := s.update(ctx, existing.ID, a); err != nil {
			return 0, err
		}
		return existing.ID, nil
	case !errors.IsNotFound(err):
		return 0, err
	}

	res, err := s.sql.UpsertInto(archiveTable).
		Columns("family", "original_id", "owner_id", "label", "detail", "payload", "created_at", "deleted_at").
		Values(string(a.Family), *a.OriginalID, a.OwnerID, a.Label, a.Detail, string(a.Payload),
			a.CreatedAt.UTC(), a.DeletedAt.UTC()).
		Key("family", "original_id").
		Exec(ctx)
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, "archive.upsert")
	}
	if !res.Inserted {
		s.logger.Info(ctx, "归档插入与并发写入冲突，已改为更新",
			logging.String("family", string(a.Family)), logging.Int64("original_id", *a.OriginalID))
	}

	stored, err := s.FetchByOriginal(ctx, a.Family, *a.OriginalID)
	if err != nil {
		return 0, err
	}
	return stored.ID, nil
}

func (s *ArchiveStore) insert(ctx context.Context, a snapshot.Archive) (int64, error) {
	var id int64
	err := s.sql.InsertInto(archiveTable).
		Columns("family", "original_id", "owner_id", "label", "detail", "payload", "created_at", "deleted_at").
		Values(string(a.Family), nil, a.OwnerID, a.Label, a.Detail, string(a.Payload),
			a.CreatedAt.UTC(), a.DeletedAt.UTC()).
		Returning("id").
		QueryRow(ctx).
		Scan(&id)
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, "archive.insert")
	}
	return id, nil
}

func (s *ArchiveStore) update(ctx context.Context, id int64, a snapshot.Archive) error {
	_, err := s.sql.Update(archiveTable).
		Set("owner_id", a.OwnerID).
		Set("label", a.Label).
		Set("detail", a.Detail).
		Set("payload", string(a.Payload)).
		Set("created_at", a.CreatedAt.UTC()).
		Set("deleted_at", a.DeletedAt.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "archive.update")
	}
	return nil
}

// Fetch 按归档 id 读取
func (s *ArchiveStore) Fetch(ctx context.Context, family record.Family, id int64) (snapshot.Archive, error) {
	row := s.sql.Select(archiveColumns...).From(archiveTable).
		Where("family = ?", string(family)).
		And("id = ?", id).
		QueryRow(ctx)
	a, err := scanArchive(row)
	if err != nil {
		if errors.IsNotFound(errors.Normalize(err)) {
			return snapshot.Archive{}, errors.NotFoundf("%s archive %d not found", family, id)
		}
		return snapshot.Archive{}, errors.WrapDatabaseError(ctx, err, "archive.fetch")
	}
	return a, nil
}

// FetchByOriginal 按原记录 id 读取归档
func (s *ArchiveStore) FetchByOriginal(ctx context.Context, family record.Family, originalID int64) (snapshot.Archive, error) {
	row := s.sql.Select(archiveColumns...).From(archiveTable).
		Where("family = ?", string(family)).
		And("original_id = ?", originalID).
		QueryRow(ctx)
	a, err := scanArchive(row)
	if err != nil {
		if errors.IsNotFound(errors.Normalize(err)) {
			return snapshot.Archive{}, errors.NotFoundf("%s archive for record %d not found", family, originalID)
		}
		return snapshot.Archive{}, errors.WrapDatabaseError(ctx, err, "archive.fetch_by_original")
	}
	return a, nil
}

// Delete 删除归档，不存在时视为成功
func (s *ArchiveStore) Delete(ctx context.Context, family record.Family, id int64) error {
	_, err := s.sql.DeleteFrom(archiveTable).
		Where("family = ?", string(family)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "archive.delete")
	}
	return nil
}

// List 分页列出归档，按归档时间倒序
func (s *ArchiveStore) List(ctx context.Context, q snapshot.TrashQuery) (snapshot.Page, error) {
	q = q.Normalize()

	var total int64
	if err := s.filter(s.sql.Select("COUNT(*)"), q).QueryRow(ctx).Scan(&total); err != nil {
		return snapshot.Page{}, errors.WrapDatabaseError(ctx, err, "archive.count")
	}

	rows, err := s.filter(s.sql.Select(archiveColumns...), q).
		OrderBy("deleted_at DESC, id DESC").
		Limit(q.PageSize).
		Offset(q.Offset()).
		Query(ctx)
	if err != nil {
		return snapshot.Page{}, errors.WrapDatabaseError(ctx, err, "archive.list")
	}
	defer rows.Close()

	page := snapshot.Page{Items: []snapshot.Archive{}, Total: total, Page: q.Page, PageSize: q.PageSize}
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return snapshot.Page{}, errors.WrapDatabaseError(ctx, err, "archive.list.scan")
		}
		page.Items = append(page.Items, a)
	}
	if err := rows.Err(); err != nil {
		return snapshot.Page{}, errors.WrapDatabaseError(ctx, err, "archive.list")
	}
	return page, nil
}

func (s *ArchiveStore) filter(b sqlbuilder.ISelectBuilder, q snapshot.TrashQuery) sqlbuilder.ISelectBuilder {
	b = b.From(archiveTable).Where("family = ?", string(q.Family))
	if q.OwnerID != nil {
		b = b.And("owner_id = ?", *q.OwnerID)
	}
	if term := strings.TrimSpace(q.Q); term != "" {
		pattern := "%" + sqlbuilder.EscapeLike(strings.ToLower(term)) + "%"
		b = b.And(`(LOWER(label) LIKE ? ESCAPE '\' OR LOWER(detail) LIKE ? ESCAPE '\')`, pattern, pattern)
	}
	return b
}

func scanArchive(s scanner) (snapshot.Archive, error) {
	var (
		a       snapshot.Archive
		family  string
		payload []byte
	)
	if err := s.Scan(&a.ID, &family, &a.OriginalID, &a.OwnerID, &a.Label, &a.Detail,
		&payload, &a.CreatedAt, &a.DeletedAt); err != nil {
		return snapshot.Archive{}, err
	}
	a.Family = record.Family(family)
	a.Payload = payload
	a.CreatedAt = a.CreatedAt.UTC()
	a.DeletedAt = a.DeletedAt.UTC()
	return a, nil
}

// Now 存储层统一使用的 UTC 时间
func Now() time.Time { return time.Now().UTC() }
