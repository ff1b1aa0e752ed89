// Package store 提供在线记录表与归档表的 SQL 存储实现。
//
// 所有存储都只依赖 db.IDatabase，构造时传入事务即可把全部读写绑定到该事务。
package store

import (
	"context"
	"fmt"
	"time"

	core "recordbin/data/db"
	sqlbuilder "recordbin/data/db/sql"
	"recordbin/domain/record"
	"recordbin/errors"
)

type scanner interface {
	Scan(dest ...any) error
}

// tableMapping 描述一张在线记录表与记录类型 R 之间的映射
type tableMapping[R any] struct {
	table string
	// columns 不含 id，顺序与 values/scan 一致
	columns []string
	values  func(r *R) []any
	// fields 返回 id 之后各列的扫描目标
	fields func(r *R) []any
	base   func(r *R) *record.Base
}

func (m tableMapping[R]) selectColumns() []string {
	return append([]string{"id"}, m.columns...)
}

func (m tableMapping[R]) scan(s scanner) (*R, error) {
	r := new(R)
	dest := append([]any{&m.base(r).ID}, m.fields(r)...)
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	return r, nil
}

// LiveStore 单表在线记录存储
type LiveStore[R any] struct {
	db      core.IDatabase
	sql     sqlbuilder.ISql
	mapping tableMapping[R]
}

func newLiveStore[R any](db core.IDatabase, m tableMapping[R]) *LiveStore[R] {
	return &LiveStore[R]{db: db, sql: sqlbuilder.New(db), mapping: m}
}

// Get 按 id 读取记录，不论是否已软删除；Postgres 事务内加行锁
func (s *LiveStore[R]) Get(ctx context.Context, id int64) (*R, error) {
	row := s.sql.Select(s.mapping.selectColumns()...).
		From(s.mapping.table).
		Where("id = ?", id).
		ForUpdate().
		QueryRow(ctx)

	r, err := s.mapping.scan(row)
	if err != nil {
		if errors.IsNotFound(errors.Normalize(err)) {
			return nil, errors.NotFoundf("%s %d not found", s.mapping.table, id)
		}
		return nil, errors.WrapDatabaseError(ctx, err, s.mapping.table+".get")
	}
	return r, nil
}

// List 列出未删除的记录，按 id 倒序
func (s *LiveStore[R]) List(ctx context.Context, q record.ListQuery) ([]*R, error) {
	q = q.Normalize()
	b := s.sql.Select(s.mapping.selectColumns()...).
		From(s.mapping.table).
		Where("deleted = ?", false)
	if q.OwnerID != nil {
		b = b.And("owner_id = ?", *q.OwnerID)
	}
	rows, err := b.OrderBy("id DESC").Limit(q.Limit).Offset(q.Offset).Query(ctx)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, s.mapping.table+".list")
	}
	defer rows.Close()

	var out []*R
	for rows.Next() {
		r, err := s.mapping.scan(rows)
		if err != nil {
			return nil, errors.WrapDatabaseError(ctx, err, s.mapping.table+".list.scan")
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, s.mapping.table+".list")
	}
	return out, nil
}

// Insert 插入新行并回填 ID
func (s *LiveStore[R]) Insert(ctx context.Context, r *R) (int64, error) {
	var id int64
	err := s.sql.InsertInto(s.mapping.table).
		Columns(s.mapping.columns...).
		Values(s.mapping.values(r)...).
		Returning("id").
		QueryRow(ctx).
		Scan(&id)
	if err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, s.mapping.table+".insert")
	}
	s.mapping.base(r).ID = id
	return id, nil
}

// Overwrite 用 r 的全部字段覆盖已有行（含删除标记）
func (s *LiveStore[R]) Overwrite(ctx context.Context, r *R) error {
	id := s.mapping.base(r).ID
	upd := s.sql.Update(s.mapping.table)
	vals := s.mapping.values(r)
	for i, col := range s.mapping.columns {
		upd = upd.Set(col, vals[i])
	}
	res, err := upd.Where("id = ?", id).Exec(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, s.mapping.table+".overwrite")
	}
	return requireAffected(ctx, res, s.mapping.table+".overwrite", fmt.Sprintf("%s %d not found", s.mapping.table, id))
}

// MarkDeleted 只更新 deleted/deleted_at 两列
func (s *LiveStore[R]) MarkDeleted(ctx context.Context, id int64, at time.Time) error {
	res, err := s.sql.Update(s.mapping.table).
		Set("deleted", true).
		Set("deleted_at", at.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, s.mapping.table+".mark_deleted")
	}
	return requireAffected(ctx, res, s.mapping.table+".mark_deleted", fmt.Sprintf("%s %d not found", s.mapping.table, id))
}

// HardDelete 物理删除，行不存在时不报错
func (s *LiveStore[R]) HardDelete(ctx context.Context, id int64) error {
	if _, err := s.sql.DeleteFrom(s.mapping.table).Where("id = ?", id).Exec(ctx); err != nil {
		return errors.WrapDatabaseError(ctx, err, s.mapping.table+".hard_delete")
	}
	return nil
}

// Count 统计未删除记录数
func (s *LiveStore[R]) Count(ctx context.Context, ownerID *int64) (int64, error) {
	b := s.sql.Select("COUNT(*)").From(s.mapping.table).Where("deleted = ?", false)
	if ownerID != nil {
		b = b.And("owner_id = ?", *ownerID)
	}
	var n int64
	if err := b.QueryRow(ctx).Scan(&n); err != nil {
		return 0, errors.WrapDatabaseError(ctx, err, s.mapping.table+".count")
	}
	return n, nil
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

// requireAffected 没有命中任何行时返回 NotFound；驱动拿不到影响行数也算存储错误
func requireAffected(ctx context.Context, res rowsAffected, op, msg string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, op+".rows_affected")
	}
	if n == 0 {
		return errors.NewError(errors.ErrCodeNotFound, msg)
	}
	return nil
}

func utcPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}
