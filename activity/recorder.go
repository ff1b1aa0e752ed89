// Package activity 把回收站事件落到 users_activity_logs，供用户查看最近操作
package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"recordbin/codegen/snowflake"
	core "recordbin/data/db"
	sqlbuilder "recordbin/data/db/sql"
	"recordbin/domain/record"
	"recordbin/errors"
	"recordbin/events"
	"recordbin/logging"
)

const (
	table          = "users_activity_logs"
	defaultLimit   = 20
	maxRecentLimit = 200
)

var columns = []string{"activity_id", "user_id", "activity_type", "timestamp", "related_invoice"}

// Entry 一条活动日志
type Entry struct {
	ID             int64     `json:"activity_id"`
	UserID         int64     `json:"user_id"`
	Type           string    `json:"activity_type"`
	Timestamp      time.Time `json:"timestamp"`
	RelatedInvoice *int64    `json:"related_invoice,omitempty"`
}

// Recorder 订阅事件并写入活动日志，实现 events.Handler
type Recorder struct {
	sql    sqlbuilder.ISql
	ids    *snowflake.Generator
	logger logging.Logger
}

var _ events.Handler = (*Recorder)(nil)

// NewRecorder 创建 Recorder
func NewRecorder(db core.IDatabase, ids *snowflake.Generator, logger logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Named("activity")
	}
	return &Recorder{sql: sqlbuilder.New(db), ids: ids, logger: logger}
}

// Name 订阅者名称
func (r *Recorder) Name() string { return "activity" }

// TypeOf 事件对应的 activity_type，如 invoice_deleted
func TypeOf(e events.Event) (string, bool) {
	var verb string
	switch e.Kind {
	case events.KindTrashed:
		verb = "deleted"
	case events.KindRestored:
		verb = "restored"
	case events.KindPurged:
		verb = "purged"
	default:
		return "", false
	}
	return string(e.Family) + "_" + verb, true
}

// Handle 写入一条活动日志；未知事件类型直接忽略
func (r *Recorder) Handle(ctx context.Context, e events.Event) error {
	kind, ok := TypeOf(e)
	if !ok {
		return nil
	}
	id, err := r.ids.NextID()
	if err != nil {
		return errors.WrapError(err, errors.ErrCodeInternal, "generate activity id")
	}

	var related any
	if e.Family == record.FamilyInvoice {
		related = e.RecordID
	}
	at := e.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}

	_, err = r.sql.InsertInto(table).
		Columns(columns...).
		Values(id, e.ActorID, kind, at.UTC(), related).
		Exec(ctx)
	if err != nil {
		return errors.WrapDatabaseError(ctx, err, "insert activity log")
	}
	r.logger.Debug(ctx, "activity recorded",
		logging.Int64("activity_id", id),
		logging.Int64("user_id", e.ActorID),
		logging.String("type", kind))
	return nil
}

// Recent 按时间倒序返回用户最近的活动
func (r *Recorder) Recent(ctx context.Context, userID int64, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxRecentLimit {
		return nil, errors.NewValidationError(fmt.Sprintf("limit must be at most %d", maxRecentLimit))
	}

	rows, err := r.sql.Select(columns...).From(table).
		Where("user_id = ?", userID).
		OrderBy("timestamp DESC, activity_id DESC").
		Limit(limit).
		Query(ctx)
	if err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "list activity logs")
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			related sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Type, &e.Timestamp, &related); err != nil {
			return nil, errors.WrapDatabaseError(ctx, err, "scan activity log")
		}
		e.Timestamp = e.Timestamp.UTC()
		if related.Valid {
			e.RelatedInvoice = record.Ptr(related.Int64)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapDatabaseError(ctx, err, "iterate activity logs")
	}
	return out, nil
}
