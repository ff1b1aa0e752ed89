// Package events 提供记录生命周期事件及其传输抽象
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"recordbin/domain/record"
)

// Kind 生命周期事件类型
type Kind string

const (
	KindTrashed  Kind = "record.trashed"
	KindRestored Kind = "record.restored"
	KindPurged   Kind = "record.purged"

	// KindAny 订阅全部类型
	KindAny Kind = "*"
)

// Kinds 全部具体事件类型
var Kinds = []Kind{KindTrashed, KindRestored, KindPurged}

// Event 记录进入回收站、恢复或彻底删除后发布的通知
type Event struct {
	ID         string        `json:"id"`
	Kind       Kind          `json:"kind"`
	Family     record.Family `json:"family"`
	RecordID   int64         `json:"record_id"`
	ArchiveID  int64         `json:"archive_id"`
	ActorID    int64         `json:"actor_id"`
	Label      string        `json:"label,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// New 创建事件，ID 为随机 UUID
func New(kind Kind, family record.Family, recordID, archiveID int64, actor record.Actor, label string, at time.Time) Event {
	if at.IsZero() {
		at = time.Now()
	}
	return Event{
		ID:         uuid.NewString(),
		Kind:       kind,
		Family:     family,
		RecordID:   recordID,
		ArchiveID:  archiveID,
		ActorID:    actor.ID,
		Label:      label,
		OccurredAt: at.UTC(),
	}
}

// Publisher 事件发布者
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Handler 事件处理器
type Handler interface {
	Handle(ctx context.Context, event Event) error

	// Name 返回处理器名称（用于日志）
	Name() string
}

// HandlerFunc 函数适配器。函数值不可比较，不能用于 Unsubscribe
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

func (f HandlerFunc) Name() string { return "func" }

// Transport 事件传输接口
type Transport interface {
	Publisher
	Subscribe(kind Kind, handler Handler) error
	Unsubscribe(kind Kind, handler Handler) error
	Start(ctx context.Context) error
	Close() error
	Stats() Stats
}

// Stats 传输层统计信息
type Stats struct {
	Running      bool     `json:"running"`
	HandlerCount int      `json:"handler_count"`
	Kinds        []string `json:"kinds"`
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
