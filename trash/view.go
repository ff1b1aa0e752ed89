package trash

import (
	"time"

	"recordbin/domain/record"
	"recordbin/domain/snapshot"
)

// ViewStatus 视图状态
type ViewStatus string

const (
	StatusLive     ViewStatus = "live"
	StatusArchived ViewStatus = "archived"
	StatusPreview  ViewStatus = "preview"
)

// RecordView 只读视图：LiveView、ArchivedView 或 PreviewView，调用方按类型分支处理
type RecordView interface {
	Family() record.Family
	Status() ViewStatus
	sealed()
}

// LiveView 在线记录
type LiveView[R any] struct {
	Kind   record.Family
	Record *R
}

func (v LiveView[R]) Family() record.Family { return v.Kind }
func (v LiveView[R]) Status() ViewStatus    { return StatusLive }
func (LiveView[R]) sealed()                 {}

// ArchivedView 回收站中的归档，Payload 为解码后的载荷
type ArchivedView[S any] struct {
	Kind       record.Family
	ArchiveID  int64
	OriginalID *int64
	OwnerID    *int64
	Label      string
	DeletedAt  time.Time
	Payload    S
}

func (v ArchivedView[S]) Family() record.Family { return v.Kind }
func (v ArchivedView[S]) Status() ViewStatus    { return StatusArchived }
func (ArchivedView[S]) sealed()                 {}

// PreviewView 尚未保存的草稿
type PreviewView[S any] struct {
	Kind    record.Family
	Meta    snapshot.Meta
	Payload S
}

func (v PreviewView[S]) Family() record.Family { return v.Kind }
func (v PreviewView[S]) Status() ViewStatus    { return StatusPreview }
func (PreviewView[S]) sealed()                 {}

func archivedView[S any](arc snapshot.Archive, payload S) ArchivedView[S] {
	return ArchivedView[S]{
		Kind:       arc.Family,
		ArchiveID:  arc.ID,
		OriginalID: arc.OriginalID,
		OwnerID:    arc.OwnerID,
		Label:      arc.Label,
		DeletedAt:  arc.DeletedAt,
		Payload:    payload,
	}
}
