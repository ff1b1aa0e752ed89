package rest

import (
	"time"

	"recordbin/domain/snapshot"
	"recordbin/trash"
)

type bulkRequest struct {
	Action string  `json:"action" validate:"required,oneof=trash restore purge delete"`
	IDs    []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

type restoreResponse struct {
	ID int64 `json:"id"`
}

type listResponse[T any] struct {
	Items  []T `json:"items"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type archiveSummary struct {
	ArchiveID  int64     `json:"archive_id"`
	OriginalID *int64    `json:"original_id,omitempty"`
	OwnerID    *int64    `json:"owner_id,omitempty"`
	Label      string    `json:"label"`
	Detail     string    `json:"detail"`
	DeletedAt  time.Time `json:"deleted_at"`
}

type trashPageResponse struct {
	Items    []archiveSummary `json:"items"`
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func toTrashPage(p snapshot.Page) trashPageResponse {
	items := make([]archiveSummary, 0, len(p.Items))
	for _, a := range p.Items {
		items = append(items, archiveSummary{
			ArchiveID:  a.ID,
			OriginalID: a.OriginalID,
			OwnerID:    a.OwnerID,
			Label:      a.Label,
			Detail:     a.Detail,
			DeletedAt:  a.DeletedAt,
		})
	}
	return trashPageResponse{Items: items, Total: p.Total, Page: p.Page, PageSize: p.PageSize}
}

// viewResponse RecordView 的 JSON 形态，status 区分 live/archived/preview
type viewResponse struct {
	Status     trash.ViewStatus `json:"status"`
	Family     string           `json:"family"`
	Record     any              `json:"record,omitempty"`
	ArchiveID  int64            `json:"archive_id,omitempty"`
	OriginalID *int64           `json:"original_id,omitempty"`
	OwnerID    *int64           `json:"owner_id,omitempty"`
	Label      string           `json:"label,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	DeletedAt  *time.Time       `json:"deleted_at,omitempty"`
	Payload    any              `json:"payload,omitempty"`
}

func toViewResponse[R, S any](v trash.RecordView) viewResponse {
	out := viewResponse{Status: v.Status(), Family: string(v.Family())}
	switch view := v.(type) {
	case trash.LiveView[R]:
		out.Record = view.Record
	case trash.ArchivedView[S]:
		deletedAt := view.DeletedAt
		out.ArchiveID = view.ArchiveID
		out.OriginalID = view.OriginalID
		out.OwnerID = view.OwnerID
		out.Label = view.Label
		out.DeletedAt = &deletedAt
		out.Payload = view.Payload
	case trash.PreviewView[S]:
		out.Label = view.Meta.Label
		out.Detail = view.Meta.Detail
		out.Payload = view.Payload
	}
	return out
}
