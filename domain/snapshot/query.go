package snapshot

import "recordbin/domain/record"

// DefaultPageSize 回收站列表默认每页条数
const DefaultPageSize = 10

// TrashQuery 回收站列表查询
type TrashQuery struct {
	Family record.Family
	// OwnerID 非空时只列出该用户的归档
	OwnerID *int64
	// Q 在 Label/Detail 上做不区分大小写的包含匹配
	Q        string
	Page     int
	PageSize int
}

// Normalize 修正分页参数，Page 从 1 开始
func (q TrashQuery) Normalize() TrashQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	return q
}

// Offset 当前页的偏移量
func (q TrashQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// Page 一页归档
type Page struct {
	Items    []Archive
	Total    int64
	Page     int
	PageSize int
}

// HasNext 是否还有下一页
func (p Page) HasNext() bool {
	return int64(p.Page*p.PageSize) < p.Total
}
