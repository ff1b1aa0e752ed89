package record

// Actor 发起操作的用户。Elevated 为管理员，可跨归属访问
type Actor struct {
	ID       int64
	Elevated bool
}

// ListQuery 在线记录列表查询
type ListQuery struct {
	// OwnerID 非空时只返回该用户的记录
	OwnerID *int64
	Limit   int
	Offset  int
}

// DefaultListLimit 列表默认条数
const DefaultListLimit = 50

// Normalize 修正非法分页参数
func (q ListQuery) Normalize() ListQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}
