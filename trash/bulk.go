package trash

import (
	"context"
	"fmt"
	"strings"

	"recordbin/domain/ownership"
	"recordbin/domain/record"
	"recordbin/errors"
	"recordbin/logging"
)

// BulkResult 批量操作结果
type BulkResult struct {
	Total        int     `json:"total"`
	SuccessCount int     `json:"success_count"`
	SucceededIDs []int64 `json:"succeeded_ids,omitempty"`
	FailedIDs    []int64 `json:"failed_ids,omitempty"`
}

// ParseAction 解析批量动作：trash、restore、purge（delete 视为 purge）
func ParseAction(s string) (ownership.Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trash":
		return ownership.ActionTrash, nil
	case "restore":
		return ownership.ActionRestore, nil
	case "purge", "delete":
		return ownership.ActionPurge, nil
	default:
		return "", errors.NewValidationError(fmt.Sprintf("unknown bulk action %q", s))
	}
}

// Bulk 对每个 id 独立执行 action，各自使用独立事务。
//
// trash 的 id 为在线记录 ID，restore/purge 的 id 为归档 ID。单条失败只记录告警日志并计入 FailedIDs，
// 不会中断其余条目；返回的错误只表示请求本身不合法（未知动作或超出批量上限）。
func (e *Engine[R, S]) Bulk(ctx context.Context, action ownership.Action, ids []int64, actor record.Actor) (BulkResult, error) {
	run, err := e.bulkOperation(action)
	if err != nil {
		return BulkResult{}, err
	}
	if len(ids) > e.maxBulkSize {
		return BulkResult{}, errors.NewValidationError(
			fmt.Sprintf("batch size %d exceeds maximum limit of %d", len(ids), e.maxBulkSize))
	}

	result := BulkResult{
		Total:        len(ids),
		SucceededIDs: make([]int64, 0, len(ids)),
		FailedIDs:    make([]int64, 0),
	}
	for _, id := range ids {
		if err := run(ctx, id, actor); err != nil {
			e.logger.Warn(ctx, "bulk item failed",
				logging.String("action", string(action)),
				logging.Int64("id", id),
				logging.Error(err))
			result.FailedIDs = append(result.FailedIDs, id)
			continue
		}
		result.SuccessCount++
		result.SucceededIDs = append(result.SucceededIDs, id)
	}

	if e.observer != nil {
		e.observer.ObserveBulk(string(e.family.Kind()), string(action), result.SuccessCount, len(result.FailedIDs))
	}
	return result, nil
}

func (e *Engine[R, S]) bulkOperation(action ownership.Action) (func(context.Context, int64, record.Actor) error, error) {
	switch action {
	case ownership.ActionTrash:
		return e.Trash, nil
	case ownership.ActionRestore:
		return func(ctx context.Context, id int64, actor record.Actor) error {
			_, err := e.Restore(ctx, id, actor)
			return err
		}, nil
	case ownership.ActionPurge:
		return e.Purge, nil
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported bulk action %q", action))
	}
}
