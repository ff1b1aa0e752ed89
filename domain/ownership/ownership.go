// Package ownership 判定用户能否操作某条记录或归档
package ownership

import (
	"fmt"

	"recordbin/domain/record"
	"recordbin/errors"
)

// Action 被授权的操作
type Action string

const (
	ActionView    Action = "view"
	ActionList    Action = "list"
	ActionTrash   Action = "trash"
	ActionRestore Action = "restore"
	ActionPurge   Action = "purge"
)

// Allowed 管理员总是允许；普通用户只能访问归属于自己的记录，无归属记录不可访问
func Allowed(actor record.Actor, owner *int64) bool {
	if actor.Elevated {
		return true
	}
	return owner != nil && *owner == actor.ID
}

// Authorize 校验 actor 对归属为 owner 的记录执行 action 的权限，失败返回 FORBIDDEN
func Authorize(actor record.Actor, owner *int64, action Action) error {
	if Allowed(actor, owner) {
		return nil
	}
	return errors.NewError(errors.ErrCodeForbidden,
		fmt.Sprintf("actor %d may not %s this record", actor.ID, action)).
		WithContext("action", string(action)).
		WithContext("actor_id", actor.ID)
}

// Scope 列表查询的归属过滤条件：管理员返回 nil（不过滤），普通用户只看自己的记录
func Scope(actor record.Actor) *int64 {
	if actor.Elevated {
		return nil
	}
	id := actor.ID
	return &id
}
