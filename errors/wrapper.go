package errors

import (
	"context"
	"fmt"
	"runtime"

	"recordbin/logging"
)

// Wrap 包装错误，添加错误码和上下文信息
// 建议：在Service/Handler层边界使用
func Wrap(ctx context.Context, err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}

	_, file, line, _ := runtime.Caller(1)
	wrapped := WrapError(err, code, msg)
	logging.GetLogger().Debug(ctx, fmt.Sprintf("错误包装: %s (位置: %s:%d)", msg, file, line))

	return wrapped
}

// WrapWithLog 包装错误并记录警告日志
func WrapWithLog(ctx context.Context, err error, code ErrorCode, msg string, fields ...logging.Field) error {
	if err == nil {
		return nil
	}

	_, file, line, _ := runtime.Caller(1)
	wrapped := WrapError(err, code, msg)

	allFields := append([]logging.Field{
		logging.Error(err),
		logging.String("error_code", string(code)),
		logging.String("location", fmt.Sprintf("%s:%d", file, line)),
	}, fields...)

	logging.GetLogger().Warn(ctx, msg, allFields...)

	return wrapped
}

// WrapDatabaseError 包装存储层错误
//
// 已是 AppError 的错误（NotFound、Conflict 等）保持原错误码，
// sql.ErrNoRows 归一为 NotFound，其余一律视为 DATABASE_ERROR。
func WrapDatabaseError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(IError); ok {
		return err
	}

	if normalized := Normalize(err); GetErrorCode(normalized) != ErrCodeInternal {
		return normalized
	}

	return WrapWithLog(ctx, err, ErrCodeDatabase,
		fmt.Sprintf("数据库操作失败: %s", operation),
		logging.String("operation", operation),
	)
}

// New 创建新错误（带调用位置）
func New(code ErrorCode, msg string) error {
	_, file, line, _ := runtime.Caller(1)
	enhancedMsg := fmt.Sprintf("%s (位置: %s:%d)", msg, file, line)
	return NewError(code, enhancedMsg)
}

// NewValidationError 创建新的验证错误
func NewValidationError(msg string) error {
	return NewError(ErrCodeValidation, msg)
}

// NotFoundf 创建未找到错误
func NotFoundf(format string, args ...any) error {
	return NewError(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

// Forbiddenf 创建禁止访问错误
func Forbiddenf(format string, args ...any) error {
	return NewError(ErrCodeForbidden, fmt.Sprintf(format, args...))
}

// Conflictf 创建冲突错误
func Conflictf(format string, args ...any) error {
	return NewError(ErrCodeConflict, fmt.Sprintf(format, args...))
}
