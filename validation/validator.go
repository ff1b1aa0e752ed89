package validation

import (
	"fmt"
	"net/mail"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"recordbin/errors"
)

// IValidator 定义通用验证器接口
type IValidator interface {
	Validate(value any) error
}

// NoopValidator 默认验证器，实现为空操作
type NoopValidator struct{}

// Validate 实现 IValidator 接口
func (NoopValidator) Validate(value any) error {
	return nil
}

// StructValidator 基于 validator/v10 的结构体校验
//
// decimal.Decimal 字段按 float64 参与 gte/lte 等数值规则；
// 字段名取 json tag，便于直接返回给调用方。
type StructValidator struct {
	validate *validator.Validate
}

// NewStructValidator 创建结构体验证器
func NewStructValidator() *StructValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(decimalValue, decimal.Decimal{})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return &StructValidator{validate: v}
}

func decimalValue(field reflect.Value) any {
	if d, ok := field.Interface().(decimal.Decimal); ok {
		f, _ := d.Float64()
		return f
	}
	return nil
}

// Validate 实现 IValidator 接口，失败时返回带字段详情的 VALIDATION_ERROR
func (s *StructValidator) Validate(value any) error {
	err := s.validate.Struct(value)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.WrapError(err, errors.ErrCodeValidation, "数据验证失败")
	}

	details := make(map[string]any, len(fieldErrs))
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		details[fe.Field()] = rule
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), rule))
	}
	return errors.NewError(errors.ErrCodeValidation, "数据验证失败: "+strings.Join(msgs, "; ")).
		WithDetails(details)
}

var (
	defaultOnce sync.Once
	defaultVal  *StructValidator
)

// Struct 使用包级共享验证器校验结构体
func Struct(value any) error {
	defaultOnce.Do(func() { defaultVal = NewStructValidator() })
	return defaultVal.Validate(value)
}

// NewValidationError 创建验证错误
func NewValidationError(message string) error {
	return errors.NewValidationError(message)
}

// ValidateRequired 验证必填字段
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s不能为空", fieldName))
	}
	return nil
}

// ValidateEmail 验证邮箱格式，空值视为未填写
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.NewError(errors.ErrCodeValidation, "邮箱格式不正确")
	}
	return nil
}

// ValidateEnum 验证枚举值
func ValidateEnum(value, fieldName string, validValues []string) error {
	for _, valid := range validValues {
		if value == valid {
			return nil
		}
	}
	return errors.NewError(errors.ErrCodeValidation,
		fmt.Sprintf("%s的值无效，必须是以下之一: %v", fieldName, validValues))
}

// ValidatePageParams 验证分页参数
func ValidatePageParams(page, pageSize int) error {
	if page <= 0 {
		return errors.NewError(errors.ErrCodeValidation, "页码必须大于0")
	}
	if pageSize <= 0 {
		return errors.NewError(errors.ErrCodeValidation, "每页大小必须大于0")
	}
	if pageSize > 100 {
		return errors.NewError(errors.ErrCodeValidation, "每页大小不能超过100")
	}
	return nil
}

// ValidateID 验证ID有效性
func ValidateID(id int64, fieldName string) error {
	if id <= 0 {
		return errors.NewError(errors.ErrCodeValidation,
			fmt.Sprintf("%s必须为正整数", fieldName))
	}
	return nil
}
