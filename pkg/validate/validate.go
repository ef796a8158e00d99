// Package validate 提供进程内共享的 go-playground/validator 实例，
// 并把校验失败转换为 INVALID_INPUT 领域错误。
package validate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/rushteam/moodflix/core"
)

var (
	v    *validator.Validate
	once sync.Once
)

// Get 返回单例 validator，并发安全。
func Get() *validator.Validate {
	once.Do(func() {
		v = validator.New(validator.WithRequiredStructEnabled())
	})
	return v
}

// Struct 校验结构体，失败时返回 *core.DomainError（module 为调用方传入）。
func Struct(module string, s any) error {
	err := Get().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return core.WrapDomainError(module, core.ErrorCodeInvalidInput, "validation failed", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, message(fe))
	}
	return core.NewDomainError(module, core.ErrorCodeInvalidInput, strings.Join(msgs, "; "))
}

func message(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
