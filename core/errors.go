package core

import (
	"errors"
	"fmt"
)

// DomainError 是领域层的统一错误类型，带模块名与错误代码。
type DomainError struct {
	Code    string // NOT_FOUND / NOT_SUPPORTED / ...
	Message string
	Module  string // store / catalog / vector / model ...
	Err     error  // 底层错误，可为空
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error { return e.Err }

// Is 按 Module + Code 比较，便于与预定义的哨兵错误做 errors.Is。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Module == t.Module && e.Code == t.Code
}

// NewDomainError 创建新的领域错误。
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{Module: module, Code: code, Message: message}
}

// WrapDomainError 创建带底层错误的领域错误。
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{Module: module, Code: code, Message: message, Err: err}
}

// GetDomainError 沿错误链查找 DomainError，找不到返回 nil。
func GetDomainError(err error) *DomainError {
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return nil
}

const (
	ErrorCodeNotFound      = "NOT_FOUND"
	ErrorCodeNotSupported  = "NOT_SUPPORTED"
	ErrorCodeUnavailable   = "UNAVAILABLE"
	ErrorCodeInvalidInput  = "INVALID_INPUT"
	ErrorCodeInternalError = "INTERNAL_ERROR"
)

const (
	ModuleStore    = "store"
	ModuleCatalog  = "catalog"
	ModuleVector   = "vector"
	ModuleModel    = "model"
	ModuleFeedback = "feedback"
)

func hasCode(err error, code string) bool {
	de := GetDomainError(err)
	return de != nil && de.Code == code
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool { return hasCode(err, ErrorCodeNotFound) }

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool { return hasCode(err, ErrorCodeNotSupported) }

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool { return hasCode(err, ErrorCodeUnavailable) }

// IsInvalidInput 检查错误是否为 INVALID_INPUT
func IsInvalidInput(err error) bool { return hasCode(err, ErrorCodeInvalidInput) }

// ConfigurationError 表示调用方传入了无效配置（例如全部权重非正）。
// 对单次调用是致命的，直接返回给调用方，不在本地恢复。
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// IsConfigurationError 检查错误链上是否有 ConfigurationError。
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
