// Package errs 定义管道的错误分类
// 阶段处理器据此决定重试策略：校验错误不重试，瞬时错误有界重试
package errs

import (
	"errors"
	"fmt"
)

// ValidationError 输入不合法，立即上报，不重试
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidation 创建校验错误
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IntegrityError 读取时校验和不匹配
type IntegrityError struct {
	FileID   string
	Backend  string
	Expected string
	Actual   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("checksum mismatch for file %s on backend %s: expected %s, got %s",
		e.FileID, e.Backend, e.Expected, e.Actual)
}

// TransientError 网络/后端超时等可重试错误
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransient 包装为瞬时错误
func NewTransient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// NotFoundError 所有已知位置均不存在引用的文件
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// NewNotFound 创建未找到错误
func NewNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// IsValidation 判断是否校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsIntegrity 判断是否完整性错误
func IsIntegrity(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// IsTransient 判断是否瞬时错误
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsNotFound 判断是否未找到错误
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// Retryable 判断错误是否应按退避策略重试
// 校验错误与未找到错误为终态，其余按瞬时处理
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if IsValidation(err) || IsNotFound(err) {
		return false
	}
	return true
}
