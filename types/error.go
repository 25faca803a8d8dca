package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode 统一错误码。
type ErrorCode string

const (
	ErrInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrTimeout          ErrorCode = "TIMEOUT"
	ErrCancelled        ErrorCode = "CANCELLED"
	ErrGenerationFailed ErrorCode = "GENERATION_FAILED"
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrInternalError    ErrorCode = "INTERNAL_ERROR"
)

// Error 带错误码的结构化错误。
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError 创建指定错误码的错误。
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause 附加底层错误。
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable 标记错误可重试。
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// CodeOf 返回错误链中第一个 *Error 的错误码，否则返回 ErrInternalError。
func CodeOf(err error) ErrorCode {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Code
	}
	return ErrInternalError
}

// IsCancelled 判断错误是否由取消引起。
func IsCancelled(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	var typed *Error
	return errors.As(err, &typed) && typed.Code == ErrCancelled
}
