// Package apperr 定义业务错误分类，HTTP 层据此映射状态码。
package apperr

import (
	"errors"
	"fmt"
)

// Kind 业务错误类别。
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindRejected
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	case KindRejected:
		return "rejected"
	case KindValidation:
		return "validation_error"
	default:
		return "internal"
	}
}

// Error 携带类别与面向调用方的消息。
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is 使 errors.Is 可按类别匹配，例如 errors.Is(err, apperr.ErrConflict)。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// 仅用于 errors.Is 比较的类别哨兵。
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrForbidden  = &Error{Kind: KindForbidden}
	ErrConflict   = &Error{Kind: KindConflict}
	ErrRejected   = &Error{Kind: KindRejected}
	ErrValidation = &Error{Kind: KindValidation}
)

// NotFound 构造“资源不存在”类错误。
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Forbidden 构造“无权操作”类错误。
func Forbidden(format string, args ...any) error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

// Conflict 构造“与当前状态冲突”类错误。
func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Rejected 构造“业务规则拒绝”类错误。
func Rejected(format string, args ...any) error {
	return &Error{Kind: KindRejected, Message: fmt.Sprintf(format, args...)}
}

// Validation 构造“输入校验失败”类错误。
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// KindOf 返回错误链上第一个业务错误的类别。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message 返回业务错误消息，非业务错误返回空串。
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return ""
}
