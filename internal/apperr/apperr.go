// Package apperr описывает ошибки бизнес-логики, которые транспорт
// переводит в HTTP статусы.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindBadRequest
	KindForbidden
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindBadRequest:
		return "bad request"
	case KindForbidden:
		return "forbidden"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

func BadRequest(format string, args ...any) error {
	return newf(KindBadRequest, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newf(KindForbidden, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newf(KindUnauthorized, format, args...)
}

// KindOf возвращает вид ошибки; всё, что не *Error, считается внутренней.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is проверяет вид ошибки err.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
