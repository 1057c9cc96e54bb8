// Package apperr описывает доменные ошибки, общие для всех слоёв.
package apperr

import (
	"errors"
	"fmt"
)

// Kind классифицирует доменную ошибку
type Kind string

const (
	KindMalformedTimestamp          Kind = "malformed_timestamp"
	KindMalformedSlot               Kind = "malformed_slot"
	KindForbidden                   Kind = "forbidden"
	KindInvalidStateTransition      Kind = "invalid_state_transition"
	KindSlotNotOffered              Kind = "slot_not_offered"
	KindDuplicateRequest            Kind = "duplicate_request"
	KindExternalCollaboratorFailure Kind = "external_collaborator_failure"
	KindNotFound                    Kind = "not_found"
	KindValidation                  Kind = "validation"
)

// Error доменная ошибка с видом и сообщением для клиента
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по виду, что позволяет писать errors.Is(err, apperr.ErrForbidden)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Сентинелы для errors.Is
var (
	ErrMalformedTimestamp          = &Error{Kind: KindMalformedTimestamp}
	ErrMalformedSlot               = &Error{Kind: KindMalformedSlot}
	ErrForbidden                   = &Error{Kind: KindForbidden}
	ErrInvalidStateTransition      = &Error{Kind: KindInvalidStateTransition}
	ErrSlotNotOffered              = &Error{Kind: KindSlotNotOffered}
	ErrDuplicateRequest            = &Error{Kind: KindDuplicateRequest}
	ErrExternalCollaboratorFailure = &Error{Kind: KindExternalCollaboratorFailure}
	ErrNotFound                    = &Error{Kind: KindNotFound}
	ErrValidation                  = &Error{Kind: KindValidation}
)

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func MalformedTimestamp(format string, args ...any) *Error {
	return newf(KindMalformedTimestamp, format, args...)
}

func MalformedSlot(format string, args ...any) *Error {
	return newf(KindMalformedSlot, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(KindForbidden, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return newf(KindInvalidStateTransition, format, args...)
}

func SlotNotOffered(format string, args ...any) *Error {
	return newf(KindSlotNotOffered, format, args...)
}

func DuplicateRequest(format string, args ...any) *Error {
	return newf(KindDuplicateRequest, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

// External оборачивает сбой внешнего сервиса
func External(collaborator string, err error) *Error {
	return &Error{
		Kind:    KindExternalCollaboratorFailure,
		Message: collaborator + " unavailable",
		Err:     err,
	}
}

// KindOf возвращает вид доменной ошибки или пустую строку для прочих ошибок
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
