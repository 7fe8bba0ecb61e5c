package core

import (
	"fmt"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindNotFound    Kind = "not_found"
	KindConflict    Kind = "conflict"
	KindConsistency Kind = "consistency"
	KindAuth        Kind = "auth"
)

// Error is a domain failure with a stable machine readable Code. Consistency errors carry the state of the
// attempted mutation in Detail so an operator can reconcile it.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Detail  map[string]interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is lets not found errors match ErrNotFound.
func (e *Error) Is(target error) bool {
	return target == ErrNotFound && e.Kind == KindNotFound
}

func newError(kind Kind, code, msg string) error {
	return errors.WithStack(&Error{Kind: kind, Code: code, Message: msg})
}

func Validation(code, msg string) error {
	return newError(KindValidation, code, msg)
}

func NotFound(code, msg string) error {
	return newError(KindNotFound, code, msg)
}

func Conflict(code, msg string) error {
	return newError(KindConflict, code, msg)
}

func Unauthorized(code, msg string) error {
	return newError(KindAuth, code, msg)
}

func Consistency(code, msg string, detail map[string]interface{}, cause error) error {
	return errors.WithStack(&Error{Kind: KindConsistency, Code: code, Message: msg, Detail: detail, cause: cause})
}

// AsError finds the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func KindOf(err error) Kind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}

func CodeOf(err error) string {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
