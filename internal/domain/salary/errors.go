package salary

import (
	"fmt"

	"github.com/pkg/errors"

	"hrpay/internal/domain/org"
)

// Kind classifies salary errors independently of any transport.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindDuplicate
	KindConflict
	KindDecryption
	KindCipherUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindConflict:
		return "conflict"
	case KindDecryption:
		return "decryption"
	case KindCipherUnavailable:
		return "cipher_unavailable"
	default:
		return "internal"
	}
}

type Error struct {
	Kind  Kind
	Op    string
	Field string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrDuplicate)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrDuplicate  = &Error{Kind: KindDuplicate}
	ErrConflict   = &Error{Kind: KindConflict}
)

// KindOf returns the Kind carried by err, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validationError(op, field, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func notFound(op, msg string) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: msg}
}

func internal(op string, err error) error {
	return &Error{Kind: KindInternal, Op: op, Err: errors.WithStack(err)}
}

// fromDirectory maps identity lookups onto salary kinds.
func fromDirectory(op string, err error) error {
	switch {
	case errors.Is(err, org.ErrCompanyNotFound),
		errors.Is(err, org.ErrDepartmentNotFound),
		errors.Is(err, org.ErrEmployeeNotFound):
		return &Error{Kind: KindNotFound, Op: op, Msg: err.Error(), Err: err}
	case errors.Is(err, org.ErrNotInCompany), errors.Is(err, org.ErrNotInDepartment):
		return &Error{Kind: KindValidation, Op: op, Field: "employeeId", Msg: err.Error(), Err: err}
	default:
		return internal(op, err)
	}
}
