package treasury

import (
	"errors"
	"fmt"
)

// Kind classifies rejections so calling layers can present an actionable
// message instead of a generic failure.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindState
	KindInsufficientFunds
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindState:
		return "state"
	case KindInsufficientFunds:
		return "insufficient_funds"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func errValidation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func errAuthorization(op, format string, args ...any) error {
	return &Error{Kind: KindAuthorization, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func errState(op, format string, args ...any) error {
	return &Error{Kind: KindState, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func errInsufficientFunds(op, format string, args ...any) error {
	return &Error{Kind: KindInsufficientFunds, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// IsKind reports whether err is a treasury Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}
