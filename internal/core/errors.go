package core

import "errors"

// Kind classifies failures crossing the ledger and snapshot boundary.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindAuth
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found_error"
	case KindAuth:
		return "auth_error"
	case KindPersistence:
		return "persistence_error"
	default:
		return "internal_error"
	}
}

// Error tags an underlying error with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Validation(op string, err error) error  { return newError(KindValidation, op, err) }
func NotFound(op string, err error) error    { return newError(KindNotFound, op, err) }
func Auth(op string, err error) error        { return newError(KindAuth, op, err) }
func Persistence(op string, err error) error { return newError(KindPersistence, op, err) }

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether the same call may succeed if simply repeated.
func IsRetryable(err error) bool {
	return KindOf(err) == KindPersistence
}
