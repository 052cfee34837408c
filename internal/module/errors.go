package module

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind categorizes loader failures.
type Kind string

const (
	KindResourceNotRegistered Kind = "resource_not_registered"
	KindDuplicateModule       Kind = "duplicate_module"
	KindModuleNotFound        Kind = "module_not_found"
	KindRelativeID            Kind = "relative_id_not_allowed"
	KindEvaluation            Kind = "evaluation"
)

// Sentinels for errors.Is. They match any Error of the same kind.
var (
	ErrResourceNotRegistered = &Error{Kind: KindResourceNotRegistered}
	ErrDuplicateModule       = &Error{Kind: KindDuplicateModule}
	ErrModuleNotFound        = &Error{Kind: KindModuleNotFound}
	ErrRelativeID            = &Error{Kind: KindRelativeID}
	ErrEvaluation            = &Error{Kind: KindEvaluation}
)

// Error is returned by every loader operation that fails.
type Error struct {
	Cause error
	Kind  Kind
	ID    string
}

func (e *Error) Error() string {
	var b strings.Builder
	id := strconv.Quote(e.ID)
	switch e.Kind {
	case KindResourceNotRegistered:
		b.WriteString("module " + id + ": no resource registered")
	case KindDuplicateModule:
		b.WriteString("module " + id + " already exists")
	case KindModuleNotFound:
		b.WriteString("module " + id + " could not be found")
	case KindRelativeID:
		b.WriteString("relative module identifiers are not available outside a module: " + id)
	case KindEvaluation:
		b.WriteString("module " + id + ": evaluation failed")
	default:
		b.WriteString("module " + id + ": " + string(e.Kind))
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on kind, and on id when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.ID == "" || t.ID == e.ID
}

func newError(kind Kind, id string, cause error) *Error {
	return &Error{Kind: kind, ID: id, Cause: cause}
}

// evaluationError wraps a failure raised by module code. Loader errors that
// bubble up through nested loads and requires are returned as they are.
func evaluationError(id string, err error) error {
	if err == nil {
		return nil
	}
	var loaderErr *Error
	if errors.As(err, &loaderErr) {
		return err
	}
	return newError(KindEvaluation, id, err)
}

// guard runs module code, converting returned errors and panics.
func guard(id string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var cause error
			if e, ok := r.(error); ok {
				cause = fmt.Errorf("panic: %w", e)
			} else {
				cause = fmt.Errorf("panic: %v", r)
			}
			err = evaluationError(id, cause)
		}
	}()
	return evaluationError(id, fn())
}
