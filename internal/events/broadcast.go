// Package events provides namespaced emitters whose handlers are keyed by
// dotted paths such as "rpc.sending". Emitting on a path also reaches the
// handlers of each of its prefixes.
package events

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyPath is returned for an empty event path.
	ErrEmptyPath = errors.New("events: event path is required")
	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("events: handler is required")
)

// Handler receives the arguments of an emitted event.
type Handler func(args ...any) error

// Raiser receives handler failures. *thrower.Raiser satisfies it.
type Raiser interface {
	Raise(err error)
}

// Broadcast calls every handler with args. A handler that fails or panics
// is reported to raiser and does not stop the remaining handlers.
func Broadcast(handlers []Handler, args []any, raiser Raiser) {
	for _, handler := range handlers {
		if err := call(handler, args); err != nil && raiser != nil {
			raiser.Raise(err)
		}
	}
}

func call(handler Handler, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("events: handler panic: %w", e)
				return
			}
			err = fmt.Errorf("events: handler panic: %v", r)
		}
	}()
	return handler(args...)
}

// descend calls fn for path and then for each shorter prefix, stopping
// early when fn returns false.
func descend(path string, fn func(prefix string) bool) {
	for path != "" {
		if !fn(path) {
			return
		}
		idx := strings.LastIndexByte(path, '.')
		if idx < 0 {
			return
		}
		path = path[:idx]
	}
}
