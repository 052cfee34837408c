package events

import "sync"

// Option customizes emitter construction.
type Option func(*registry)

// WithRaiser routes handler failures to raiser.
func WithRaiser(raiser Raiser) Option {
	return func(r *registry) {
		r.raiser = raiser
	}
}

type registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	raiser   Raiser
}

func (r *registry) init(opts []Option) {
	r.handlers = map[string][]Handler{}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
}

func (r *registry) bind(path string, handler Handler) error {
	if path == "" {
		return ErrEmptyPath
	}
	if handler == nil {
		return ErrNilHandler
	}
	r.handlers[path] = append(r.handlers[path], handler)
	return nil
}

func (r *registry) snapshot(path string) []Handler {
	handlers := r.handlers[path]
	if len(handlers) == 0 {
		return nil
	}
	return append([]Handler(nil), handlers...)
}

// Emitter delivers events to the handlers registered on the event path and
// on each of its prefixes, most specific first.
type Emitter struct {
	registry
}

// NewEmitter returns an emitter with no handlers.
func NewEmitter(opts ...Option) *Emitter {
	e := &Emitter{}
	e.init(opts)
	return e
}

// On registers handler for path.
func (e *Emitter) On(path string, handler Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bind(path, handler)
}

// Emit calls the handlers of path and its prefixes with args.
func (e *Emitter) Emit(path string, args ...any) error {
	if path == "" {
		return ErrEmptyPath
	}
	var batches [][]Handler
	e.mu.RLock()
	descend(path, func(prefix string) bool {
		if handlers := e.snapshot(prefix); handlers != nil {
			batches = append(batches, handlers)
		}
		return true
	})
	e.mu.RUnlock()
	for _, handlers := range batches {
		Broadcast(handlers, args, e.raiser)
	}
	return nil
}

// Notifier is an Emitter that remembers the latest arguments emitted on
// every path and prefix. A handler registered after a notification is called
// right away with the remembered arguments for its path.
type Notifier struct {
	registry
	values map[string][]any
}

// NewNotifier returns a notifier with no handlers or remembered values.
func NewNotifier(opts ...Option) *Notifier {
	n := &Notifier{values: map[string][]any{}}
	n.init(opts)
	return n
}

// On registers handler for path and replays the latest notification on it.
func (n *Notifier) On(path string, handler Handler) error {
	n.mu.Lock()
	if err := n.bind(path, handler); err != nil {
		n.mu.Unlock()
		return err
	}
	args, seen := n.values[path]
	n.mu.Unlock()
	if seen {
		Broadcast([]Handler{handler}, args, n.raiser)
	}
	return nil
}

// Emit remembers args on path and its prefixes and calls their handlers.
func (n *Notifier) Emit(path string, args ...any) error {
	if path == "" {
		return ErrEmptyPath
	}
	var batches [][]Handler
	n.mu.Lock()
	descend(path, func(prefix string) bool {
		n.values[prefix] = args
		if handlers := n.snapshot(prefix); handlers != nil {
			batches = append(batches, handlers)
		}
		return true
	})
	n.mu.Unlock()
	for _, handlers := range batches {
		Broadcast(handlers, args, n.raiser)
	}
	return nil
}

// Latest returns the arguments last emitted on path.
func (n *Notifier) Latest(path string) ([]any, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	args, ok := n.values[path]
	return args, ok
}
