package module

import "sort"

// Exports holds the values a module publishes to the modules that require
// it. The loader allocates it before the module's factory runs and never
// replaces it, so a module that is required while its factory is still
// running observes the values set so far.
type Exports struct {
	values map[string]any
}

func newExports() *Exports {
	return &Exports{values: map[string]any{}}
}

// Set publishes value under name, replacing any earlier value.
func (e *Exports) Set(name string, value any) {
	e.values[name] = value
}

// Get returns the value published under name.
func (e *Exports) Get(name string) (any, bool) {
	v, ok := e.values[name]
	return v, ok
}

// Value returns the value published under name or nil.
func (e *Exports) Value(name string) any {
	return e.values[name]
}

// Delete removes name.
func (e *Exports) Delete(name string) {
	delete(e.values, name)
}

// Names returns the published names in sorted order.
func (e *Exports) Names() []string {
	names := make([]string, 0, len(e.values))
	for name := range e.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of published values.
func (e *Exports) Len() int {
	return len(e.values)
}

// As returns the value published under name when it has type T.
func As[T any](e *Exports, name string) (T, bool) {
	var zero T
	if e == nil {
		return zero, false
	}
	v, ok := e.values[name]
	if !ok {
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

// Exports returns the exports value for id.
func (env *Env) Exports(id string) (*Exports, error) {
	exports, ok := env.exports[id]
	if !ok {
		return nil, newError(KindModuleNotFound, id, nil)
	}
	return exports, nil
}

func (env *Env) createExports(id string) (*Exports, error) {
	if _, exists := env.exports[id]; exists {
		return nil, newError(KindDuplicateModule, id, nil)
	}
	exports := newExports()
	env.exports[id] = exports
	return exports, nil
}
