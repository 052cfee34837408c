package module

// Require resolves id against the module it is bound to and returns the
// module's exports, running its factory on first use.
type Require func(id string) (*Exports, error)

// Factory populates exports for a module. require is bound to the module's
// own id so relative ids resolve against it.
type Factory func(require Require, exports *Exports, mod *Module) error

// Loader executes a resource body against the global scope. Bodies are
// expected to call scope.Module.Declare exactly once.
type Loader func(scope *Scope) error

// Module is the record handed to a factory.
type Module struct {
	ID      string
	Require Require

	env *Env
	// root routes the global module's first top-level Declare to DeclareRoot.
	root func(deps []string, factory Factory) error
}

// Declare registers factory for the module currently being loaded after
// loading every dependency in deps, left to right.
func (m *Module) Declare(deps []string, factory Factory) error {
	if route := m.root; route != nil && m.env.depth == 0 {
		m.root = nil
		return route(deps, factory)
	}
	return m.env.declare(deps, factory)
}

// DeclareFactory is Declare without dependencies.
func (m *Module) DeclareFactory(factory Factory) error {
	return m.Declare(nil, factory)
}

// Provide loads every dependency in deps that has no registered factory yet,
// resolving relative ids against this module, and then calls callback.
// Loading is synchronous: callback has run by the time Provide returns. A
// failed load stops the walk and callback is not called.
func (m *Module) Provide(deps []string, callback func() error) error {
	return m.env.provide(m.ID, deps, callback)
}

// Scope is the global injection scope every resource body runs against.
type Scope struct {
	// Require is the boundary require; relative ids are rejected.
	Require Require
	// Module is the global module. Bodies call Module.Declare.
	Module *Module

	values map[string]any
}

// Value returns a host-injected value.
func (s *Scope) Value(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Values returns a copy of every host-injected value.
func (s *Scope) Values() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

type invocation struct {
	module *Module
	err    error
}
