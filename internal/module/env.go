package module

import (
	"sort"

	"go.uber.org/zap"
)

// RootID is the id the root module is registered under.
const RootID = ""

// Env owns the loader state: resources, exports, factories, invocation
// records and the id of the resource currently being loaded.
type Env struct {
	logger *zap.Logger
	values map[string]any

	resources map[string]Loader
	exports   map[string]*Exports
	factories *factoryRegistry
	invoked   map[string]*invocation
	deps      map[string][]string

	loading string
	depth   int

	global *Module
	scope  *Scope
}

// Option customizes Env construction.
type Option func(*Env)

// WithLogger injects a logger for load/declare/invoke diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(env *Env) {
		if logger != nil {
			env.logger = logger
		}
	}
}

// WithValue injects a named value into the global scope.
func WithValue(name string, value any) Option {
	return func(env *Env) {
		env.values[name] = value
	}
}

// WithValues injects every entry of values into the global scope.
func WithValues(values map[string]any) Option {
	return func(env *Env) {
		for k, v := range values {
			env.values[k] = v
		}
	}
}

// New returns an empty Env ready for bootstrap.
func New(opts ...Option) *Env {
	env := &Env{
		logger: zap.NewNop(),
		values: map[string]any{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(env)
		}
	}
	env.Reset()
	return env
}

// Reset discards every registered resource, exports value, factory and
// invocation and re-arms bootstrap. Logger and injected values are kept.
func (env *Env) Reset() {
	env.resources = map[string]Loader{}
	env.exports = map[string]*Exports{}
	env.factories = newFactoryRegistry()
	env.invoked = map[string]*invocation{}
	env.deps = map[string][]string{}
	env.loading = RootID
	env.depth = 0

	require := env.boundaryRequire
	env.global = &Module{ID: RootID, Require: require, env: env}
	env.global.root = env.DeclareRoot
	env.scope = &Scope{Require: require, Module: env.global, values: env.values}
}

// Global returns the scope resource bodies run against.
func (env *Env) Global() *Scope {
	return env.scope
}

// Logger returns the diagnostics logger.
func (env *Env) Logger() *zap.Logger {
	return env.logger
}

// Loading returns the id of the resource most recently handed to Load.
func (env *Env) Loading() string {
	return env.loading
}

// IDs returns every id the Env knows about, sorted.
func (env *Env) IDs() []string {
	seen := make(map[string]struct{}, len(env.resources))
	for id := range env.resources {
		seen[id] = struct{}{}
	}
	for id := range env.exports {
		seen[id] = struct{}{}
	}
	for _, id := range env.factories.ids() {
		seen[id] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dependencies returns the resolved dependency ids recorded when id declared.
func (env *Env) Dependencies(id string) []string {
	deps := env.deps[id]
	if len(deps) == 0 {
		return nil
	}
	return append([]string{}, deps...)
}
