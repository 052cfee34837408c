package module

import (
	"errors"

	"go.uber.org/zap"

	"github.com/kingrea/commonenv/internal/resolver"
)

var errNilFactory = errors.New("factory is required")

// declare registers factory for the loading id after its dependencies have
// been loaded.
func (env *Env) declare(deps []string, factory Factory) error {
	id := env.loading
	if factory == nil {
		return newError(KindEvaluation, id, errNilFactory)
	}
	if _, err := env.createExports(id); err != nil {
		return err
	}

	resolved := resolveAll(id, deps)
	env.deps[id] = resolved
	env.logger.Debug("module declared", zap.String("id", id), zap.Strings("deps", resolved))

	return env.provideResolved(resolved, func() error {
		return env.factories.register(id, factory)
	})
}

func (env *Env) provide(base string, deps []string, callback func() error) error {
	return env.provideResolved(resolveAll(base, deps), callback)
}

// provideResolved loads every id without a factory, in order, then calls
// callback. The first failed load is returned and callback is skipped.
func (env *Env) provideResolved(deps []string, callback func() error) error {
	for _, dep := range deps {
		if env.factories.has(dep) {
			continue
		}
		if err := env.Load(dep); err != nil {
			return err
		}
	}
	if callback == nil {
		return nil
	}
	return callback()
}

func resolveAll(base string, deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	resolve := resolver.Bind(base)
	out := make([]string, len(deps))
	for i, dep := range deps {
		out[i] = resolve(dep)
	}
	return out
}
