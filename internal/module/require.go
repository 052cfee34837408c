package module

import (
	"go.uber.org/zap"

	"github.com/kingrea/commonenv/internal/resolver"
)

// Require is the boundary require used outside any module. Relative ids
// are rejected with ErrRelativeID.
func (env *Env) Require(id string) (*Exports, error) {
	return env.boundaryRequire(id)
}

func (env *Env) boundaryRequire(id string) (*Exports, error) {
	if resolver.IsRelative(id) {
		return nil, newError(KindRelativeID, id, nil)
	}
	return env.require(id)
}

// makeRequire returns a require that resolves relative ids against base.
func (env *Env) makeRequire(base string) Require {
	resolve := resolver.Bind(base)
	return func(id string) (*Exports, error) {
		return env.require(resolve(id))
	}
}

// require never loads. An id without a factory was not provided by the
// caller's deps and is reported as ErrResourceNotRegistered.
func (env *Env) require(id string) (*Exports, error) {
	factory, ok := env.factories.lookup(id)
	if !ok {
		return nil, newError(KindResourceNotRegistered, id, nil)
	}
	exports, err := env.Exports(id)
	if err != nil {
		return nil, err
	}

	if inv, ok := env.invoked[id]; ok {
		if inv.err != nil {
			return nil, inv.err
		}
		return exports, nil
	}

	mod := &Module{ID: id, Require: env.makeRequire(id), env: env}
	inv := &invocation{module: mod}
	env.invoked[id] = inv

	env.logger.Debug("invoking factory", zap.String("id", id))
	if err := guard(id, func() error { return factory(mod.Require, exports, mod) }); err != nil {
		inv.err = err
		env.logger.Debug("factory failed", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return exports, nil
}
