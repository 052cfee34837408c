package module

import "go.uber.org/zap"

// RegisterResource stores the loader for id. Registering an id again
// replaces its loader; duplicate modules are caught when they declare.
func (env *Env) RegisterResource(id string, loader Loader) {
	env.resources[id] = loader
	env.logger.Debug("resource registered", zap.String("id", id))
}

// HasResource reports whether a loader is registered for id.
func (env *Env) HasResource(id string) bool {
	loader, ok := env.resources[id]
	return ok && loader != nil
}

// Load runs the resource body registered for id against the global scope.
// The loading slot is set to id for the duration of the body and is left
// pointing at the most recently loaded id afterwards.
func (env *Env) Load(id string) error {
	loader, ok := env.resources[id]
	if !ok || loader == nil {
		return newError(KindResourceNotRegistered, id, nil)
	}

	env.loading = id
	env.depth++
	defer func() { env.depth-- }()

	env.logger.Debug("loading resource", zap.String("id", id), zap.Int("depth", env.depth))
	if err := guard(id, func() error { return loader(env.scope) }); err != nil {
		env.logger.Debug("resource failed", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}
