package module

// DeclareRoot registers the root resource under RootID, loads it and
// requires it. The global module routes its first top-level Declare here.
// A second call fails with ErrDuplicateModule.
func (env *Env) DeclareRoot(deps []string, factory Factory) error {
	env.global.root = nil

	deps = append([]string(nil), deps...)
	env.RegisterResource(RootID, func(scope *Scope) error {
		return scope.Module.Declare(deps, factory)
	})
	if err := env.Load(RootID); err != nil {
		return err
	}
	_, err := env.require(RootID)
	return err
}

// Root returns the exports of the root module once it has been declared.
func (env *Env) Root() (*Exports, error) {
	return env.Exports(RootID)
}
