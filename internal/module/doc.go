// Package module implements a dependency-based module loader.
//
// A module is backed by a resource: a Loader registered under an absolute
// id. Loading the resource runs module code which calls Declare with the ids
// it depends on and a Factory. Declare loads (but does not run) each
// dependency in order and then registers the factory. Factories run lazily,
// at most once, on the first Require of their id; every later Require
// returns the same *Exports. Require never loads: an id whose factory was
// not registered by an earlier Declare fails with ErrResourceNotRegistered,
// even when a resource is registered for it.
//
// # Lifecycle
//
// Each id moves through unregistered → registered → loaded → invoked. A
// factory that fails leaves its id failed for good: later requires return the
// recorded error and never rerun the factory.
//
// # Bootstrap
//
// The global scope's Module routes its first Declare made outside any
// resource load to DeclareRoot, which registers the root resource under the
// empty id, loads it and requires it.
//
// # Thread Safety
//
// Env is NOT safe for concurrent use. Loading, declaring and requiring
// re-enter the Env on the caller's goroutine; confine each Env to one
// goroutine.
package module
