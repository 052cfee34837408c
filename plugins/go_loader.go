package plugins

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/kingrea/commonenv/internal/module"
)

const (
	// EnvImportPath is the import path interpreted bodies use for the loader
	// types.
	EnvImportPath = "commonenv/env"

	loadFuncName = "Load"
)

// Symbols exposes the loader types to interpreted bodies as package env.
var Symbols = interp.Exports{
	EnvImportPath + "/env": {
		"Scope":   reflect.ValueOf((*module.Scope)(nil)),
		"Module":  reflect.ValueOf((*module.Module)(nil)),
		"Exports": reflect.ValueOf((*module.Exports)(nil)),
		"Require": reflect.ValueOf((*module.Require)(nil)),
		"Factory": reflect.ValueOf((*module.Factory)(nil)),
		"Loader":  reflect.ValueOf((*module.Loader)(nil)),
	},
}

// Evaluate returns a loader that interprets source, a package main Go file
// defining
//
//	func Load(scope *env.Scope) error
//
// and calls Load with the global scope. Every load gets a fresh interpreter.
func Evaluate(id, source string) module.Loader {
	return func(scope *module.Scope) error {
		load, err := compile(id, source)
		if err != nil {
			return err
		}
		return load(scope)
	}
}

// Check interprets source without calling Load.
func Check(id, source string) error {
	_, err := compile(id, source)
	return err
}

func compile(id, source string) (func(*module.Scope) error, error) {
	if len(strings.TrimSpace(source)) == 0 {
		return nil, fmt.Errorf("plugin: %s is empty", id)
	}
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("plugin: %s: load stdlib symbols: %w", id, err)
	}
	if err := i.Use(Symbols); err != nil {
		return nil, fmt.Errorf("plugin: %s: load env symbols: %w", id, err)
	}
	if _, err := i.Eval(source); err != nil {
		return nil, fmt.Errorf("plugin: interpret %s: %w", id, err)
	}
	fnValue, err := i.Eval(loadFuncName)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s must define %s(*env.Scope) error: %w", id, loadFuncName, err)
	}
	load, err := loadFunc(fnValue)
	if err != nil {
		return nil, fmt.Errorf("plugin: %s: %w", id, err)
	}
	return load, nil
}

func loadFunc(value reflect.Value) (func(*module.Scope) error, error) {
	if !value.IsValid() {
		return nil, fmt.Errorf("missing %s function", loadFuncName)
	}
	if value.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s is not a function", loadFuncName)
	}
	if fn, ok := value.Interface().(func(*module.Scope) error); ok {
		return fn, nil
	}
	typ := value.Type()
	if typ.NumIn() != 1 || typ.NumOut() != 1 {
		return nil, fmt.Errorf("%s must have signature func(*env.Scope) error", loadFuncName)
	}
	scopeType := reflect.TypeOf((*module.Scope)(nil))
	if !scopeType.AssignableTo(typ.In(0)) {
		return nil, fmt.Errorf("%s must accept *env.Scope, got %s", loadFuncName, typ.In(0))
	}
	return func(scope *module.Scope) error {
		results := value.Call([]reflect.Value{reflect.ValueOf(scope)})
		out := results[0]
		if !out.IsValid() || (out.Kind() == reflect.Interface && out.IsNil()) {
			return nil
		}
		if err, ok := out.Interface().(error); ok {
			return err
		}
		return fmt.Errorf("%s returned non-error value %v", loadFuncName, out.Interface())
	}, nil
}
