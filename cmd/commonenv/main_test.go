package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const utilSource = `package main

import "commonenv/env"

func Load(scope *env.Scope) error {
	return scope.Module.DeclareFactory(func(require env.Require, exports *env.Exports, mod *env.Module) error {
		exports.Set("name", "util")
		return nil
	})
}
`

const mainSource = `package main

import "commonenv/env"

func Load(scope *env.Scope) error {
	return scope.Module.Declare([]string{"./util", "logging"}, func(require env.Require, exports *env.Exports, mod *env.Module) error {
		_, err := require("./util")
		return err
	})
}
`

const brokenSource = `package main

import (
	"errors"

	"commonenv/env"
)

func Load(scope *env.Scope) error {
	return scope.Module.DeclareFactory(func(require env.Require, exports *env.Exports, mod *env.Module) error {
		return errors.New("factory refused")
	})
}
`

func writeBundle(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestRunBootstrapsRoot(t *testing.T) {
	dir := writeBundle(t, map[string]string{
		"app/main.go":    mainSource,
		"app/util.go":    utilSource,
		"commonenv.yaml": "root: app/main\nlog:\n  level: debug\n",
	})
	var stdout, stderr bytes.Buffer
	if err := run(options{bundleDir: dir, quiet: true}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := stdout.String()
	for _, want := range []string{"(root) <- app/main", "app/util", "logging", "registered"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "invoked      app/main <- app/util, logging") {
		t.Fatalf("expected app/main invoked:\n%s", out)
	}
	if stderr.Len() != 0 {
		t.Fatalf("expected quiet stderr, got %q", stderr.String())
	}

	stdout.Reset()
	if err := run(options{bundleDir: dir, tail: 2}, &stdout, &stderr); err != nil {
		t.Fatalf("tail: %v", err)
	}
	if !strings.Contains(stdout.String(), "(2 of ") {
		t.Fatalf("unexpected tail output:\n%s", stdout.String())
	}
}

func TestRunReportsFactoryFailure(t *testing.T) {
	dir := writeBundle(t, map[string]string{"broken.go": brokenSource})
	var stdout, stderr bytes.Buffer
	err := run(options{bundleDir: dir, root: "broken"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "factory refused") {
		t.Fatalf("expected factory failure, got %v", err)
	}
	if !strings.Contains(stdout.String(), "failed       broken") {
		t.Fatalf("expected failed state in output:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "uncaught error") {
		t.Fatalf("expected raised error on stderr, got %q", stderr.String())
	}
}

func TestRunSuggestsUnknownRoot(t *testing.T) {
	dir := writeBundle(t, map[string]string{"app/main.go": mainSource, "app/util.go": utilSource})
	var stdout, stderr bytes.Buffer
	err := run(options{bundleDir: dir, root: "app/man", quiet: true}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "did you mean app/main") {
		t.Fatalf("expected suggestion, got %v", err)
	}
	if err := run(options{bundleDir: dir, quiet: true}, &stdout, &stderr); err == nil {
		t.Fatalf("expected missing root error")
	}
}

func TestRunInitAndCheck(t *testing.T) {
	dir := writeBundle(t, map[string]string{"main.go": utilSource})
	var stdout, stderr bytes.Buffer
	if err := run(options{bundleDir: dir, init: true}, &stdout, &stderr); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "commonenv.yaml")); err != nil {
		t.Fatalf("expected config file: %v", err)
	}

	stdout.Reset()
	if err := run(options{bundleDir: dir, check: true}, &stdout, &stderr); err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(stdout.String(), "1 modules ok") {
		t.Fatalf("check output = %q", stdout.String())
	}
}

func TestParseValue(t *testing.T) {
	if v := parseValue("3"); v != 3 {
		t.Fatalf("parseValue(3) = %#v", v)
	}
	if v := parseValue("true"); v != true {
		t.Fatalf("parseValue(true) = %#v", v)
	}
	if v := parseValue("hello"); v != "hello" {
		t.Fatalf("parseValue(hello) = %#v", v)
	}
	if v := parseValue(""); v != "" {
		t.Fatalf("parseValue(empty) = %#v", v)
	}
}

func TestInjectFlag(t *testing.T) {
	kv := injectFlag{}
	if err := kv.Set("greeting=hello=world"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if kv["greeting"] != "hello=world" {
		t.Fatalf("value = %q", kv["greeting"])
	}
	if err := kv.Set("novalue"); err == nil {
		t.Fatalf("expected error without '='")
	}
	if err := kv.Set(" =x"); err == nil {
		t.Fatalf("expected error for empty key")
	}
}

func TestInjectFlagStringIsSorted(t *testing.T) {
	kv := injectFlag{}
	for _, pair := range []string{"zeta=1", "alpha=2", "mid=3"} {
		if err := kv.Set(pair); err != nil {
			t.Fatalf("set %s: %v", pair, err)
		}
	}
	for i := 0; i < 10; i++ {
		if got := kv.String(); got != "alpha=2, mid=3, zeta=1" {
			t.Fatalf("string = %q", got)
		}
	}
	var empty *injectFlag
	if empty.String() != "" {
		t.Fatalf("expected empty string for nil flag")
	}
}
