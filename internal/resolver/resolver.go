package resolver

import "strings"

const (
	separator = "/"
	current   = "."
	parent    = ".."
)

// IsRelative reports whether id must be resolved against a base id.
func IsRelative(id string) bool {
	return strings.HasPrefix(id, current)
}

// Resolve returns the absolute id for requested as seen from base.
//
// The last segment of base names the requesting module itself and is
// dropped before the relative segments are applied. "." segments are
// skipped, ".." pops one segment (popping past the root is a no-op) and
// every other segment is appended verbatim. Malformed input produces a
// malformed id rather than an error; the lookup that follows reports it.
func Resolve(base, requested string) string {
	if !IsRelative(requested) {
		return requested
	}
	resolved := strings.Split(base, separator)
	resolved = resolved[:len(resolved)-1]
	for _, part := range strings.Split(requested, separator) {
		switch part {
		case current:
		case parent:
			if len(resolved) > 0 {
				resolved = resolved[:len(resolved)-1]
			}
		default:
			resolved = append(resolved, part)
		}
	}
	return strings.Join(resolved, separator)
}

// Bind returns a resolver closed over base.
func Bind(base string) func(string) string {
	return func(requested string) string {
		return Resolve(base, requested)
	}
}
