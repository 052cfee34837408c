// Package resolver maps module identifiers onto absolute module ids. A
// relative id is interpreted against the directory of the module that asked
// for it; anything else is returned untouched.
package resolver
