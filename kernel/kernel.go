// Package kernel carries the default machine kernel script.
package kernel

import _ "embed"

// Name is the chunk name the default kernel is compiled under.
const Name = "=machine"

//go:embed machine.lua
var source []byte

// Source returns the default kernel source. Callers must not modify the
// returned slice.
func Source() []byte {
	return source
}
