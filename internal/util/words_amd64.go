//go:build amd64 && !generic
// +build amd64,!generic

package util

import (
	"github.com/alecthomas/unsafeslice"
)

// Uint64sFromBytes reinterprets b as a slice of little-endian uint64s
// without copying. Excess bytes that do not fill a whole word are
// ignored. Only tested on x86-64.
func Uint64sFromBytes(b []byte) []uint64 {
	return unsafeslice.Uint64SliceFromByteSlice(b[:len(b)-len(b)%8])
}
