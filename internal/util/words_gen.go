//go:build !amd64 || generic
// +build !amd64 generic

package util

import (
	"encoding/binary"
)

// Uint64sFromBytes decodes b as a slice of little-endian uint64s.
// Excess bytes that do not fill a whole word are ignored.
func Uint64sFromBytes(b []byte) []uint64 {
	u := make([]uint64, len(b)/8)
	for i := range u {
		u[i] = binary.LittleEndian.Uint64(b[i*8 : (i+1)*8])
	}

	return u
}
