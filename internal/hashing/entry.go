package hashing

import (
	"github.com/cockroachdb/errors"
)

// Entry is one hashed element: its original index, its candidate
// addresses and its compressed value. Entries belong to the builder
// that created them.
type Entry struct {
	ID        uint32
	Addresses [MaxHashFuns]uint32
	// NAddr is the number of valid Addresses.
	NAddr int
	// Value is the compressed element with zeroed marker bits.
	Value []byte
}

// Candidates returns the candidate addresses of e.
func (e *Entry) Candidates() []uint32 {
	return e.Addresses[:e.NAddr]
}

// Marker returns the index of the first hash function that maps e to
// bin, or -1. Both parties tag a value with this index so that
// coinciding addresses always produce the same marker.
func (e *Entry) Marker(bin uint32) int {
	for i, a := range e.Candidates() {
		if a == bin {
			return i
		}
	}

	return -1
}

// MarkedValue writes the value of e tagged with marker into dst.
func (e *Entry) MarkedValue(dst []byte, marker int) {
	copy(dst, e.Value)
	dst[0] ^= byte(marker) & (1<<MarkerBits - 1)
}

// Distinct reports whether candidate position i is the first position
// holding its address.
func (e *Entry) Distinct(i int) bool {
	return e.Marker(e.Addresses[i]) == i
}

// ErrElementNotFound is raised when an element a table expects to hold
// is absent. It always signals a broken table invariant.
var ErrElementNotFound = errors.New("element not found")

// Instance is the hashed input of one table instance. Every instance of
// a table lists the same elements in the same order, so a position in
// Entries identifies an element across instances.
type Instance struct {
	Entries    []Entry
	OutByteLen int
}

// NotFound returns an assertion failure marked with ErrElementNotFound.
func NotFound(format string, args ...interface{}) error {
	return errors.Mark(errors.AssertionFailedf(format, args...), ErrElementNotFound)
}
