package cuckoo

import (
	"github.com/cockroachdb/errors"
)

var ErrStashOverflow = errors.New("cuckoo stash overflow")

// Stash holds the original indices of the elements no table instance
// could place, in the order they were stashed.
type Stash struct {
	size int
	ids  []uint32
}

// NewStash returns an empty stash of capacity size.
func NewStash(size int) *Stash {
	return &Stash{size: size, ids: make([]uint32, 0, size)}
}

// Add appends id, or fails with ErrStashOverflow when the stash is full.
func (s *Stash) Add(id uint32) error {
	if len(s.ids) >= s.size {
		return errors.Wrapf(ErrStashOverflow, "stash of size %d is full", s.size)
	}
	s.ids = append(s.ids, id)
	return nil
}

// Contains returns true if id is in the stash.
func (s *Stash) Contains(id uint32) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// IDs returns the stashed indices.
func (s *Stash) IDs() []uint32 {
	return s.ids
}

// Size returns the capacity of the stash.
func (s *Stash) Size() int {
	return s.size
}
