// Package cuckoo builds the client side tables: every element takes
// exactly one of its candidate bins in each table instance, or goes to
// a bounded stash shared by all instances.
package cuckoo

import (
	"github.com/optable/phasing/internal/hashing"
)

// Table is one cuckoo table instance. Slots form an arena addressed by
// bin index; a slot holds the position of its element in entries, plus
// one, so that the zero value means empty.
type Table struct {
	entries []hashing.Entry
	slots   []uint32
	// pos is the candidate index of the slot an element occupies. It
	// advances when the element is evicted and then names the slot the
	// element in hand evicts from.
	pos           []uint8
	maxIterations int
	inserted      int
}

// NewTable returns an empty table of nbins slots for entries. An
// insertion gives up after maxIterations evictions.
func NewTable(entries []hashing.Entry, nbins uint32, maxIterations int) *Table {
	return &Table{
		entries:       entries,
		slots:         make([]uint32, nbins),
		pos:           make([]uint8, len(entries)),
		maxIterations: maxIterations,
	}
}

// Insert places the element at position i of the entries. If every
// candidate slot of the element in hand is taken, it evicts one
// occupant and carries on with the evicted element. A new element
// evicts from its first candidate. An evicted element evicts from the
// candidate following the one it was evicted from, so with 2 hash
// functions it alternates and with more it goes round-robin through
// its candidates. After maxIterations evictions the insertion fails
// and the element left in hand is returned as homeless. It is never in the table.
func (t *Table) Insert(i int) (homeless int, ok bool) {
	cur := i
	for iter := 0; iter < t.maxIterations; iter++ {
		if t.tryAdd(cur) {
			t.inserted++
			return 0, true
		}

		slot := t.entries[cur].Addresses[t.pos[cur]]

		evicted := int(t.slots[slot]) - 1
		t.slots[slot] = uint32(cur) + 1
		cur = evicted
		t.pos[cur] = uint8((int(t.pos[cur]) + 1) % t.entries[cur].NAddr)
	}

	return cur, false
}

// tryAdd puts element i into its first empty candidate slot.
func (t *Table) tryAdd(i int) (added bool) {
	for j, slot := range t.entries[i].Candidates() {
		if t.isEmpty(slot) {
			t.slots[slot] = uint32(i) + 1
			t.pos[i] = uint8(j)
			return true
		}
	}
	return false
}

// Remove clears the slot holding element i, if any. Only a slot that
// holds this very element is cleared.
func (t *Table) Remove(i int) (found bool) {
	for _, slot := range t.entries[i].Candidates() {
		if t.slots[slot] == uint32(i)+1 {
			t.slots[slot] = 0
			found = true
		}
	}
	if found {
		t.inserted--
	}
	return found
}

// Locate returns the slot that holds element i.
func (t *Table) Locate(i int) (slot uint32, ok bool) {
	for _, slot := range t.entries[i].Candidates() {
		if t.slots[slot] == uint32(i)+1 {
			return slot, true
		}
	}
	return 0, false
}

// Slot returns the entry occupying slot.
func (t *Table) Slot(slot uint32) (e *hashing.Entry, ok bool) {
	if t.isEmpty(slot) {
		return nil, false
	}
	return &t.entries[t.slots[slot]-1], true
}

// LoadFactor returns the ratio of occupied slots to slots.
func (t *Table) LoadFactor() float64 {
	if len(t.slots) == 0 {
		return 0
	}
	return float64(t.inserted) / float64(len(t.slots))
}

// Len returns the number of slots.
func (t *Table) Len() int {
	return len(t.slots)
}

func (t *Table) isEmpty(slot uint32) bool {
	return t.slots[slot] == 0
}
