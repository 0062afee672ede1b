// Package simple builds the server side tables: every element is
// replicated into each of its candidate bins.
package simple

import (
	"bytes"

	"github.com/go-logr/logr"

	"github.com/optable/phasing/internal/hashing"
)

// DummyByte pads the unused cells of server bins. It must differ from
// the client padding so that two empty cells never match.
const DummyByte = 0x00

// cell is one bin entry: the position of the element in the entries
// and the index of the hash function it is tagged with.
type cell struct {
	pos uint32
	fn  uint8
}

// Table is one simple hashing table instance. Bins live in a single
// arena of nbins * capacity cells, bin b starting at b * capacity.
type Table struct {
	entries    []hashing.Entry
	outByteLen int
	nbins      uint32
	capacity   int
	counts     []uint32
	cells      []cell
	logger     logr.Logger
}

func newTable(inst hashing.Instance, nbins uint32, capacity int, logger logr.Logger) *Table {
	if capacity < 1 {
		capacity = 1
	}
	return &Table{
		entries:    inst.Entries,
		outByteLen: inst.OutByteLen,
		nbins:      nbins,
		capacity:   capacity,
		counts:     make([]uint32, nbins),
		cells:      make([]cell, int(nbins)*capacity),
		logger:     logger,
	}
}

func (t *Table) bin(b uint32) []cell {
	start := int(b) * t.capacity
	return t.cells[start : start+int(t.counts[b])]
}

// grow doubles the capacity of every bin. Bin contents and their
// order are kept.
func (t *Table) grow() {
	capacity := 2 * t.capacity
	cells := make([]cell, int(t.nbins)*capacity)
	for b := uint32(0); b < t.nbins; b++ {
		copy(cells[int(b)*capacity:], t.bin(b))
	}
	t.cells, t.capacity = cells, capacity
	t.logger.V(1).Info("bin capacity doubled", "capacity", capacity)
}

// insert appends element i to each of its distinct candidate bins.
func (t *Table) insert(i int) {
	e := &t.entries[i]
	for j, b := range e.Candidates() {
		if !e.Distinct(j) {
			continue
		}
		if int(t.counts[b]) == t.capacity {
			t.grow()
		}
		t.cells[int(b)*t.capacity+int(t.counts[b])] = cell{pos: uint32(i), fn: uint8(j)}
		t.counts[b]++
	}
}

// remove deletes element i from each of its distinct candidate bins.
// Cells are matched on their value and marker, and every bin must hold
// the element.
func (t *Table) remove(i int) error {
	e := &t.entries[i]
	for j, b := range e.Candidates() {
		if !e.Distinct(j) {
			continue
		}
		cells := t.bin(b)
		k := t.find(cells, e.Value, uint8(j))
		if k < 0 {
			return hashing.NotFound("element %d missing from bin %d", e.ID, b)
		}
		copy(cells[k:], cells[k+1:])
		t.counts[b]--
	}
	return nil
}

func (t *Table) find(cells []cell, value []byte, fn uint8) int {
	for k, c := range cells {
		if c.fn == fn && bytes.Equal(t.entries[c.pos].Value, value) {
			return k
		}
	}
	return -1
}

// Load returns the number of elements in bin b.
func (t *Table) Load(b uint32) int {
	return int(t.counts[b])
}

// MaxLoad returns the largest bin load.
func (t *Table) MaxLoad() (max int) {
	for _, c := range t.counts {
		if int(c) > max {
			max = int(c)
		}
	}
	return max
}

// Capacity returns the current capacity of every bin.
func (t *Table) Capacity() int {
	return t.capacity
}

// Size returns the total number of cells in use.
func (t *Table) Size() (n int) {
	for _, c := range t.counts {
		n += int(c)
	}
	return n
}

// Bins returns the bins that hold element i, in candidate order.
func (t *Table) Bins(i int) []uint32 {
	var bins []uint32
	e := &t.entries[i]
	for j, b := range e.Candidates() {
		if e.Distinct(j) && t.find(t.bin(b), e.Value, uint8(j)) >= 0 {
			bins = append(bins, b)
		}
	}
	return bins
}
