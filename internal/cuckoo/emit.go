package cuckoo

import (
	"github.com/cockroachdb/errors"

	"github.com/optable/phasing/internal/hashing"
	"github.com/optable/phasing/internal/permutations"
	"github.com/optable/phasing/internal/util"
)

// DummyByte pads the empty cells of client tables and stash. It must
// differ from the server padding so that two empty cells never match.
const DummyByte = 0xFF

// Output is what the intersection circuit consumes on the client side.
type Output struct {
	// Tables holds one buffer per instance, NBins cells of
	// OutByteLens[k] bytes each.
	Tables      [][]byte
	OutByteLens []int
	// NelesInBin is the 0/1 occupancy of every cell.
	NelesInBin [][]uint32
	// Inverse maps each cell back to the original element index.
	Inverse []permutations.Inverse
	// Perm lists, per instance, the element indices of the occupied
	// cells in scan order.
	Perm [][]uint32
	// Stash holds MaxStashSize raw elements of ElementByteLen bytes.
	Stash          []byte
	StashPerm      permutations.Inverse
	ElementByteLen int
}

// Emit lays out the tables for the circuit. Occupied cells carry the
// element value tagged with the index of the hash function that maps
// the element to the cell. elements holds the raw input records of
// bitlen bits the stash is filled from; stash records keep only those
// bitlen bits.
func (ts *Tables) Emit(elements []byte, bitlen int) (*Output, error) {
	elebytelen := util.BitsToBytes(bitlen)
	out := &Output{
		Tables:         make([][]byte, len(ts.tables)),
		OutByteLens:    make([]int, len(ts.tables)),
		NelesInBin:     make([][]uint32, len(ts.tables)),
		Inverse:        make([]permutations.Inverse, len(ts.tables)),
		Perm:           make([][]uint32, len(ts.tables)),
		ElementByteLen: elebytelen,
	}

	for k, t := range ts.tables {
		outb := ts.instances[k].OutByteLen
		buf := make([]byte, t.Len()*outb)
		fill(buf, DummyByte)
		counts := make([]uint32, t.Len())
		inv := permutations.New(t.Len())

		for slot := range t.slots {
			e, ok := t.Slot(uint32(slot))
			if !ok {
				continue
			}
			marker := e.Marker(uint32(slot))
			if marker < 0 {
				return nil, errors.AssertionFailedf("element %d sits in slot %d, not one of its candidates", e.ID, slot)
			}
			e.MarkedValue(buf[slot*outb:(slot+1)*outb], marker)
			counts[slot] = 1
			inv[slot] = e.ID
		}

		out.OutByteLens[k] = outb
		out.Tables[k] = buf
		out.NelesInBin[k] = counts
		out.Inverse[k] = inv
		out.Perm[k] = inv.Compact()
	}

	ids := ts.stash.IDs()
	out.Stash = make([]byte, ts.stash.Size()*elebytelen)
	fill(out.Stash, DummyByte)
	out.StashPerm = permutations.New(ts.stash.Size())
	for i, id := range ids {
		end := (int(id) + 1) * elebytelen
		if end > len(elements) {
			return nil, errors.Wrapf(hashing.ErrInvalidParams, "element %d is past the end of %d input bytes", id, len(elements))
		}
		record := out.Stash[i*elebytelen : (i+1)*elebytelen]
		copy(record, elements[end-elebytelen:end])
		util.MaskTail(record, bitlen)
		out.StashPerm[i] = id
	}

	return out, nil
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
