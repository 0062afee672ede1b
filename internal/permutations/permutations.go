// Package permutations keeps track of which original element sits in
// every position of a table, and turns the membership bits revealed by
// the intersection circuit back into element indices.
package permutations

import (
	"math"
	"sort"

	"github.com/cockroachdb/errors"

	"github.com/optable/phasing/internal/util"
)

// Empty marks a position that holds no element. No element index can
// take this value.
const Empty uint32 = math.MaxUint32

var ErrResultLength = errors.New("result bits do not cover every position")

// Inverse maps a table position to the original index of the element
// stored there, or Empty.
type Inverse []uint32

// New returns an Inverse of n empty positions.
func New(n int) Inverse {
	p := make(Inverse, n)
	for i := range p {
		p[i] = Empty
	}

	return p
}

// Occupied returns the number of non empty positions.
func (p Inverse) Occupied() (n int) {
	for _, id := range p {
		if id != Empty {
			n++
		}
	}

	return n
}

// Compact returns the element indices of the occupied positions in
// left-to-right scan order.
func (p Inverse) Compact() []uint32 {
	ids := make([]uint32, 0, p.Occupied())
	for _, id := range p {
		if id != Empty {
			ids = append(ids, id)
		}
	}

	return ids
}

// Matches returns the indices of the elements whose position has its
// bit set in bits (least significant bit first). Bits of empty
// positions are ignored.
func (p Inverse) Matches(bits []byte) ([]uint32, error) {
	if len(bits) < util.BitsToBytes(len(p)) {
		return nil, errors.Wrapf(ErrResultLength, "%d bytes for %d positions", len(bits), len(p))
	}

	var ids []uint32
	for i, id := range p {
		if id != Empty && util.BitSetInByte(bits, i) {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// Recover returns the sorted and deduplicated indices of every matched
// element, given one bit vector per table instance and one for the
// stash. An element present in several instances is reported once.
func Recover(tables []Inverse, bits [][]byte, stash Inverse, stashBits []byte) ([]uint32, error) {
	if len(bits) != len(tables) {
		return nil, errors.Wrapf(ErrResultLength, "%d result vectors for %d tables", len(bits), len(tables))
	}

	var all []uint32
	for k, p := range tables {
		ids, err := p.Matches(bits[k])
		if err != nil {
			return nil, errors.Wrapf(err, "table %d", k)
		}
		all = append(all, ids...)
	}
	ids, err := stash.Matches(stashBits)
	if err != nil {
		return nil, errors.Wrap(err, "stash")
	}
	all = append(all, ids...)

	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	out := all[:0]
	for i, id := range all {
		if i == 0 || id != all[i-1] {
			out = append(out, id)
		}
	}

	return out, nil
}
