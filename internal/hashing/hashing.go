// Package hashing implements the keyed address function shared by the
// simple and cuckoo table builders.
//
// An element is split into a low part L (the address material) and a
// high part R. For every hash function i, R indexes a pseudorandom
// lookup table T_i derived from the instance seed and the address is
// (L ^ T_i[R]) mod nbins. The stored value only needs to carry R: the
// address together with R identifies L again, so address bits are
// stripped from the value. Two low bits of the value are reserved for
// the index of the hash function that produced the address.
package hashing

import (
	"github.com/cockroachdb/errors"

	"github.com/optable/phasing/internal/crypto"
	"github.com/optable/phasing/internal/util"
)

const (
	// MaxHashFuns is the largest supported number of hash functions,
	// their index has to fit in MarkerBits.
	MaxHashFuns = 4
	// MarkerBits is the number of low value bits reserved for the
	// hash function index.
	MarkerBits = 2
	// wordBits is the prefix of an element the addresses are
	// computed from. Longer elements carry the rest verbatim.
	wordBits = 32
	// lookupBits is the number of high part bits that index a
	// lookup table.
	lookupBits = 16
	lookupSize = 1 << lookupBits
	// valueSlack is one carry bit for R+1 and the marker bits.
	valueSlack = 1 + MarkerBits
)

var ErrInvalidParams = errors.New("invalid hashing parameters")

// State holds everything the address function needs for one table
// instance. It is immutable once built and safe for concurrent use.
type State struct {
	// InBitLen is the bit length of an input element.
	InBitLen int
	// AddrBitLen is the number of low element bits used as address
	// material, ceil(log2(nbins)) capped at InBitLen.
	AddrBitLen int
	// OutBitLen is the bit length of a stored value.
	OutBitLen int
	// NBins is the number of bins of the table instance.
	NBins uint32
	// NHashFuns is the number of candidate addresses per element.
	NHashFuns int

	// floorAddrBitLen is floor(log2(nbins)) capped at InBitLen, R
	// starts at this bit. It overlaps L by one bit when nbins is
	// not a power of two, which keeps the value injective.
	floorAddrBitLen int
	addrMask        uint64
	lookup          [][]uint64
}

// NewState derives the lookup material of one table instance from seed.
func NewState(inbitlen int, nbins uint32, nhashfuns int, seed []byte) (*State, error) {
	switch {
	case inbitlen < 1:
		return nil, errors.Wrapf(ErrInvalidParams, "element bit length %d", inbitlen)
	case nbins < 1:
		return nil, errors.Wrapf(ErrInvalidParams, "bin count %d", nbins)
	case nhashfuns < 1 || nhashfuns > MaxHashFuns:
		return nil, errors.Wrapf(ErrInvalidParams, "%d hash functions, want 1 to %d", nhashfuns, MaxHashFuns)
	case len(seed) == 0:
		return nil, errors.Wrap(ErrInvalidParams, "empty seed")
	}

	s := &State{
		InBitLen:        inbitlen,
		AddrBitLen:      min(util.CeilLog2(uint64(nbins)), inbitlen),
		NBins:           nbins,
		NHashFuns:       nhashfuns,
		floorAddrBitLen: min(util.FloorLog2(uint64(nbins)), inbitlen),
	}
	s.OutBitLen = inbitlen - s.floorAddrBitLen + valueSlack
	s.addrMask = 1<<uint(s.AddrBitLen) - 1

	words, err := crypto.PseudorandomUint64s(nhashfuns*lookupSize, seed)
	if err != nil {
		return nil, err
	}
	s.lookup = make([][]uint64, nhashfuns)
	for i := range s.lookup {
		s.lookup[i] = words[i*lookupSize : (i+1)*lookupSize]
	}

	return s, nil
}

// InByteLen returns the byte length of an input element.
func (s *State) InByteLen() int {
	return util.BitsToBytes(s.InBitLen)
}

// OutByteLen returns the byte length of a stored value.
func (s *State) OutByteLen() int {
	return util.BitsToBytes(s.OutBitLen)
}

// hashInto writes the candidate addresses of elem into e and its value
// into out, which must be OutByteLen zeroed bytes. The marker bits of
// out are left at zero.
func (s *State) hashInto(elem []byte, e *Entry, out []byte) {
	wbits := min(s.InBitLen, wordBits)
	word := util.ReadBits(elem, 0, wbits)
	low := word & s.addrMask
	high := word >> uint(s.floorAddrBitLen)

	e.NAddr = s.NHashFuns
	for i := 0; i < s.NHashFuns; i++ {
		t := s.lookup[i][high&(lookupSize-1)]
		e.Addresses[i] = uint32((low ^ (t & s.addrMask)) % uint64(s.NBins))
	}

	// R+1 keeps a real value from ever being all zero
	vbits := wbits - s.floorAddrBitLen + valueSlack
	util.WriteBits(out, 0, vbits, (high+1)<<MarkerBits)
	for off := wordBits; off < s.InBitLen; off += 64 {
		n := min(64, s.InBitLen-off)
		util.WriteBits(out, vbits+off-wordBits, n, util.ReadBits(elem, off, n))
	}
	util.MaskTail(out, s.OutBitLen)
	e.Value = out
}

// HashElement returns the entry of a single element. elem must hold at
// least InByteLen bytes, bits past InBitLen are ignored.
func (s *State) HashElement(id uint32, elem []byte) Entry {
	e := Entry{ID: id}
	s.hashInto(elem, &e, make([]byte, s.OutByteLen()))
	return e
}

// Entries hashes the first neles records of elements, each InByteLen
// bytes wide, using ntasks parallel tasks. The result does not depend
// on ntasks.
func (s *State) Entries(elements []byte, neles, ntasks int) ([]Entry, error) {
	inb, outb := s.InByteLen(), s.OutByteLen()
	if neles < 0 || len(elements) < neles*inb {
		return nil, errors.Wrapf(ErrInvalidParams, "%d bytes cannot hold %d elements of %d bytes", len(elements), neles, inb)
	}

	entries := make([]Entry, neles)
	values := make([]byte, neles*outb)
	err := util.RunTasks(util.Partition(neles, ntasks), func(_ int, r util.Range) error {
		for i := r.Start; i < r.End; i++ {
			entries[i].ID = uint32(i)
			s.hashInto(elements[i*inb:(i+1)*inb], &entries[i], values[i*outb:(i+1)*outb])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}
