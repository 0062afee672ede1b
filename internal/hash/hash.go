// Package hash turns identifiers of any length into the fixed width
// records the table builders work on.
package hash

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/dchest/siphash"
	"github.com/minio/highwayhash"
	"github.com/shivakar/metrohash"
	"github.com/twmb/murmur3"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"

	"github.com/optable/phasing/internal/util"
)

const (
	SaltLength = 32

	Murmur3 = iota
	Metro
	Highway
	Blake3
	SIP
	Blake2b
)

var (
	ErrUnknownHash        = errors.New("cannot create a hasher of unknown hash type")
	ErrSaltLengthMismatch = errors.Newf("provided salt is not %d length", SaltLength)
)

// Hasher implements different non cryptographic hashing functions
type Hasher interface {
	Hash64([]byte) uint64
}

// New creates a hasher of type t
func New(t int, salt []byte) (Hasher, error) {
	if len(salt) != SaltLength {
		return nil, ErrSaltLengthMismatch
	}

	switch t {
	case Murmur3:
		return murmur64{salt: salt}, nil
	case Metro:
		return metro{salt: salt}, nil
	case Highway:
		return highway{key: salt}, nil
	case Blake3:
		return newXOF(salt)
	case SIP:
		return newSIP(salt), nil
	case Blake2b:
		return newBlake2b(salt)
	default:
		return nil, ErrUnknownHash
	}
}

// murmur64 prepends the salt to the bytes being summed.
type murmur64 struct {
	salt []byte
}

func (t murmur64) Hash64(p []byte) uint64 {
	// the full slice expression makes append copy the salt
	return murmur3.Sum64(append(t.salt[:len(t.salt):len(t.salt)], p...))
}

// metro prepends the salt to the bytes being summed.
type metro struct {
	salt []byte
}

func (m metro) Hash64(p []byte) uint64 {
	h := metrohash.NewMetroHash64()
	h.Write(m.salt)
	h.Write(p)
	return h.Sum64()
}

// highway uses the salt as its 256 bit key.
type highway struct {
	key []byte
}

func (h highway) Hash64(p []byte) uint64 {
	return highwayhash.Sum64(p, h.key)
}

// sip keys siphash with the first 16 salt bytes.
type sip struct {
	key0, key1 uint64
}

func newSIP(salt []byte) sip {
	return sip{key0: binary.BigEndian.Uint64(salt[:8]), key1: binary.BigEndian.Uint64(salt[8:16])}
}

func (s sip) Hash64(p []byte) uint64 {
	return siphash.Hash(s.key0, s.key1, p)
}

// b2 is blake2b keyed with the salt, truncated to 64 bits.
type b2 struct {
	key []byte
}

func newBlake2b(salt []byte) (b2, error) {
	if _, err := blake2b.New(8, salt); err != nil {
		return b2{}, errors.Wrap(err, "keying blake2b")
	}
	return b2{key: salt}, nil
}

func (b b2) Hash64(p []byte) uint64 {
	h, _ := blake2b.New(8, b.key)
	h.Write(p)
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// xof is blake3 keyed with the salt. Its output can be read to any
// length.
type xof struct {
	key []byte
}

func newXOF(salt []byte) (xof, error) {
	if _, err := blake3.NewKeyed(salt); err != nil {
		return xof{}, errors.Wrap(err, "keying blake3")
	}
	return xof{key: salt}, nil
}

func (x xof) sum(dst, p []byte) {
	// a fresh hasher per call keeps xof safe for concurrent use,
	// the key was validated by newXOF
	h, _ := blake3.NewKeyed(x.key)
	h.Write(p)
	h.Digest().Read(dst)
}

func (x xof) Hash64(p []byte) uint64 {
	var b [8]byte
	x.sum(b[:], p)
	return binary.LittleEndian.Uint64(b[:])
}

// Domain hashes identifiers into records of a fixed bit length. Up to
// 64 bits the selected Hasher is used; wider records are read from the
// keyed blake3 output.
type Domain struct {
	bitlen int
	h      Hasher
	wide   xof
}

// NewDomain returns a Domain of hasher type t producing bitlen bit records.
func NewDomain(t int, salt []byte, bitlen int) (*Domain, error) {
	if bitlen < 1 {
		return nil, errors.Newf("record bit length %d", bitlen)
	}
	h, err := New(t, salt)
	if err != nil {
		return nil, err
	}
	wide, err := newXOF(salt)
	if err != nil {
		return nil, err
	}

	return &Domain{bitlen: bitlen, h: h, wide: wide}, nil
}

// ByteLen returns the byte length of a record.
func (d *Domain) ByteLen() int {
	return util.BitsToBytes(d.bitlen)
}

// Sum writes the record of id into dst, which must hold ByteLen bytes.
// Bits past the record bit length are cleared.
func (d *Domain) Sum(dst, id []byte) {
	if d.bitlen > 64 {
		d.wide.sum(dst[:d.ByteLen()], id)
	} else {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], d.h.Hash64(id))
		copy(dst, b[:d.ByteLen()])
	}
	util.MaskTail(dst[:d.ByteLen()], d.bitlen)
}
