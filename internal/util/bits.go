package util

import (
	"math/bits"
)

// BitsToBytes returns the number of bytes needed to hold n bits.
func BitsToBytes(n int) int {
	return (n + 7) / 8
}

// BitSetInByte returns true if bit i of b is set. Bits are
// numbered from the least significant bit of b[0] upward.
func BitSetInByte(b []byte, i int) bool {
	return b[i/8]&(1<<(uint(i)%8)) != 0
}

// SetBit sets bit i of b, using the same numbering as BitSetInByte.
func SetBit(b []byte, i int) {
	b[i/8] |= 1 << (uint(i) % 8)
}

// ReadBits returns the n bits (n <= 64) of src that start at bit
// offset off, as the low bits of a uint64.
func ReadBits(src []byte, off, n int) (v uint64) {
	for i := 0; i < n; i++ {
		if BitSetInByte(src, off+i) {
			v |= 1 << uint(i)
		}
	}

	return v
}

// WriteBits ORs the low n bits of v into dst starting at bit offset off.
func WriteBits(dst []byte, off, n int, v uint64) {
	for i := 0; i < n; i++ {
		if v&(1<<uint(i)) != 0 {
			SetBit(dst, off+i)
		}
	}
}

// MaskTail clears every bit of b at position bitlen or above.
func MaskTail(b []byte, bitlen int) {
	n := BitsToBytes(bitlen)
	for i := n; i < len(b); i++ {
		b[i] = 0
	}
	if r := bitlen % 8; r != 0 && n > 0 {
		b[n-1] &= byte(1<<uint(r)) - 1
	}
}

// CeilLog2 returns the smallest l such that 1<<l >= n.
func CeilLog2(n uint64) int {
	if n <= 1 {
		return 0
	}

	return bits.Len64(n - 1)
}

// FloorLog2 returns the largest l such that 1<<l <= n, and 0 for n == 0.
func FloorLog2(n uint64) int {
	if n == 0 {
		return 0
	}

	return bits.Len64(n) - 1
}
