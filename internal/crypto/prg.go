package crypto

import (
	"github.com/cockroachdb/errors"
	"github.com/zeebo/blake3"

	"github.com/optable/phasing/internal/util"
)

// PseudorandomGenerate fills dst with the blake3 extendable output
// seeded with seed. The same seed always yields the same stream.
func PseudorandomGenerate(dst []byte, seed []byte, h *blake3.Hasher) error {
	// reset internal state
	h.Reset()
	if _, err := h.Write(seed); err != nil {
		return errors.Wrap(err, "seeding prg")
	}

	drbg := h.Digest()
	if _, err := drbg.Read(dst); err != nil {
		return errors.Wrap(err, "reading prg stream")
	}

	return nil
}

// PseudorandomUint64s expands seed into n pseudorandom words.
func PseudorandomUint64s(n int, seed []byte) ([]uint64, error) {
	buf := make([]byte, n*8)
	if err := PseudorandomGenerate(buf, seed, blake3.New()); err != nil {
		return nil, err
	}

	return util.Uint64sFromBytes(buf), nil
}
