package phasing

import (
	bloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/cockroachdb/errors"

	"github.com/optable/phasing/internal/util"
)

// FalsePositive is the false positive rate of the bloom filter that
// screens input sets for duplicates.
const FalsePositive = 1e-6

// checkDistinct returns ErrDuplicateElement if two of the neles
// elements agree on their first bitlen bits. A bloom filter screens
// the set and only its positives are compared exactly.
func checkDistinct(elements []byte, neles, bitlen int) error {
	bytelen := util.BitsToBytes(bitlen)
	bf := bloom.NewWithEstimates(uint(max(neles, 1)), FalsePositive)
	scratch := make([]byte, bytelen)
	element := func(i int) []byte {
		copy(scratch, elements[i*bytelen:(i+1)*bytelen])
		util.MaskTail(scratch, bitlen)
		return scratch
	}

	var suspects = make(map[string]int)
	for i := 0; i < neles; i++ {
		if bf.TestAndAdd(element(i)) {
			suspects[string(element(i))] = -1
		}
	}
	if len(suspects) == 0 {
		return nil
	}

	for i := 0; i < neles; i++ {
		e := string(element(i))
		first, ok := suspects[e]
		switch {
		case !ok:
		case first < 0:
			suspects[e] = i
		default:
			return errors.Wrapf(ErrDuplicateElement, "elements %d and %d", first, i)
		}
	}

	return nil
}
