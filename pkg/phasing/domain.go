package phasing

import (
	"runtime"

	"github.com/optable/phasing/internal/hash"
	"github.com/optable/phasing/internal/util"
)

// Hash types for DomainHash.
const (
	Murmur3 = hash.Murmur3
	Metro   = hash.Metro
	Highway = hash.Highway
	Blake3  = hash.Blake3
	SIP     = hash.SIP
	Blake2b = hash.Blake2b
)

// DomainHash maps identifiers of any length to bitlen bit elements,
// laid out back to back as the hashing routines expect them. Both
// parties must use the same hash type and salt. Records wider than 64
// bits always come from keyed blake3. ntasks < 1 uses GOMAXPROCS tasks.
func DomainHash(ids [][]byte, t int, salt []byte, bitlen, ntasks int) ([]byte, error) {
	if ntasks < 1 {
		ntasks = runtime.GOMAXPROCS(0)
	}
	d, err := hash.NewDomain(t, salt, bitlen)
	if err != nil {
		return nil, err
	}

	n := d.ByteLen()
	elements := make([]byte, len(ids)*n)
	err = util.RunTasks(util.Partition(len(ids), ntasks), func(_ int, r util.Range) error {
		for i := r.Start; i < r.End; i++ {
			d.Sum(elements[i*n:(i+1)*n], ids[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return elements, nil
}
