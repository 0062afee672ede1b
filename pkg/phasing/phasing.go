// Package phasing prepares the element sets of the two parties of a
// circuit based private set intersection. The server replicates its
// elements into simple hashing tables, the client places its elements
// into cuckoo tables with a stash. Both sides share the table geometry
// and the public seeds of the two table instances, so that a circuit
// comparing the tables bin by bin finds every common element.
package phasing

import (
	"encoding/hex"
	"runtime"

	"github.com/cockroachdb/errors"

	"github.com/optable/phasing/internal/cuckoo"
	"github.com/optable/phasing/internal/hashing"
	"github.com/optable/phasing/internal/permutations"
	"github.com/optable/phasing/internal/planner"
	"github.com/optable/phasing/internal/simple"
	"github.com/optable/phasing/internal/util"
)

const (
	// NTables is the number of table instances per party.
	NTables = 2
	// ServerDummy pads empty server cells.
	ServerDummy = simple.DummyByte
	// ClientDummy pads empty client cells and stash entries.
	ClientDummy = cuckoo.DummyByte
	// Empty marks a table position without an element.
	Empty = permutations.Empty

	DefaultEpsilon        = 2.4
	DefaultNHashFuns      = 2
	DefaultRemapThreshold = 2
	DefaultMaxRemapRounds = 64
)

var (
	ErrCapacityUnresolved = planner.ErrCapacityUnresolved
	ErrStashOverflow      = cuckoo.ErrStashOverflow
	ErrTaskScheduling     = util.ErrTaskScheduling
	ErrElementNotFound    = hashing.ErrElementNotFound
	ErrRebalanceExhausted = simple.ErrRebalanceExhausted
	ErrInvalidParams      = hashing.ErrInvalidParams
	ErrDuplicateElement   = errors.New("duplicate element")
)

// DefaultSeeds are the public seeds of the two table instances.
var DefaultSeeds = [NTables][]byte{
	mustDecode("5d8a3bd1c2e06f4792b1a47e0c3f68d2e91b7a05c46f2e83d1a9b0c7f5e43a16"),
	mustDecode("a3e17c4b90f25d68e1b4c7a2f03d96e85b12c7f4a06e93d2b5c8e1f70a4d3b29"),
}

func mustDecode(s string) []byte {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}

// Params configures both hashing routines. Both parties must agree on
// BitLen, the bin count, NHashFuns and Seeds. Zero values select the
// defaults.
type Params struct {
	// BitLen is the bit length of an element. Elements are stored in
	// ceil(BitLen/8) bytes; bits past BitLen are ignored.
	BitLen int
	// NBins is the number of bins of every table. When zero it is
	// ceil(Epsilon * ClientCount).
	NBins       uint32
	Epsilon     float64
	ClientCount int
	NHashFuns   int
	// NTasks is the number of parallel tasks, GOMAXPROCS by default.
	NTasks int
	// MaxBinSize overrides the planned server bin capacity.
	MaxBinSize int
	// MaxStashSize overrides the planned client stash capacity. A
	// negative value disables the stash.
	MaxStashSize int
	// MaxIterations bounds cuckoo eviction chains, by default the
	// element count.
	MaxIterations int
	// Rebalance spreads server elements over both instances so that
	// no bin holds more than RemapThreshold elements.
	Rebalance      bool
	RemapThreshold int
	MaxRemapRounds int
	// Seeds are the seeds of the table instances.
	Seeds [NTables][]byte
}

// withDefaults fills the zero fields of p for a party holding neles
// elements.
func (p Params) withDefaults(neles int) (Params, error) {
	if p.BitLen < 1 {
		return p, errors.Wrapf(ErrInvalidParams, "element bit length %d", p.BitLen)
	}
	if p.Epsilon == 0 {
		p.Epsilon = DefaultEpsilon
	}
	if p.ClientCount == 0 {
		p.ClientCount = neles
	}
	if p.NBins == 0 {
		bins, err := planner.Bins(p.Epsilon, p.ClientCount)
		if err != nil {
			return p, errors.Mark(errors.Wrap(err, "planning bins"), ErrInvalidParams)
		}
		p.NBins = bins
	}
	if p.NHashFuns == 0 {
		p.NHashFuns = DefaultNHashFuns
	}
	if p.NTasks < 1 {
		p.NTasks = runtime.GOMAXPROCS(0)
	}
	if p.RemapThreshold == 0 {
		p.RemapThreshold = DefaultRemapThreshold
	}
	if p.MaxRemapRounds == 0 {
		p.MaxRemapRounds = DefaultMaxRemapRounds
	}
	for k := range p.Seeds {
		if len(p.Seeds[k]) == 0 {
			p.Seeds[k] = DefaultSeeds[k]
		}
	}

	return p, nil
}

// instances hashes the neles elements once per table instance.
func (p Params) instances(elements []byte, neles int) ([]*hashing.State, []hashing.Instance, error) {
	states := make([]*hashing.State, NTables)
	instances := make([]hashing.Instance, NTables)
	for k := range states {
		s, err := hashing.NewState(p.BitLen, p.NBins, p.NHashFuns, p.Seeds[k])
		if err != nil {
			return nil, nil, err
		}
		entries, err := s.Entries(elements, neles, p.NTasks)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "hashing table %d", k)
		}
		states[k] = s
		instances[k] = hashing.Instance{Entries: entries, OutByteLen: s.OutByteLen()}
	}

	return states, instances, nil
}
