package phasing

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"

	"github.com/optable/phasing/internal/cuckoo"
	"github.com/optable/phasing/internal/hashing"
	"github.com/optable/phasing/internal/permutations"
	"github.com/optable/phasing/internal/planner"
	"github.com/optable/phasing/internal/util"
)

// ClientTables are the client side inputs of the intersection circuit,
// along with what the client needs to read the circuit result.
type ClientTables struct {
	*cuckoo.Output
	NBins        uint32
	OutBitLen    int
	MaxStashSize int
}

// stage 1: validate the input set and plan the stash capacity
// stage 2: hash every element for both table instances, in parallel
// stage 3: insert the elements, sequentially, into both cuckoo tables
// stage 4: lay the tables and the stash out for the circuit

// ClientHashing places each of the neles elements into exactly one bin
// of each table instance, or into the stash.
func ClientHashing(ctx context.Context, elements []byte, neles int, p Params) (*ClientTables, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("role", "client")
	ctx = logr.NewContext(ctx, logger)

	start := time.Now()
	timer := start
	var mem uint64

	var instances []hashing.Instance
	var states []*hashing.State
	var tables *cuckoo.Tables
	var out *ClientTables

	stage1 := func() (err error) {
		logger.V(1).Info("Starting stage 1")
		if p, err = p.withDefaults(neles); err != nil {
			return err
		}
		if err := checkInput(elements, neles, p.BitLen); err != nil {
			return err
		}
		switch {
		case p.MaxStashSize < 0:
			p.MaxStashSize = 0
		case p.MaxStashSize == 0:
			p.MaxStashSize = planner.MaxStashSize(uint64(neles))
		}

		timer, mem = printStageStats(logger, 1, timer, start, mem)
		logger.V(1).Info("Finished stage 1", "bins", p.NBins, "max stash size", p.MaxStashSize)
		return nil
	}

	stage2 := func() (err error) {
		logger.V(1).Info("Starting stage 2")
		if states, instances, err = p.instances(elements, neles); err != nil {
			return err
		}

		timer, mem = printStageStats(logger, 2, timer, start, mem)
		logger.V(1).Info("Finished stage 2")
		return nil
	}

	stage3 := func() (err error) {
		logger.V(1).Info("Starting stage 3")
		if tables, err = cuckoo.Build(ctx, instances, p.NBins, p.MaxStashSize, p.MaxIterations); err != nil {
			return err
		}

		timer, mem = printStageStats(logger, 3, timer, start, mem)
		logger.V(1).Info("Finished stage 3", "stashed", len(tables.Stash().IDs()))
		return nil
	}

	stage4 := func() error {
		logger.V(1).Info("Starting stage 4")
		o, err := tables.Emit(elements, p.BitLen)
		if err != nil {
			return err
		}
		out = &ClientTables{Output: o, NBins: p.NBins, OutBitLen: states[0].OutBitLen, MaxStashSize: p.MaxStashSize}

		_, _ = printStageStats(logger, 4, timer, start, mem)
		logger.V(1).Info("Finished stage 4")
		return nil
	}

	for i, stage := range []func() error{stage1, stage2, stage3, stage4} {
		if err := util.Sel(ctx, stage); err != nil {
			return nil, errors.Wrapf(err, "client stage %d", i+1)
		}
	}

	logger.Info("client tables ready", "elements", neles, "bins", out.NBins, "stashed", out.StashPerm.Occupied(), "time", time.Since(start).String())
	return out, nil
}

// Recover returns the sorted indices of the client elements the
// circuit found in the server set. bits holds one packed result vector
// per table instance, one bit per bin, and stashBits one bit per stash
// entry, least significant bit first.
func (c *ClientTables) Recover(bits [][]byte, stashBits []byte) ([]uint32, error) {
	return permutations.Recover(c.Inverse, bits, c.StashPerm, stashBits)
}
