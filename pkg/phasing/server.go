package phasing

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"

	"github.com/optable/phasing/internal/hashing"
	"github.com/optable/phasing/internal/planner"
	"github.com/optable/phasing/internal/simple"
	"github.com/optable/phasing/internal/util"
)

// ServerTables are the server side inputs of the intersection circuit.
type ServerTables struct {
	*simple.Output
	NBins     uint32
	OutBitLen int
}

// stage 1: validate the input set and plan the bin capacity
// stage 2: hash every element for both table instances
// stage 3: build the simple hashing tables, rebalancing if asked to
// stage 4: lay the tables out for the circuit

// ServerHashing replicates each of the neles elements into all of its
// candidate bins, in both table instances. ClientCount (or NBins) in p
// must describe the client set.
func ServerHashing(ctx context.Context, elements []byte, neles int, p Params) (*ServerTables, error) {
	logger := logr.FromContextOrDiscard(ctx).WithValues("role", "server")
	ctx = logr.NewContext(ctx, logger)

	start := time.Now()
	timer := start
	var mem uint64

	var instances []hashing.Instance
	var states []*hashing.State
	var tables *simple.Tables
	var out *ServerTables

	stage1 := func() (err error) {
		logger.V(1).Info("Starting stage 1")
		if p, err = p.withDefaults(neles); err != nil {
			return err
		}
		if err := checkInput(elements, neles, p.BitLen); err != nil {
			return err
		}
		if p.MaxBinSize <= 0 {
			balls := uint64(p.NHashFuns) * uint64(neles)
			if p.MaxBinSize, err = planner.MaxBinSize(balls, uint64(p.NBins)); err != nil {
				return err
			}
		}

		timer, mem = printStageStats(logger, 1, timer, start, mem)
		logger.V(1).Info("Finished stage 1", "bins", p.NBins, "max bin size", p.MaxBinSize)
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
		tables, err = simple.Build(ctx, instances, simple.Config{
			NBins:          p.NBins,
			MaxBinSize:     p.MaxBinSize,
			NTasks:         p.NTasks,
			Rebalance:      p.Rebalance,
			RemapThreshold: p.RemapThreshold,
			MaxRemapRounds: p.MaxRemapRounds,
		})
		if err != nil {
			return err
		}

		timer, mem = printStageStats(logger, 3, timer, start, mem)
		logger.V(1).Info("Finished stage 3")
		return nil
	}

	stage4 := func() error {
		logger.V(1).Info("Starting stage 4")
		out = &ServerTables{Output: tables.Emit(), NBins: p.NBins, OutBitLen: states[0].OutBitLen}

		_, _ = printStageStats(logger, 4, timer, start, mem)
		logger.V(1).Info("Finished stage 4")
		return nil
	}

	for i, stage := range []func() error{stage1, stage2, stage3, stage4} {
		if err := util.Sel(ctx, stage); err != nil {
			return nil, errors.Wrapf(err, "server stage %d", i+1)
		}
	}

	logger.Info("server tables ready", "elements", neles, "bins", out.NBins, "max bin size", out.MaxBinSize, "time", time.Since(start).String())
	return out, nil
}

// checkInput validates the element buffer and the distinctness of the set.
func checkInput(elements []byte, neles, bitlen int) error {
	if neles < 0 || len(elements) < neles*util.BitsToBytes(bitlen) {
		return errors.Wrapf(ErrInvalidParams, "%d bytes cannot hold %d elements of %d bits", len(elements), neles, bitlen)
	}
	return checkDistinct(elements, neles, bitlen)
}
