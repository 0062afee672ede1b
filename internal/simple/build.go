package simple

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"

	"github.com/optable/phasing/internal/hashing"
	"github.com/optable/phasing/internal/util"
)

var ErrRebalanceExhausted = errors.New("rebalancing exhausted its rounds")

// Config parameterizes a simple hashing build.
type Config struct {
	NBins uint32
	// MaxBinSize is the initial bin capacity. Bins double when an
	// element does not fit.
	MaxBinSize int
	NTasks     int
	// Rebalance spreads the elements over two instances so that no
	// bin holds more than RemapThreshold of them, in at most
	// MaxRemapRounds rounds.
	Rebalance      bool
	RemapThreshold int
	MaxRemapRounds int
}

// Tables are the simple hashing table instances of one party.
type Tables struct {
	tables []*Table
}

// taskBins are the private bins of one generation task: bin b holds
// cells[start[b]:start[b+1]], in element order.
type taskBins struct {
	start []uint32
	cells []cell
}

func (tb *taskBins) bin(b uint32) []cell {
	return tb.cells[tb.start[b]:tb.start[b+1]]
}

// Build fills one table per instance. Without rebalancing every
// instance holds every element. With rebalancing the first instance
// starts with every element, the second one empty, and elements move
// between them until both are at or below the remapping threshold.
func Build(ctx context.Context, instances []hashing.Instance, cfg Config) (*Tables, error) {
	logger := logr.FromContextOrDiscard(ctx)
	ts := &Tables{tables: make([]*Table, len(instances))}

	if cfg.Rebalance && len(instances) != 2 {
		return nil, errors.Wrapf(hashing.ErrInvalidParams, "rebalancing needs 2 instances, got %d", len(instances))
	}

	for k, inst := range instances {
		start := time.Now()
		tl := logger.WithValues("instance", k)
		if cfg.Rebalance && k == 1 {
			ts.tables[k] = newTable(inst, cfg.NBins, cfg.MaxBinSize, tl)
			continue
		}

		t, err := build(inst, cfg.NBins, cfg.MaxBinSize, cfg.NTasks, tl)
		if err != nil {
			return nil, errors.Wrapf(err, "building table %d", k)
		}
		ts.tables[k] = t
		tl.V(1).Info("simple table built", "max load", t.MaxLoad(), "capacity", t.Capacity(), "time", time.Since(start).String())
	}

	if cfg.Rebalance {
		if err := ts.rebalance(logger, cfg.RemapThreshold, cfg.MaxRemapRounds); err != nil {
			return nil, err
		}
	}

	return ts, nil
}

// build hashes entries into private per task bins, joins, then merges
// the private bins bin-wise: task order first, element order second.
func build(inst hashing.Instance, nbins uint32, capacity, ntasks int, logger logr.Logger) (*Table, error) {
	ranges := util.Partition(len(inst.Entries), ntasks)
	private := make([]taskBins, len(ranges))

	err := util.RunTasks(ranges, func(task int, r util.Range) error {
		private[task] = generate(inst.Entries, r, nbins)
		return nil
	})
	if err != nil {
		return nil, err
	}

	t := newTable(inst, nbins, capacity, logger)
	loads := make([]uint32, nbins)
	var maxLoad int
	for b := range loads {
		for i := range private {
			loads[b] += uint32(len(private[i].bin(uint32(b))))
		}
		if int(loads[b]) > maxLoad {
			maxLoad = int(loads[b])
		}
	}
	// the table is still empty, growing only resizes the arena
	for maxLoad > t.capacity {
		t.grow()
	}
	t.counts = loads

	err = util.RunTasks(util.Partition(int(nbins), ntasks), func(_ int, r util.Range) error {
		for b := r.Start; b < r.End; b++ {
			dst := t.cells[b*t.capacity:]
			n := 0
			for i := range private {
				n += copy(dst[n:], private[i].bin(uint32(b)))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return t, nil
}

// generate places the elements of r into private bins with a counting
// pass followed by a fill pass.
func generate(entries []hashing.Entry, r util.Range, nbins uint32) taskBins {
	start := make([]uint32, nbins+1)
	for i := r.Start; i < r.End; i++ {
		e := &entries[i]
		for j, b := range e.Candidates() {
			if e.Distinct(j) {
				start[b+1]++
			}
		}
	}
	for b := uint32(1); b <= nbins; b++ {
		start[b] += start[b-1]
	}

	cells := make([]cell, start[nbins])
	next := make([]uint32, nbins)
	copy(next, start[:nbins])
	for i := r.Start; i < r.End; i++ {
		e := &entries[i]
		for j, b := range e.Candidates() {
			if e.Distinct(j) {
				cells[next[b]] = cell{pos: uint32(i), fn: uint8(j)}
				next[b]++
			}
		}
	}

	return taskBins{start: start, cells: cells}
}

// rebalance moves elements out of overloaded bins, alternating the
// direction every round, until both instances are at or below the
// threshold.
func (ts *Tables) rebalance(logger logr.Logger, threshold, maxRounds int) error {
	from, to := 0, 1
	for round := 0; ; round++ {
		max0, max1 := ts.tables[0].MaxLoad(), ts.tables[1].MaxLoad()
		if max0 <= threshold && max1 <= threshold {
			logger.V(1).Info("rebalanced", "rounds", round, "elements 0", ts.tables[0].Size(), "elements 1", ts.tables[1].Size())
			return nil
		}
		if round == maxRounds {
			return errors.Wrapf(ErrRebalanceExhausted, "max loads %d and %d above %d after %d rounds", max0, max1, threshold, maxRounds)
		}

		logger.V(1).Info("remapping round", "round", round, "from", from, "max load 0", max0, "max load 1", max1)
		if err := ts.remap(from, to, threshold); err != nil {
			return err
		}
		from, to = to, from
	}
}

// remap moves the first elements of every bin of instance src loaded
// above threshold to instance dst, until the bin is at threshold.
func (ts *Tables) remap(src, dst, threshold int) error {
	s, d := ts.tables[src], ts.tables[dst]
	for b := uint32(0); b < s.nbins; b++ {
		for s.Load(b) > threshold {
			pos := int(s.bin(b)[0].pos)
			if err := s.remove(pos); err != nil {
				return errors.Wrapf(err, "remapping from table %d", src)
			}
			d.insert(pos)
		}
	}
	return nil
}

// Table returns instance k.
func (ts *Tables) Table(k int) *Table {
	return ts.tables[k]
}
