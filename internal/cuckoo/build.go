package cuckoo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-logr/logr"

	"github.com/optable/phasing/internal/hashing"
)

// Tables are the cuckoo table instances of one party and their stash.
type Tables struct {
	instances []hashing.Instance
	tables    []*Table
	stash     *Stash
}

// Build inserts every element into each instance in turn, in ascending
// position order. Insertion is sequential: the outcome of an eviction
// chain depends on everything inserted before it. An element left
// homeless in any instance is removed from all instances and stashed,
// and later instances skip it. maxIterations <= 0 bounds eviction
// chains by the element count.
func Build(ctx context.Context, instances []hashing.Instance, nbins uint32, maxStashSize, maxIterations int) (*Tables, error) {
	logger := logr.FromContextOrDiscard(ctx)
	ts := &Tables{
		instances: instances,
		tables:    make([]*Table, len(instances)),
		stash:     NewStash(maxStashSize),
	}

	for k, inst := range instances {
		start := time.Now()
		iterations := maxIterations
		if iterations <= 0 {
			iterations = len(inst.Entries)
		}
		t := NewTable(inst.Entries, nbins, iterations)
		ts.tables[k] = t

		for i := range inst.Entries {
			if ts.stash.Contains(inst.Entries[i].ID) {
				continue
			}
			homeless, ok := t.Insert(i)
			if ok {
				continue
			}
			if err := ts.toStash(k, homeless); err != nil {
				return nil, err
			}
			logger.V(1).Info("element moved to stash", "instance", k, "element", inst.Entries[homeless].ID)
		}
		logger.V(1).Info("cuckoo table built", "instance", k, "load", t.LoadFactor(), "time", time.Since(start).String())
	}

	return ts, nil
}

// toStash moves the homeless element at position i, found while
// building instance k, to the stash. The element was inserted in every
// earlier instance and has to leave them.
func (ts *Tables) toStash(k, i int) error {
	id := ts.instances[k].Entries[i].ID
	if err := ts.stash.Add(id); err != nil {
		return errors.Wrapf(err, "placing element %d of table %d", id, k)
	}

	for j := 0; j < k; j++ {
		if !ts.tables[j].Remove(i) {
			return hashing.NotFound("stashed element %d missing from table %d", id, j)
		}
	}
	if _, ok := ts.tables[k].Locate(i); ok {
		return errors.AssertionFailedf("homeless element %d still occupies table %d", id, k)
	}

	return nil
}

// Table returns instance k.
func (ts *Tables) Table(k int) *Table {
	return ts.tables[k]
}

// Stash returns the shared stash.
func (ts *Tables) Stash() *Stash {
	return ts.stash
}
