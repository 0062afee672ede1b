package util

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// ErrTaskScheduling marks every failure raised by a task run through
// RunTasks, including recovered panics.
var ErrTaskScheduling = errors.New("task scheduling failed")

// Range is the half-open interval [Start, End) of element indices
// handed to one task.
type Range struct {
	Start, End int
}

// Len returns the number of indices in r.
func (r Range) Len() int {
	return r.End - r.Start
}

// Partition splits [0, n) into at most ntasks contiguous ranges.
// Every range but the last holds n/ntasks indices, the last one
// also takes the remainder. Never returns an empty slice.
func Partition(n, ntasks int) []Range {
	if ntasks > n {
		ntasks = n
	}
	if ntasks < 1 {
		ntasks = 1
	}

	step := n / ntasks
	ranges := make([]Range, ntasks)
	for i := range ranges {
		ranges[i] = Range{Start: i * step, End: (i + 1) * step}
	}
	ranges[ntasks-1].End = n

	return ranges
}

// RunTasks runs f once per range, each on its own goroutine, and
// blocks until every task returned. It is the only join point between
// two phases: nothing a task writes may be read before RunTasks returns.
// The first task error is returned marked with ErrTaskScheduling.
func RunTasks(ranges []Range, f func(task int, r Range) error) error {
	var g errgroup.Group
	for i, r := range ranges {
		i, r := i, r
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = errors.Newf("task %d panicked: %s", i, fmt.Sprint(p))
				}
			}()
			return f(i, r)
		})
	}

	if err := g.Wait(); err != nil {
		return errors.Mark(errors.Wrap(err, "joining tasks"), ErrTaskScheduling)
	}

	return nil
}
