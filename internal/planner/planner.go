// Package planner sizes hash tables so that bin and stash overflow
// happen with probability at most 2^-Security.
package planner

import (
	"math"

	"github.com/cockroachdb/errors"
)

const (
	// Security is the statistical security parameter: overflow
	// probabilities are bounded by 2^-Security.
	Security = 40
	// sparseLoad is the average load per bin under which the tail
	// bound is too loose and fixed thresholds are used instead.
	sparseLoad = 3
	// sparseMinLogBalls is the smallest log2(balls) with a fixed
	// threshold. Fewer balls always go through the search.
	sparseMinLogBalls = 8
)

var (
	ErrCapacityUnresolved = errors.New("capacity unresolved")
	ErrBinCount           = errors.New("bin count out of range")
)

// maxSearchIterations caps the number of capacities tried by the
// tail bound search.
const maxSearchIterations = 1 << 16

// sparseMaxBinSize maps log2(balls) brackets to a bin capacity for
// average loads under sparseLoad, largest bracket first.
var sparseMaxBinSize = []struct {
	logBalls int
	size     int
}{
	{24, 21},
	{20, 20},
	{16, 19},
	{12, 18},
	{8, 15},
}

// maxStashSize maps log2(elements) brackets to a stash capacity for
// cuckoo tables with 2 hash functions, largest bracket first.
var maxStashSize = []struct {
	logElements int
	size        int
}{
	{24, 2},
	{20, 3},
	{16, 5},
	{13, 6},
	{12, 7},
	{11, 9},
	{10, 11},
}

// defaultStashSize covers every table with fewer than 2^10 elements.
const defaultStashSize = 12

// Bins returns ceil(epsilon * n), and at least 1. It fails with
// ErrBinCount when the result does not fit a uint32 or epsilon is not
// positive.
func Bins(epsilon float64, n int) (uint32, error) {
	bins := math.Ceil(epsilon * float64(n))
	switch {
	case !(epsilon > 0):
		return 0, errors.Wrapf(ErrBinCount, "epsilon %v", epsilon)
	case bins > math.MaxUint32:
		return 0, errors.Wrapf(ErrBinCount, "%v bins for %d elements", bins, n)
	case bins < 1:
		return 1, nil
	}

	return uint32(bins), nil
}

// MaxBinSize returns the smallest per bin capacity such that throwing
// balls into bins overflows any bin with probability at most
// 2^-Security.
func MaxBinSize(balls, bins uint64) (int, error) {
	switch {
	case bins == 0:
		return 0, errors.Wrap(ErrCapacityUnresolved, "no bins")
	case balls == 0:
		return 1, nil
	case bins == 1:
		return int(balls), nil
	}

	if ceilDiv(balls, bins) < sparseLoad && balls >= 1<<sparseMinLogBalls {
		for _, t := range sparseMaxBinSize {
			if balls >= 1<<uint(t.logBalls) {
				return t.size, nil
			}
		}
	}

	return searchMaxBinSize(balls, bins, maxSearchIterations)
}

// searchMaxBinSize tries at most iterations capacities upward from the
// average load.
func searchMaxBinSize(balls, bins uint64, iterations int) (int, error) {
	target := math.Ldexp(1, -Security)
	k := ceilDiv(balls, bins)
	for i := 0; i < iterations && k <= balls; i++ {
		if OverflowProbability(balls, bins, k) <= target {
			return int(k), nil
		}
		k++
	}

	return 0, errors.Wrapf(ErrCapacityUnresolved, "no bin capacity for %d balls in %d bins after %d candidates", balls, bins, iterations)
}

// OverflowProbability returns the probability that some bin receives
// more than capacity of balls thrown uniformly into bins, computed as
// 1 - (1 - P[X > capacity])^bins with X ~ Binomial(balls, 1/bins).
// capacity should be at least the average load, where the binomial
// terms decrease.
func OverflowProbability(balls, bins, capacity uint64) float64 {
	if capacity >= balls {
		return 0
	}

	p := 1 / float64(bins)
	lp, lq := math.Log(p), math.Log1p(-p)
	lgn, _ := math.Lgamma(float64(balls) + 1)
	logPMF := func(i uint64) float64 {
		a, _ := math.Lgamma(float64(i) + 1)
		b, _ := math.Lgamma(float64(balls-i) + 1)
		return lgn - a - b + float64(i)*lp + float64(balls-i)*lq
	}

	// summing the upper tail directly keeps its precision far below
	// the float64 epsilon of the cumulative sum
	var tail float64
	for i := capacity + 1; i <= balls; i++ {
		term := math.Exp(logPMF(i))
		tail += term
		if term == 0 || term < tail*1e-18 {
			break
		}
	}
	if tail >= 1 {
		return 1
	}

	return -math.Expm1(float64(bins) * math.Log1p(-tail))
}

// MaxStashSize returns the stash capacity of a cuckoo table holding
// n elements.
func MaxStashSize(n uint64) int {
	for _, t := range maxStashSize {
		if n >= 1<<uint(t.logElements) {
			return t.size
		}
	}

	return defaultStashSize
}

func ceilDiv(a, b uint64) uint64 {
	return (a + b - 1) / b
}
