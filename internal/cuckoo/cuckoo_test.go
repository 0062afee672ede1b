package cuckoo

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/cockroachdb/errors"

	"github.com/optable/phasing/internal/hashing"
	"github.com/optable/phasing/internal/permutations"
	"github.com/optable/phasing/internal/planner"
)

var (
	seeds  = [][]byte{[]byte("cuckoo test seed 0"), []byte("cuckoo test seed 1")}
	test_n = 2000
)

// toyEntries hashes every x with addr0(x) = x mod 4 and
// addr1(x) = (7x + 1) mod 4. The value is x shifted past the marker bits.
func toyEntries(xs []uint32) []hashing.Entry {
	entries := make([]hashing.Entry, len(xs))
	for i, x := range xs {
		entries[i] = hashing.Entry{ID: uint32(i), NAddr: 2, Value: []byte{byte(x << hashing.MarkerBits)}}
		entries[i].Addresses[0] = x % 4
		entries[i].Addresses[1] = (7*x + 1) % 4
	}
	return entries
}

func toyElements(xs []uint32) []byte {
	b := make([]byte, len(xs))
	for i, x := range xs {
		b[i] = byte(x)
	}
	return b
}

func slotIDs(t *Table) []uint32 {
	ids := make([]uint32, t.Len())
	for slot := range ids {
		ids[slot] = permutations.Empty
		if e, ok := t.Slot(uint32(slot)); ok {
			ids[slot] = e.ID
		}
	}
	return ids
}

func equal(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestToyNoStash(t *testing.T) {
	xs := []uint32{3, 4, 6, 9}
	ts, err := Build(context.Background(), []hashing.Instance{{Entries: toyEntries(xs), OutByteLen: 1}}, 4, 1, 8)
	if err != nil {
		t.Fatal(err)
	}
	if got := slotIDs(ts.Table(0)); !equal(got, []uint32{1, 3, 2, 0}) {
		t.Fatalf("slots: want: [1 3 2 0], got: %v", got)
	}
	if len(ts.Stash().IDs()) != 0 {
		t.Fatalf("stash should be empty, got %v", ts.Stash().IDs())
	}

	out, err := ts.Emit(toyElements(xs), 8)
	if err != nil {
		t.Fatal(err)
	}
	if want := []byte{4 << 2, 9 << 2, 6 << 2, 3 << 2}; !bytes.Equal(out.Tables[0], want) {
		t.Errorf("table: want: %v, got: %v", want, out.Tables[0])
	}
	if !bytes.Equal(out.Stash, []byte{DummyByte}) {
		t.Errorf("stash must stay dummy, got %v", out.Stash)
	}
	if out.StashPerm[0] != permutations.Empty {
		t.Errorf("stash permutation must stay empty, got %v", out.StashPerm)
	}
	if load := ts.Table(0).LoadFactor(); load != 1 {
		t.Errorf("LoadFactor: want: 1, got: %v", load)
	}
}

// 3, 7 and 11 share both candidate bins {3, 2}, so one of them is left
// homeless once the eviction chain runs out.
func TestToyEvictionChain(t *testing.T) {
	xs := []uint32{3, 7, 11, 4, 9}
	ts, err := Build(context.Background(), []hashing.Instance{{Entries: toyEntries(xs), OutByteLen: 1}}, 4, 1, 8)
	if err != nil {
		t.Fatal(err)
	}

	if got := ts.Stash().IDs(); !equal(got, []uint32{1}) {
		t.Fatalf("stash: want: [1], got: %v", got)
	}
	if got := slotIDs(ts.Table(0)); !equal(got, []uint32{3, 4, 0, 2}) {
		t.Fatalf("slots: want: [3 4 0 2], got: %v", got)
	}

	out, err := ts.Emit(toyElements(xs), 8)
	if err != nil {
		t.Fatal(err)
	}
	// 3 sits in bin 2 through its second hash function
	if want := []byte{4 << 2, 9 << 2, 3<<2 ^ 1, 11 << 2}; !bytes.Equal(out.Tables[0], want) {
		t.Errorf("table: want: %v, got: %v", want, out.Tables[0])
	}
	if !equal(out.Perm[0], []uint32{3, 4, 0, 2}) {
		t.Errorf("permutation: want: [3 4 0 2], got: %v", out.Perm[0])
	}
	if !bytes.Equal(out.Stash, []byte{7}) || out.StashPerm[0] != 1 {
		t.Errorf("stash: want: [7] / [1], got: %v / %v", out.Stash, out.StashPerm)
	}

	// stash records keep only the element bits
	out, err = ts.Emit(toyElements(xs), 2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out.Stash, []byte{3}) {
		t.Errorf("stash: want: [3], got: %v", out.Stash)
	}
}

func TestToyStashOverflow(t *testing.T) {
	for _, xs := range [][]uint32{{3, 7, 11, 15}, {3, 7, 11, 15, 19}} {
		_, err := Build(context.Background(), []hashing.Instance{{Entries: toyEntries(xs), OutByteLen: 1}}, 4, 1, 8)
		if !errors.Is(err, ErrStashOverflow) {
			t.Errorf("%v: expected ErrStashOverflow, got %v", xs, err)
		}
	}
}

// An element homeless in the second instance leaves the first one too.
func TestStashRemovesFromEarlierInstances(t *testing.T) {
	first := toyEntries([]uint32{0, 0, 0})
	for i := range first {
		first[i].Addresses[0] = uint32(i)
		first[i].Addresses[1] = uint32(i) + 1
	}
	second := toyEntries([]uint32{3, 7, 11})

	ts, err := Build(context.Background(), []hashing.Instance{{Entries: first, OutByteLen: 1}, {Entries: second, OutByteLen: 1}}, 4, 1, 4)
	if err != nil {
		t.Fatal(err)
	}
	if got := ts.Stash().IDs(); !equal(got, []uint32{0}) {
		t.Fatalf("stash: want: [0], got: %v", got)
	}
	e := permutations.Empty
	if got := slotIDs(ts.Table(0)); !equal(got, []uint32{e, 1, 2, e}) {
		t.Errorf("first instance: want: [- 1 2 -], got: %v", got)
	}
	if got := slotIDs(ts.Table(1)); !equal(got, []uint32{e, e, 2, 1}) {
		t.Errorf("second instance: want: [- - 2 1], got: %v", got)
	}
}

func TestRoundRobinEviction(t *testing.T) {
	// 3 hash functions, 4 elements sharing the same 3 bins, except
	// for a free bin at the end of the chain
	entries := make([]hashing.Entry, 4)
	for i := range entries {
		entries[i] = hashing.Entry{ID: uint32(i), NAddr: 3, Value: []byte{byte(i << 2)}}
		entries[i].Addresses = [hashing.MaxHashFuns]uint32{0, 1, 2}
	}
	entries[0].Addresses[2] = 3

	table := NewTable(entries, 4, 16)
	for i := range entries {
		if _, ok := table.Insert(i); !ok {
			t.Fatalf("element %d should fit", i)
		}
	}
	for i := range entries {
		slot, ok := table.Locate(i)
		if !ok {
			t.Fatalf("element %d lost", i)
		}
		if entries[i].Marker(slot) < 0 {
			t.Fatalf("element %d in slot %d outside its candidates", i, slot)
		}
	}

	if !table.Remove(2) || table.Remove(2) {
		t.Fatalf("Remove must clear the element exactly once")
	}
	if _, ok := table.Locate(2); ok {
		t.Fatalf("removed element still located")
	}
}

// Element 0 can use every slot, elements 1 to 3 hold one slot each and
// element 4 only fits in slot 0. Every two evictions element 0 moves on
// to its next candidate.
func TestRoundRobinEvictionOrder(t *testing.T) {
	var tests = []struct {
		maxIterations int
		slot          uint32
		homeless      int
	}{
		{maxIterations: 2, slot: 1, homeless: 1},
		{maxIterations: 4, slot: 2, homeless: 2},
		{maxIterations: 6, slot: 3, homeless: 3},
	}

	for _, tt := range tests {
		entries := make([]hashing.Entry, 5)
		entries[0] = hashing.Entry{ID: 0, NAddr: 4, Addresses: [hashing.MaxHashFuns]uint32{0, 1, 2, 3}}
		for i := 1; i < 4; i++ {
			entries[i] = hashing.Entry{ID: uint32(i), NAddr: 1, Addresses: [hashing.MaxHashFuns]uint32{uint32(i)}}
		}
		entries[4] = hashing.Entry{ID: 4, NAddr: 1}

		table := NewTable(entries, 4, tt.maxIterations)
		for i := 0; i < 4; i++ {
			if _, ok := table.Insert(i); !ok {
				t.Fatalf("element %d should fit", i)
			}
		}
		homeless, ok := table.Insert(4)
		if ok {
			t.Fatalf("maxIterations %d: element 4 cannot fit", tt.maxIterations)
		}
		if homeless != tt.homeless {
			t.Errorf("maxIterations %d: homeless, want: %d, got: %d", tt.maxIterations, tt.homeless, homeless)
		}
		if slot, ok := table.Locate(0); !ok || slot != tt.slot {
			t.Errorf("maxIterations %d: element 0 slot, want: %d, got: %d", tt.maxIterations, tt.slot, slot)
		}
		if slot, ok := table.Locate(4); !ok || slot != 0 {
			t.Errorf("maxIterations %d: element 4 slot, want: 0, got: %d", tt.maxIterations, slot)
		}
	}
}

func buildRandom(t testing.TB, prng *rand.Rand, n int, ntasks int) ([]byte, []*hashing.State, *Tables) {
	nbins, err := planner.Bins(2.4, n)
	if err != nil {
		t.Fatal(err)
	}
	var states []*hashing.State
	var instances []hashing.Instance
	elements := make([]byte, n*4)
	prng.Read(elements)
	for _, seed := range seeds {
		s, err := hashing.NewState(32, nbins, 2, seed)
		if err != nil {
			t.Fatal(err)
		}
		entries, err := s.Entries(elements, n, ntasks)
		if err != nil {
			t.Fatal(err)
		}
		states = append(states, s)
		instances = append(instances, hashing.Instance{Entries: entries, OutByteLen: s.OutByteLen()})
	}

	ts, err := Build(context.Background(), instances, nbins, planner.MaxStashSize(uint64(n)), 0)
	if err != nil {
		t.Fatal(err)
	}
	return elements, states, ts
}

func TestCoverageAndPermutation(t *testing.T) {
	elements, states, ts := buildRandom(t, rand.New(rand.NewSource(1)), test_n, 4)
	out, err := ts.Emit(elements, 32)
	if err != nil {
		t.Fatal(err)
	}

	stashed := make(map[uint32]bool)
	for _, id := range ts.Stash().IDs() {
		stashed[id] = true
	}
	if len(stashed) > ts.Stash().Size() {
		t.Fatalf("stash holds %d elements, capacity %d", len(stashed), ts.Stash().Size())
	}

	for k, inv := range out.Inverse {
		seen := make(map[uint32]int)
		for slot, id := range inv {
			if id == permutations.Empty {
				if out.NelesInBin[k][slot] != 0 {
					t.Fatalf("empty slot %d counted as occupied", slot)
				}
				continue
			}
			seen[id]++
			// re-hashing the element yields the slot among its candidates
			e := states[k].HashElement(id, elements[id*4:(id+1)*4])
			if e.Marker(uint32(slot)) < 0 {
				t.Fatalf("instance %d: element %d in slot %d outside its candidates", k, id, slot)
			}
		}
		for id := uint32(0); id < uint32(test_n); id++ {
			switch {
			case stashed[id] && seen[id] != 0:
				t.Fatalf("instance %d: element %d both stashed and placed", k, id)
			case !stashed[id] && seen[id] != 1:
				t.Fatalf("instance %d: element %d placed %d times", k, id, seen[id])
			}
		}
	}
}

func TestDeterministicOutput(t *testing.T) {
	elements, _, a := buildRandom(t, rand.New(rand.NewSource(2)), test_n, 1)
	_, _, b := buildRandom(t, rand.New(rand.NewSource(2)), test_n, 8)

	oa, err := a.Emit(elements, 32)
	if err != nil {
		t.Fatal(err)
	}
	ob, err := b.Emit(elements, 32)
	if err != nil {
		t.Fatal(err)
	}
	for k := range oa.Tables {
		if !bytes.Equal(oa.Tables[k], ob.Tables[k]) {
			t.Fatalf("instance %d tables differ across task counts", k)
		}
		if !equal(oa.Inverse[k], ob.Inverse[k]) {
			t.Fatalf("instance %d permutations differ across task counts", k)
		}
	}
	if !bytes.Equal(oa.Stash, ob.Stash) {
		t.Fatalf("stash differs across task counts")
	}
}

func BenchmarkBuild(b *testing.B) {
	prng := rand.New(rand.NewSource(3))
	for i := 0; i < b.N; i++ {
		buildRandom(b, prng, 1<<16, 8)
	}
}
