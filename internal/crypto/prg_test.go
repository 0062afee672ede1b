package crypto

import (
	"bytes"
	"testing"

	"github.com/zeebo/blake3"
)

var seed = []byte("phasing lookup material seed")

func TestPseudorandomGenerate(t *testing.T) {
	h := blake3.New()
	a := make([]byte, 1000)
	b := make([]byte, 1000)
	if err := PseudorandomGenerate(a, seed, h); err != nil {
		t.Fatal(err)
	}
	// reuse the hasher, the stream must restart from the seed
	if err := PseudorandomGenerate(b, seed, h); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("same seed produced different streams")
	}

	if err := PseudorandomGenerate(b, []byte("another seed"), h); err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(a, b) {
		t.Fatalf("different seeds produced the same stream")
	}

	// shorter outputs are prefixes of longer ones
	c := make([]byte, 100)
	if err := PseudorandomGenerate(c, seed, h); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(c, a[:100]) {
		t.Fatalf("prg output is not a stable stream")
	}
}

func TestPseudorandomUint64s(t *testing.T) {
	u, err := PseudorandomUint64s(1<<10, seed)
	if err != nil {
		t.Fatal(err)
	}
	if len(u) != 1<<10 {
		t.Fatalf("want: %d words, got: %d", 1<<10, len(u))
	}
	v, _ := PseudorandomUint64s(1<<10, seed)
	for i := range u {
		if u[i] != v[i] {
			t.Fatalf("word %d differs between identical expansions", i)
		}
	}
}

func BenchmarkPseudorandomUint64s(b *testing.B) {
	for i := 0; i < b.N; i++ {
		PseudorandomUint64s(2<<16, seed)
	}
}
