package simple

// Output is what the intersection circuit consumes on the server side.
type Output struct {
	// Tables holds one buffer per instance, NBins bins of MaxBinSize
	// cells of OutByteLens[k] bytes each.
	Tables      [][]byte
	OutByteLens []int
	// MaxBinSize is shared by every instance so that both buffers
	// have the same layout.
	MaxBinSize int
	// NelesInBin is the number of real cells in every bin.
	NelesInBin [][]uint32
}

// Emit lays out the tables for the circuit. Every cell carries the
// element value tagged with its hash function index; unused cells are
// filled with DummyByte.
func (ts *Tables) Emit() *Output {
	out := &Output{
		Tables:      make([][]byte, len(ts.tables)),
		OutByteLens: make([]int, len(ts.tables)),
		NelesInBin:  make([][]uint32, len(ts.tables)),
	}
	for _, t := range ts.tables {
		if t.capacity > out.MaxBinSize {
			out.MaxBinSize = t.capacity
		}
	}

	for k, t := range ts.tables {
		outb := t.outByteLen
		buf := make([]byte, int(t.nbins)*out.MaxBinSize*outb)
		fill(buf, DummyByte)

		for b := uint32(0); b < t.nbins; b++ {
			base := int(b) * out.MaxBinSize
			for n, c := range t.bin(b) {
				cellStart := (base + n) * outb
				t.entries[c.pos].MarkedValue(buf[cellStart:cellStart+outb], int(c.fn))
			}
		}

		out.Tables[k] = buf
		out.OutByteLens[k] = outb
		out.NelesInBin[k] = append([]uint32(nil), t.counts...)
	}

	return out
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
