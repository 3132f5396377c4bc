package workload

// Content fills block buffers during a pass.
type Content interface {
	// Fill overwrites buf with the content for block i. len(buf) is the
	// clamped block length.
	Fill(buf []byte, i uint64)
}

// Sequential draws content from gen in call order and ignores the block
// index. An in-order pass over a freshly seeded generator therefore lays
// down the stream exactly.
type Sequential struct {
	Gen *Xorshift64
}

// Fill implements Content.
func (s Sequential) Fill(buf []byte, _ uint64) {
	s.Gen.Fill(buf)
}

// Checkpointed reproduces the stream slice belonging to each block from the
// generator state recorded at the block's first byte, so blocks can be
// produced in any order with the same per-byte cost as Sequential.
type Checkpointed struct {
	States []uint64
}

// Fill implements Content.
func (c Checkpointed) Fill(buf []byte, i uint64) {
	g := Xorshift64{state: c.States[i]}
	g.Fill(buf)
}

// Checkpoints runs an in-order pass over layout without producing bytes and
// records the generator state at the start of every block.
func Checkpoints(seed uint64, layout Layout) []uint64 {
	gen := NewXorshift64(seed)
	states := make([]uint64, layout.Blocks())

	for i := range states {
		states[i] = gen.State()
		gen.Skip(uint64(layout.Len(uint64(i))))
	}

	return states
}

// Expected returns the first n bytes of the stream for seed.
func Expected(seed uint64, n uint64) []byte {
	buf := make([]byte, n)
	NewXorshift64(seed).Fill(buf)

	return buf
}
