// Package workload generates the deterministic content and block access
// orders that drive filesystem benchmarks. Content comes from a seeded
// xorshift64 stream so every run, in any implementation, writes the same
// bytes.
package workload

// DefaultSeed is the seed used when none is configured.
const DefaultSeed uint64 = 42

// Xorshift64 is a forward-only xorshift64 generator. A zero value (or a zero
// seed) yields an all-zero stream.
type Xorshift64 struct {
	state uint64
}

// NewXorshift64 creates a generator positioned at the start of the stream
// for seed.
func NewXorshift64(seed uint64) *Xorshift64 {
	return &Xorshift64{state: seed}
}

// Next advances the generator and returns the new state.
func (g *Xorshift64) Next() uint64 {
	x := g.state
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.state = x

	return x
}

// Fill overwrites buf with one draw per byte, keeping only the low 8 bits
// of each word.
func (g *Xorshift64) Fill(buf []byte) {
	for i := range buf {
		buf[i] = byte(g.Next())
	}
}

// Skip advances the generator by n draws.
func (g *Xorshift64) Skip(n uint64) {
	for ; n > 0; n-- {
		g.Next()
	}
}

// State returns the current internal state. A generator restored with
// Resume(State()) continues with the same draws.
func (g *Xorshift64) State() uint64 {
	return g.state
}

// Resume creates a generator that continues from a state previously
// returned by State.
func Resume(state uint64) *Xorshift64 {
	return &Xorshift64{state: state}
}
