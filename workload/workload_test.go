package workload

import (
	"bytes"
	"math"
	"testing"
)

func TestXorshift64Golden(t *testing.T) {
	want := []uint64{
		0x0000000a95514aaa,
		0xa00aaafdf80202bf,
		0x8b13399cd1d1497a,
		0x283b88fe5fdff568,
	}

	gen := NewXorshift64(DefaultSeed)
	for i, w := range want {
		if got := gen.Next(); got != w {
			t.Errorf("draw %d = %#016x, want %#016x", i, got, w)
		}
	}
}

func TestFillUsesLowByte(t *testing.T) {
	buf := make([]byte, 4)
	NewXorshift64(DefaultSeed).Fill(buf)

	want := []byte{0xaa, 0xbf, 0x7a, 0x68}
	if !bytes.Equal(buf, want) {
		t.Errorf("Fill = %x, want %x", buf, want)
	}
}

func TestGeneratorDeterministic(t *testing.T) {
	a := Expected(7, 4096)
	b := Expected(7, 4096)

	if !bytes.Equal(a, b) {
		t.Error("stream is not deterministic for same seed")
	}

	c := Expected(8, 4096)
	if bytes.Equal(a, c) {
		t.Error("different seeds produced the same stream")
	}
}

func TestResumeContinuesStream(t *testing.T) {
	gen := NewXorshift64(DefaultSeed)
	gen.Skip(10)

	resumed := Resume(gen.State())
	for i := 0; i < 5; i++ {
		if got, want := resumed.Next(), gen.Next(); got != want {
			t.Fatalf("draw %d: resumed %#x, want %#x", i, got, want)
		}
	}
}

func TestLayoutBlocks(t *testing.T) {
	tests := []struct {
		name      string
		total     uint64
		block     int
		wantCount uint64
		wantLast  int
	}{
		{name: "exact", total: 1024, block: 256, wantCount: 4, wantLast: 256},
		{name: "short tail", total: 1000, block: 256, wantCount: 4, wantLast: 232},
		{name: "block larger than total", total: 100, block: 256, wantCount: 1, wantLast: 100},
		{name: "single byte blocks", total: 3, block: 1, wantCount: 3, wantLast: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLayout(tt.total, tt.block)

			if got := l.Blocks(); got != tt.wantCount {
				t.Fatalf("blocks = %d, want %d", got, tt.wantCount)
			}

			if got := l.Len(l.Blocks() - 1); got != tt.wantLast {
				t.Errorf("last block len = %d, want %d", got, tt.wantLast)
			}

			var sum uint64
			for i := uint64(0); i < l.Blocks(); i++ {
				sum += uint64(l.Len(i))
			}

			if sum != tt.total {
				t.Errorf("block lengths sum to %d, want %d", sum, tt.total)
			}
		})
	}
}

func TestLayoutHugeTotal(t *testing.T) {
	l := NewLayout(math.MaxUint64, 4096)

	wantCount := uint64(math.MaxUint64/4096 + 1)
	if got := l.Blocks(); got != wantCount {
		t.Fatalf("blocks = %d, want %d", got, wantCount)
	}

	if got := l.Len(l.Blocks() - 1); got != 4095 {
		t.Errorf("last block len = %d, want 4095", got)
	}

	if got := l.Len(0); got != 4096 {
		t.Errorf("first block len = %d, want 4096", got)
	}
}

func TestLayoutEmpty(t *testing.T) {
	l := NewLayout(0, 512)
	if l.Blocks() != 0 {
		t.Errorf("blocks = %d, want 0", l.Blocks())
	}

	s := NewOffsets(l, Random, NewXorshift64(DefaultSeed))
	if _, ok := s.Next(); ok {
		t.Error("expected no offsets for empty layout")
	}
}

func collect(l Layout, o Order, gen *Xorshift64) []uint64 {
	var out []uint64

	s := NewOffsets(l, o, gen)
	for {
		i, ok := s.Next()
		if !ok {
			return out
		}

		out = append(out, i)
	}
}

func TestOffsetsInOrderAndReversed(t *testing.T) {
	l := NewLayout(1000, 256)

	fwd := collect(l, InOrder, nil)
	rev := collect(l, Reversed, nil)

	wantFwd := []uint64{0, 1, 2, 3}
	wantRev := []uint64{3, 2, 1, 0}

	for i := range wantFwd {
		if fwd[i] != wantFwd[i] {
			t.Errorf("inorder[%d] = %d, want %d", i, fwd[i], wantFwd[i])
		}
		if rev[i] != wantRev[i] {
			t.Errorf("reversed[%d] = %d, want %d", i, rev[i], wantRev[i])
		}
	}
}

func TestOffsetsRandomInRange(t *testing.T) {
	l := NewLayout(10000, 512)

	got := collect(l, Random, NewXorshift64(DefaultSeed))
	if uint64(len(got)) != l.Blocks() {
		t.Fatalf("random pass made %d draws, want %d", len(got), l.Blocks())
	}

	for _, i := range got {
		if l.Offset(i) >= l.Total {
			t.Errorf("offset %d out of range", l.Offset(i))
		}
		if l.Offset(i)%l.Block != 0 {
			t.Errorf("offset %d not block aligned", l.Offset(i))
		}
	}
}

func TestOffsetsRandomSharesStream(t *testing.T) {
	l := NewLayout(4096, 1024)
	gen := NewXorshift64(DefaultSeed)
	s := NewOffsets(l, Random, gen)

	ref := NewXorshift64(DefaultSeed)
	buf := make([]byte, 1024)

	for {
		i, ok := s.Next()
		if !ok {
			break
		}

		if want := ref.Next() % 4; i != want {
			t.Fatalf("index = %d, want %d", i, want)
		}

		// Content draws between index draws advance the shared stream.
		gen.Fill(buf[:l.Len(i)])
		ref.Skip(uint64(l.Len(i)))
	}
}

func TestCheckpointedMatchesStream(t *testing.T) {
	l := NewLayout(1000, 96)
	want := Expected(DefaultSeed, l.Total)

	c := Checkpointed{States: Checkpoints(DefaultSeed, l)}
	got := make([]byte, l.Total)

	for i := l.Blocks(); i > 0; i-- {
		b := i - 1
		off := l.Offset(b)
		c.Fill(got[off:off+uint64(l.Len(b))], b)
	}

	if !bytes.Equal(got, want) {
		t.Error("reversed checkpointed fill does not reproduce the stream")
	}
}

func TestParseOrder(t *testing.T) {
	for _, o := range Orders() {
		got, err := ParseOrder(o.String())
		if err != nil {
			t.Fatalf("ParseOrder(%q): %v", o, err)
		}
		if got != o {
			t.Errorf("ParseOrder(%q) = %v", o, got)
		}
	}

	if _, err := ParseOrder("sideways"); err == nil {
		t.Error("expected error for unknown order")
	}
}
