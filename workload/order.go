package workload

import "fmt"

// Order is the traversal pattern over block offsets.
type Order int

const (
	InOrder Order = iota
	Reversed
	Random
)

// Orders lists every supported order.
func Orders() []Order {
	return []Order{InOrder, Reversed, Random}
}

func (o Order) String() string {
	switch o {
	case InOrder:
		return "inorder"
	case Reversed:
		return "reversed"
	case Random:
		return "random"
	default:
		return fmt.Sprintf("order(%d)", int(o))
	}
}

// ParseOrder maps an order name back to its Order.
func ParseOrder(s string) (Order, error) {
	for _, o := range Orders() {
		if o.String() == s {
			return o, nil
		}
	}

	return 0, fmt.Errorf("unknown order %q", s)
}

// Layout splits a total size into fixed-size blocks. The final block is
// short when Total is not a multiple of Block.
type Layout struct {
	Total uint64
	Block uint64
}

// NewLayout builds a Layout. block must be positive.
func NewLayout(total uint64, block int) Layout {
	return Layout{Total: total, Block: uint64(block)}
}

// Blocks returns the number of blocks, counting a trailing short block.
func (l Layout) Blocks() uint64 {
	if l.Block == 0 {
		return 0
	}

	n := l.Total / l.Block
	if l.Total%l.Block != 0 {
		n++
	}

	return n
}

// Offset returns the byte offset of block i.
func (l Layout) Offset(i uint64) uint64 {
	return i * l.Block
}

// Len returns the clamped length of block i:
// min(total-offset, block).
func (l Layout) Len(i uint64) int {
	rest := l.Total - l.Offset(i)

	return int(min(rest, l.Block))
}

// Offsets produces the block indices of one pass in a given order. It is
// finite and single-use; build a new one for every pass.
type Offsets struct {
	order Order
	count uint64
	gen   *Xorshift64
	next  uint64
}

// NewOffsets creates a producer over layout. gen is only consulted for
// Random, where each index is gen.Next() % Blocks(); the caller may keep
// drawing content from the same gen between calls to Next, which
// interleaves index and content draws on one stream.
func NewOffsets(layout Layout, order Order, gen *Xorshift64) *Offsets {
	return &Offsets{
		order: order,
		count: layout.Blocks(),
		gen:   gen,
	}
}

// Next returns the next block index, or false once the pass is complete.
// Random passes make exactly Blocks() draws, so some blocks may be visited
// more than once and others never.
func (s *Offsets) Next() (uint64, bool) {
	if s.next >= s.count {
		return 0, false
	}

	step := s.next
	s.next++

	switch s.order {
	case Reversed:
		return s.count - 1 - step, true
	case Random:
		return s.gen.Next() % s.count, true
	default:
		return step, true
	}
}
