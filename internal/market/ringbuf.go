package market

import (
	"sync/atomic"
	"time"
)

// Trade is one public trade from the stream.
type Trade struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Qty    float64   `json:"qty"`
	At     time.Time `json:"at"`
}

const cacheLine = 64

// tradeRing is a lock-free SPSC ring buffer for the trade stream: the
// WebSocket read loop produces, the resampler consumes. Capacity is rounded
// up to a power of two for bitwise modulo.
type tradeRing struct {
	buf  []Trade
	mask uint64

	// Separate cache lines keep producer and consumer indexes from false
	// sharing.
	_pad0 [cacheLine]byte
	head  atomic.Uint64
	_pad1 [cacheLine]byte
	tail  atomic.Uint64
	_pad2 [cacheLine]byte

	overflow atomic.Uint64
}

func newTradeRing(capacity int) *tradeRing {
	n := nextPow2(capacity)
	if n < 2 {
		n = 2
	}
	return &tradeRing{
		buf:  make([]Trade, n),
		mask: uint64(n - 1),
	}
}

// push appends a trade; returns false (and counts the overflow) when full.
func (r *tradeRing) push(t Trade) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= uint64(len(r.buf)) {
		r.overflow.Add(1)
		return false
	}
	r.buf[head&r.mask] = t
	r.head.Store(head + 1)
	return true
}

// pop retrieves the oldest trade; false when empty.
func (r *tradeRing) pop() (Trade, bool) {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail >= head {
		return Trade{}, false
	}
	t := r.buf[tail&r.mask]
	r.tail.Store(tail + 1)
	return t, true
}

func (r *tradeRing) len() int { return int(r.head.Load() - r.tail.Load()) }

func (r *tradeRing) overflowCount() uint64 { return r.overflow.Load() }

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
