package sequence

import (
	"fmt"
	"math"

	"go.uber.org/atomic"
)

// Monotonic is a linearizable counter starting at 0.
//
// For N calls to Advance from any number of goroutines the returned values
// are exactly {0, 1, ..., N-1}. Which goroutine gets which value is decided
// by the order the increments land, not by the order the calls were made.
type Monotonic struct {
	next atomic.Uint64
}

var _ Source = (*Monotonic)(nil)

func NewMonotonic() *Monotonic {
	return &Monotonic{}
}

// Advance returns the current position and stores position+1.
//
// The counter refuses to wrap: once every representable value has been
// handed out, Advance fails with ErrPoisoned and leaves the counter as is.
func (m *Monotonic) Advance() (uint64, error) {
	for {
		cur := m.next.Load()
		if cur == math.MaxUint64 {
			return 0, fmt.Errorf("monotonic counter at %d: %w", cur, ErrPoisoned)
		}
		if m.next.CompareAndSwap(cur, cur+1) {
			return cur, nil
		}
	}
}

// Issued returns how many positions have been handed out so far.
func (m *Monotonic) Issued() uint64 {
	return m.next.Load()
}
