// Package ordermutex serves ticket holders one at a time, in turn-number order.
//
// Turn numbers must be contiguous and start at 0, as handed out by a
// dispenser over a sequence.Monotonic source. A holder that never shows up
// must return its ticket, otherwise everyone behind it waits forever.
package ordermutex

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

type OrderMutex interface {
	// Lock blocks until it is t's turn.
	Lock(Ticket)
	// LockContext is Lock that gives up when ctx is done. A ticket that gave
	// up is burned: its turn is skipped and it must not be locked again.
	LockContext(context.Context, Ticket) error
	Unlock(Ticket)
	ReturnTicket(Ticket)
	// Serving returns the turn number currently allowed to hold the lock.
	Serving() uint64
}

// orderMutex implements a ticket-lock with precise wakeups.
// Invariants:
//   - cur is the turn currently allowed to acquire the lock
//   - waiters holds at most one entry per turn, only for turns >= cur
//   - burned marks turns that will never lock (returned or given up)
//
// Wake-ups are per-turn by closing that turn's channel.
type orderMutex struct {
	serving atomic.Uint64

	mu      sync.Mutex
	cur     uint64
	waiters map[uint64]chan struct{}
	burned  map[uint64]struct{}
}

func New() OrderMutex {
	return &orderMutex{
		waiters: make(map[uint64]chan struct{}),
		burned:  make(map[uint64]struct{}),
	}
}

func (m *orderMutex) Serving() uint64 {
	return m.serving.Load()
}

func (m *orderMutex) Lock(t Ticket) {
	_ = m.LockContext(context.Background(), t)
}

func (m *orderMutex) LockContext(ctx context.Context, t Ticket) error {
	id := t.TurnNumber()

	// Fast path: grab mu, if it's our turn, enter immediately.
	m.mu.Lock()
	if id < m.cur {
		m.mu.Unlock()
		panic("LockContext called for a ticket whose turn has passed")
	}
	if id == m.cur {
		m.mu.Unlock()
		return nil
	}

	// Otherwise, park on (or create) this turn's waiter.
	ch, ok := m.waiters[id]
	if !ok {
		ch = make(chan struct{})
		m.waiters[id] = ch
	}
	m.mu.Unlock()

	select {
	case <-ch:
		// After wake, it is our turn by construction.
		return nil
	case <-ctx.Done():
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-ch:
		// Woken while giving up: we hold the turn, so pass it on.
		m.cur++
	default:
		delete(m.waiters, id)
		m.burned[id] = struct{}{}
	}
	m.advanceAndWakeNext()
	return ctx.Err()
}

func (m *orderMutex) Unlock(t Ticket) {
	id := t.TurnNumber()
	m.mu.Lock()
	defer m.mu.Unlock()

	if id != m.cur {
		panic("Unlock called for a ticket that does not hold the lock")
	}

	m.cur++
	m.advanceAndWakeNext()
}

// ReturnTicket can be called either:
//   - before Lock: the holder walked away, its turn is skipped
//   - after Unlock: no-op, so it is safe to defer
//
// Any call between Lock and Unlock is UB (caller responsibility).
func (m *orderMutex) ReturnTicket(t Ticket) {
	id := t.TurnNumber()

	m.mu.Lock()
	defer m.mu.Unlock()

	if id < m.cur {
		return
	}

	m.burned[id] = struct{}{}

	// A goroutine parked in Lock for a returned ticket is UB; drop the waiter
	// without waking it.
	delete(m.waiters, id)

	m.advanceAndWakeNext()
}

// advanceAndWakeNext advances cur over burned turns, then wakes the waiter
// for cur, if any.
func (m *orderMutex) advanceAndWakeNext() {
	for {
		if _, burned := m.burned[m.cur]; !burned {
			break
		}
		delete(m.burned, m.cur)
		m.cur++
	}
	m.serving.Store(m.cur)

	if ch, ok := m.waiters[m.cur]; ok {
		delete(m.waiters, m.cur)
		close(ch)
	}
}
