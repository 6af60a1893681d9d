package sequence

import "sync"

// Scripted hands out a fixed list of values in list order. It is meant for
// tests that need to know exactly which turn numbers will be issued.
//
// sync.Mutex cannot fail to lock or be left poisoned by a panicking holder,
// so the only failure Scripted reports is ErrExhausted.
type Scripted struct {
	mu     sync.Mutex
	values []uint64
}

var _ Source = (*Scripted)(nil)

func NewScripted(values ...uint64) *Scripted {
	s := &Scripted{}
	s.Reset(values...)
	return s
}

// Advance removes and returns the head of the list.
func (s *Scripted) Advance() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.values) == 0 {
		return 0, ErrExhausted
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v, nil
}

// Remaining returns the number of values not yet handed out.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Reset replaces whatever is left with a copy of values.
func (s *Scripted) Reset(values ...uint64) {
	cp := make([]uint64, len(values))
	copy(cp, values)

	s.mu.Lock()
	s.values = cp
	s.mu.Unlock()
}
