// Package sequence provides the sources that turn numbers are drawn from.
//
// A Source is shared by every dispenser that hands out tickets for the same
// line of customers. The source, not the dispenser, is the authority for
// uniqueness: each successful Advance returns a value that the source has
// never returned before.
package sequence

import "errors"

var (
	// ErrExhausted is returned by a Scripted source that has no values left.
	// The caller may stop issuing tickets or Reset the source.
	ErrExhausted = errors.New("sequence exhausted")

	// ErrPoisoned is returned when the shared state of a source can no longer
	// produce a value without breaking uniqueness. It must not be retried.
	ErrPoisoned = errors.New("sequence state poisoned")
)

// Source produces the next position in a logical ordering.
type Source interface {
	// Advance returns the next position. A failed Advance leaves the source
	// unchanged.
	Advance() (uint64, error)
}

// IsFatal reports whether err means the source can no longer be trusted.
func IsFatal(err error) bool {
	return errors.Is(err, ErrPoisoned)
}
