package domain

import "github.com/jonboulle/clockwork"

// clock is a package-level time source so tests can freeze time via SetClock.
// It bounds datetimes from above: events cannot be recorded in the future.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used by Validate. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
