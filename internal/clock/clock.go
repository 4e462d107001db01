// Package clock abstracts the timers used to sequence motors and block
// durations so tests can drive time by hand.
package clock

import (
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Timer is a scheduled callback that can be stopped before it fires.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer; stopping an expired or stopped timer is a no-op.
	Stop() bool
}

type Clock interface {
	Now() time.Time
	// AfterFunc runs f on its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

type wall struct {
	c bclock.Clock
}

// New returns the wall clock.
func New() Clock {
	return wall{c: bclock.New()}
}

func (w wall) Now() time.Time {
	return w.c.Now()
}

func (w wall) AfterFunc(d time.Duration, f func()) Timer {
	return w.c.AfterFunc(d, f)
}

// After returns a channel that is closed once d has elapsed on c.
func After(c Clock, d time.Duration) <-chan struct{} {
	var done = make(chan struct{})
	c.AfterFunc(d, func() {
		close(done)
	})

	return done
}
