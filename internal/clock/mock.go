package clock

import (
	"sync"
	"time"

	bclock "github.com/benbjohnson/clock"
)

// Mock is a Clock that only moves when Advance is called. Advance returns
// once every callback that fell due has finished, including callbacks of
// timers scheduled by those callbacks.
type Mock struct {
	mock *bclock.Mock

	lock   sync.Mutex
	timers map[*mockTimer]struct{}
}

type mockTimer struct {
	clock    *Mock
	timer    *bclock.Timer
	deadline time.Time
	done     chan struct{}
	stopped  chan struct{}
}

var _ Clock = (*Mock)(nil)

func NewMock(start time.Time) *Mock {
	var m = bclock.NewMock()
	m.Set(start)
	return &Mock{
		mock:   m,
		timers: map[*mockTimer]struct{}{},
	}
}

func (m *Mock) Now() time.Time {
	return m.mock.Now()
}

func (m *Mock) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}

	var t = &mockTimer{
		clock:    m,
		deadline: m.mock.Now().Add(d),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}

	m.lock.Lock()
	m.timers[t] = struct{}{}
	m.lock.Unlock()

	t.timer = m.mock.AfterFunc(d, func() {
		defer t.finish()
		f()
	})
	return t
}

// Pending is the number of timers that have neither fired nor been stopped.
func (m *Mock) Pending() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.timers)
}

// Advance moves the clock forward by d one deadline at a time, waiting for
// the callbacks due at each deadline before moving on.
func (m *Mock) Advance(d time.Duration) {
	var target = m.mock.Now().Add(d)
	for {
		next, ok := m.nextDeadline(target)
		if !ok {
			break
		}

		var fired = m.due(next)
		m.mock.Add(next.Sub(m.mock.Now()))
		for _, t := range fired {
			select {
			case <-t.done:
			case <-t.stopped:
			}
		}
	}

	m.mock.Add(target.Sub(m.mock.Now()))
}

func (m *Mock) nextDeadline(target time.Time) (time.Time, bool) {
	m.lock.Lock()
	defer m.lock.Unlock()
	var next time.Time
	var found bool
	for t := range m.timers {
		if t.deadline.After(target) {
			continue
		}

		if !found || t.deadline.Before(next) {
			next = t.deadline
			found = true
		}
	}

	return next, found
}

func (m *Mock) due(deadline time.Time) []*mockTimer {
	m.lock.Lock()
	defer m.lock.Unlock()
	var list []*mockTimer
	for t := range m.timers {
		if !t.deadline.After(deadline) {
			list = append(list, t)
		}
	}

	return list
}

func (t *mockTimer) finish() {
	t.clock.lock.Lock()
	delete(t.clock.timers, t)
	t.clock.lock.Unlock()
	close(t.done)
}

func (t *mockTimer) Stop() bool {
	if !t.timer.Stop() {
		return false
	}

	t.clock.lock.Lock()
	delete(t.clock.timers, t)
	t.clock.lock.Unlock()
	close(t.stopped)
	return true
}
