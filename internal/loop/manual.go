package loop

import (
	"sync"
	"time"
)

// Manual is a Scheduler driven by a virtual clock. Callbacks run on the
// goroutine that calls Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    uint64
	timers []*manualTimer
}

// NewManual creates a Manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

type manualTimer struct {
	m        *Manual
	seq      uint64
	due      time.Duration
	interval time.Duration
	fn       func()
	active   bool
}

// Stop implements Timer.
func (t *manualTimer) Stop() bool {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if !t.active {
		return false
	}
	t.active = false
	t.m.remove(t)
	return true
}

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	return m.add(clampDelay(d), 0, fn)
}

// Every implements Scheduler.
func (m *Manual) Every(d time.Duration, fn func()) Timer {
	d = clampInterval(d)
	return m.add(d, d, fn)
}

func (m *Manual) add(delay, interval time.Duration, fn func()) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{
		m:        m,
		seq:      m.seq,
		due:      m.now + delay,
		interval: interval,
		fn:       fn,
		active:   true,
	}
	m.timers = append(m.timers, t)
	return t
}

// remove must be called with m.mu held.
func (m *Manual) remove(t *manualTimer) {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// next returns the earliest active timer due at or before limit.
// It must be called with m.mu held.
func (m *Manual) next(limit time.Duration) *manualTimer {
	var best *manualTimer
	for _, t := range m.timers {
		if t.due > limit {
			continue
		}
		if best == nil || t.due < best.due || (t.due == best.due && t.seq < best.seq) {
			best = t
		}
	}
	return best
}

// Advance moves the clock forward by d, running every callback that falls
// due in time order. Callbacks may schedule or stop timers.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + clampDelay(d)
	for {
		t := m.next(target)
		if t == nil {
			break
		}
		m.now = t.due
		if t.interval > 0 {
			t.due += t.interval
		} else {
			t.active = false
			m.remove(t)
		}
		fn := t.fn
		m.mu.Unlock()
		fn()
		m.mu.Lock()
	}
	m.now = target
	m.mu.Unlock()
}

// Now returns the elapsed virtual time.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of timers that can still fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}
