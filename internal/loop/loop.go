package loop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when work is submitted to a closed loop.
var ErrClosed = errors.New("loop is closed")

// DefaultQueueSize is the queue capacity used when none is given.
const DefaultQueueSize = 256

// Loop serializes work onto the goroutine that calls Run.
type Loop struct {
	queue     chan func()
	done      chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

// New creates a loop whose queue holds up to queueSize pending callbacks.
func New(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Loop{
		queue: make(chan func(), queueSize),
		done:  make(chan struct{}),
	}
}

// Run processes queued callbacks until ctx is done or Close is called.
// It must be called from exactly one goroutine.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.done:
			return nil
		case fn := <-l.queue:
			fn()
		}
	}
}

// Post enqueues fn. It blocks while the queue is full.
func (l *Loop) Post(fn func()) error {
	if l.closed.Load() {
		return ErrClosed
	}
	select {
	case l.queue <- fn:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// Do runs fn on the loop and waits for its result. Do must not be called
// from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := l.Post(func() { result <- fn() }); err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Close stops Run. Pending callbacks are discarded.
func (l *Loop) Close() {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// AfterFunc implements Scheduler.
func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return l.schedule(clampDelay(d), 0, fn)
}

// Every implements Scheduler.
func (l *Loop) Every(d time.Duration, fn func()) Timer {
	d = clampInterval(d)
	return l.schedule(d, d, fn)
}

func (l *Loop) schedule(delay, interval time.Duration, fn func()) *loopTimer {
	lt := &loopTimer{loop: l, fn: fn, interval: interval}
	lt.mu.Lock()
	lt.t = time.AfterFunc(delay, lt.enqueue)
	lt.mu.Unlock()
	return lt
}

// loopTimer fires by posting onto its loop. The stopped flag is checked on
// the loop goroutine, so a fire already queued when Stop runs is dropped.
type loopTimer struct {
	mu       sync.Mutex
	loop     *Loop
	t        *time.Timer
	fn       func()
	interval time.Duration
	stopped  atomic.Bool
}

func (lt *loopTimer) enqueue() {
	if lt.stopped.Load() {
		return
	}
	_ = lt.loop.Post(lt.fire)
}

func (lt *loopTimer) fire() {
	if lt.stopped.Load() {
		return
	}
	if lt.interval == 0 {
		lt.stopped.Store(true)
		lt.fn()
		return
	}

	lt.fn()

	lt.mu.Lock()
	defer lt.mu.Unlock()
	if !lt.stopped.Load() {
		lt.t.Reset(lt.interval)
	}
}

// Stop implements Timer.
func (lt *loopTimer) Stop() bool {
	if !lt.stopped.CompareAndSwap(false, true) {
		return false
	}
	lt.mu.Lock()
	defer lt.mu.Unlock()
	lt.t.Stop()
	return true
}
