package loop

import "time"

// MinInterval is the shortest period accepted by Every.
const MinInterval = time.Millisecond

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the timer. It returns true if the call stopped a timer
	// that could still fire, false if it had already fired or been stopped.
	// Once Stop returns, the callback will not start.
	Stop() bool
}

// Scheduler schedules deferred callbacks onto the editor goroutine.
type Scheduler interface {
	// AfterFunc runs fn once after d.
	AfterFunc(d time.Duration, fn func()) Timer

	// Every runs fn every d until the returned Timer is stopped.
	Every(d time.Duration, fn func()) Timer
}

func clampDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func clampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	return d
}
