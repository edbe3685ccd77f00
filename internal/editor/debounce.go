package editor

import (
	"sync"
	"time"

	"github.com/dshills/inkwell/internal/loop"
)

// Debouncer runs fn once d has passed without another Trigger.
type Debouncer struct {
	mu    sync.Mutex
	sched loop.Scheduler
	delay time.Duration
	fn    func()
	timer loop.Timer
}

// Debounce creates a Debouncer whose timer runs on sched.
func Debounce(sched loop.Scheduler, d time.Duration, fn func()) *Debouncer {
	return &Debouncer{sched: sched, delay: d, fn: fn}
}

// Trigger restarts the delay.
func (db *Debouncer) Trigger() {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer != nil {
		db.timer.Stop()
	}
	var t loop.Timer
	t = db.sched.AfterFunc(db.delay, func() {
		db.mu.Lock()
		if db.timer != t {
			db.mu.Unlock()
			return
		}
		db.timer = nil
		db.mu.Unlock()
		db.fn()
	})
	db.timer = t
}

// Stop cancels a pending run. It returns true if one was pending.
func (db *Debouncer) Stop() bool {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.timer == nil {
		return false
	}
	stopped := db.timer.Stop()
	db.timer = nil
	return stopped
}
