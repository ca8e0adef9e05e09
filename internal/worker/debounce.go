package worker

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls per key into one execution after a
// quiet period. The segment preview endpoint uses it per editing session:
// while an operator is still changing rules, only the final shape gets a
// fresh count.
type Debouncer struct {
	quiet time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 500 * time.Millisecond
	}
	return &Debouncer{quiet: quiet, timers: make(map[string]*time.Timer)}
}

// Trigger schedules fn to run once the key has been quiet for the full
// period. A call while a previous fn is pending cancels it and restarts
// the clock; the return value reports whether that happened, which is
// how callers distinguish the first edit of a burst from the rest.
func (d *Debouncer) Trigger(key string, fn func()) (restarted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
		restarted = true
	}
	d.timers[key] = time.AfterFunc(d.quiet, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
	return restarted
}

// Pending reports whether a run is scheduled for the key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}

// Stop cancels everything pending. Used on shutdown.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}
