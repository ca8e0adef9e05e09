package worker

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	defer d.Stop()

	var runs int64
	for i := 0; i < 10; i++ {
		restarted := d.Trigger("session-1", func() { atomic.AddInt64(&runs, 1) })
		if restarted != (i > 0) {
			t.Errorf("trigger %d restarted = %v", i, restarted)
		}
		time.Sleep(2 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := atomic.LoadInt64(&runs); got != 1 {
		t.Errorf("burst of 10 triggers ran %d times, want 1", got)
	}
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	defer d.Stop()

	var a, b int64
	d.Trigger("session-a", func() { atomic.AddInt64(&a, 1) })
	d.Trigger("session-b", func() { atomic.AddInt64(&b, 1) })

	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt64(&a) != 1 || atomic.LoadInt64(&b) != 1 {
		t.Errorf("runs a=%d b=%d, want 1 each", a, b)
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var runs int64
	d.Trigger("session-1", func() { atomic.AddInt64(&runs, 1) })
	if !d.Pending("session-1") {
		t.Error("trigger not pending")
	}
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	if atomic.LoadInt64(&runs) != 0 {
		t.Errorf("stopped debouncer still ran %d times", runs)
	}
	if d.Pending("session-1") {
		t.Error("still pending after Stop")
	}
}
