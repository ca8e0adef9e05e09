package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dinelight/guestflow/internal/service/flows"
)

type blockingRunner struct {
	runs    int64
	release chan struct{}
}

func (r *blockingRunner) RunBatch(context.Context, time.Time) flows.BatchSummary {
	atomic.AddInt64(&r.runs, 1)
	if r.release != nil {
		<-r.release
	}
	return flows.BatchSummary{}
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	runner := &blockingRunner{release: make(chan struct{})}
	s, err := NewScheduler(runner, 15)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}

	done := make(chan struct{})
	go func() {
		s.tick()
		close(done)
	}()

	// Wait for the first tick to be inside RunBatch, then tick again.
	for atomic.LoadInt64(&runner.runs) == 0 {
		time.Sleep(time.Millisecond)
	}
	s.tick()

	close(runner.release)
	<-done

	if got := atomic.LoadInt64(&runner.runs); got != 1 {
		t.Errorf("overlapping ticks ran the batch %d times, want 1", got)
	}
}

func TestSchedulerRejectsNothing(t *testing.T) {
	// A zero interval falls back to the default rather than erroring.
	if _, err := NewScheduler(&blockingRunner{}, 0); err != nil {
		t.Errorf("zero interval: %v", err)
	}
}
