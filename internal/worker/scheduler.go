package worker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dinelight/guestflow/internal/pkg/logger"
	"github.com/dinelight/guestflow/internal/service/flows"
)

// BatchRunner is the slice of the flow engine the scheduler needs.
type BatchRunner interface {
	RunBatch(ctx context.Context, now time.Time) flows.BatchSummary
}

// Scheduler fires the automation batch on a fixed interval. Runs never
// overlap: if a batch is still going when the next tick arrives, the tick
// is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  BatchRunner
	running int32
}

// NewScheduler creates a scheduler that runs the engine every
// intervalMinutes.
func NewScheduler(runner BatchRunner, intervalMinutes int) (*Scheduler, error) {
	if intervalMinutes <= 0 {
		intervalMinutes = 15
	}
	s := &Scheduler{cron: cron.New(), runner: runner}

	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("schedule automation batch: %w", err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		logger.Warn("previous automation batch still running, skipping tick")
		return
	}
	defer atomic.StoreInt32(&s.running, 0)

	sum := s.runner.RunBatch(context.Background(), time.Now().UTC())
	if len(sum.Errors) > 0 {
		logger.Warn("automation batch finished with errors", "errors", len(sum.Errors))
	}
}

// Start begins ticking. Non-blocking.
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("automation scheduler started")
}

// Stop halts ticking and waits for an in-flight batch to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("automation scheduler stopped")
}
