package engine

import (
	"context"
	"sync"
	"time"

	"tradebot/internal/core"
	"tradebot/pkg/telemetry"
)

// OfferProcessor is the per-tick work the scheduler drives.
type OfferProcessor interface {
	ProcessPendingOffers(ctx context.Context) ([]core.Decision, error)
}

// PollingScheduler drives one evaluation pass per tick. Passes never
// overlap: the loop waits for the current pass to finish before arming the
// next delay, and cancellation is observed at the delay boundary. Pass
// errors are logged and absorbed; nothing escapes the loop.
type PollingScheduler struct {
	processor OfferProcessor
	interval  time.Duration
	logger    core.ILogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewPollingScheduler(processor OfferProcessor, interval time.Duration, logger core.ILogger) *PollingScheduler {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &PollingScheduler{
		processor: processor,
		interval:  interval,
		logger:    logger.WithField("component", "scheduler"),
	}
}

// Start launches the polling loop in the background. Calling Start on a
// running scheduler is a no-op.
func (s *PollingScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	s.logger.Info("Scheduler started", "interval", s.interval.String())
	go s.loop(loopCtx)
}

// Stop signals cancellation and waits for the loop to exit. An in-flight
// pass is allowed to complete naturally.
func (s *PollingScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	s.logger.Info("Scheduler stopped")
}

// Run blocks until ctx is cancelled. It exists for errgroup-style hosts.
func (s *PollingScheduler) Run(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
	return nil
}

func (s *PollingScheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.done)

	s.runPass(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

// runPass executes one pass and contains every failure mode, including
// panics, so the loop always survives to the next tick.
func (s *PollingScheduler) runPass(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Evaluation pass panicked", "panic", r)
		}
	}()

	start := time.Now()
	_, err := s.processor.ProcessPendingOffers(ctx)
	telemetry.GetGlobalMetrics().RecordPass(ctx, time.Since(start), err != nil)
	if err != nil {
		s.logger.Error("Evaluation pass failed", "error", err)
	}
}
