// Package scheduler runs periodic background reconciliation for the headless client
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultRefreshTimeout bounds a single refresh run
const DefaultRefreshTimeout = time.Minute

// Refresher is the interface that wraps the reconcile operation the scheduler triggers.
type Refresher interface {
	// Method LoadContent reconciles local progress and cards with the backend.
	//
	// An error means the run failed; the scheduler logs it and tries again on the next tick.
	LoadContent(ctx context.Context) error
}

// Scheduler triggers Refresher.LoadContent on a cron schedule
type Scheduler struct {
	refresher Refresher
	logger    *zap.Logger
	cron      *cron.Cron
	timeout   time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewScheduler creates a scheduler for a standard cron expression or a descriptor such as "@every 15m"
func NewScheduler(refresher Refresher, expr string, logger *zap.Logger) (*Scheduler, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", expr, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		refresher: refresher,
		logger:    logger,
		timeout:   DefaultRefreshTimeout,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	s.cron.Schedule(schedule, cron.FuncJob(s.refresh))
	return s, nil
}

// Start runs a refresh immediately and then on every tick
func (s *Scheduler) Start() {
	s.logger.Info("Scheduler started")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.refresh()
	}()
	s.cron.Start()
}

// Stop cancels a running refresh and waits for it to return
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.cron.Stop().Done()
		s.wg.Wait()
		s.logger.Info("Scheduler stopped")
	})
}

// Next returns the time of the next scheduled refresh, or the zero time before Start
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) refresh() {
	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	if err := s.refresher.LoadContent(ctx); err != nil {
		s.logger.Warn("background refresh failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	s.logger.Debug("background refresh finished", zap.Duration("duration", time.Since(start)))
}
