package scenario

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// RunFunc runs the selected collections once.
type RunFunc func(ctx context.Context) (*RunResult, error)

// RunScheduler decides when the selected collections run.
type RunScheduler interface {
	Start(ctx context.Context, run RunFunc) error
	Stop() error
	Stopped() bool
	WaitForShutdown(ctx context.Context) error
}

// PeriodicScheduler runs the collections as soon as it starts and then every
// interval. A zero interval runs them once.
type PeriodicScheduler struct {
	interval time.Duration
	log      log.Logger

	runs    atomic.Uint64
	running atomic.Bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewPeriodicScheduler(interval time.Duration, logger log.Logger) *PeriodicScheduler {
	return &PeriodicScheduler{
		interval: interval,
		log:      logger,
		stop:     make(chan struct{}),
	}
}

// Start performs the first run and returns its error. Later runs happen in
// the background and their errors are only logged.
func (s *PeriodicScheduler) Start(ctx context.Context, run RunFunc) error {
	if run == nil {
		return errors.New("no run function to schedule")
	}
	s.running.Store(true)

	if err := s.trigger(ctx, run); err != nil {
		return err
	}
	if s.interval <= 0 {
		return nil
	}

	s.wg.Add(1)
	go s.loop(ctx, run)
	return nil
}

func (s *PeriodicScheduler) trigger(ctx context.Context, run RunFunc) error {
	n := s.runs.Add(1)
	start := time.Now()
	result, err := run(ctx)
	if err != nil {
		return err
	}
	if result != nil {
		s.log.Debug("Collections run done", "run", n, "collections", len(result.Collections),
			"elapsed", time.Since(start))
	}
	return nil
}

func (s *PeriodicScheduler) loop(ctx context.Context, run RunFunc) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.trigger(ctx, run); err != nil {
				s.log.Error("Scheduled collections run failed", "run", s.runs.Load(), "err", err)
			}
			s.log.Debug("Next collections run scheduled", "in", s.interval)
		case <-s.stop:
			return
		case <-ctx.Done():
			s.log.Debug("Context done, no further collection runs")
			s.running.Store(false)
			return
		}
	}
}

// Stop ends the periodic runs. A run in progress completes first.
func (s *PeriodicScheduler) Stop() error {
	if s.running.Swap(false) {
		close(s.stop)
	}
	return nil
}

func (s *PeriodicScheduler) Stopped() bool {
	return !s.running.Load()
}

// WaitForShutdown blocks until the background loop has exited or ctx is done.
func (s *PeriodicScheduler) WaitForShutdown(ctx context.Context) error {
	exited := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(exited)
	}()

	select {
	case <-exited:
		return nil
	case <-ctx.Done():
		s.log.Warn("Timed out waiting for the collection scheduler", "err", ctx.Err())
		return ctx.Err()
	}
}
