package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler drives recurring monitoring runs on a cron expression. Each tick
// covers the capture interval since the previous tick, so consecutive runs
// see disjoint windows. cron runs every trigger in its own goroutine, so the
// window cursor is mutex-guarded: a run outlasting the tick interval must not
// let the next tick re-read the same window.
type Scheduler struct {
	runner   *Runner
	cron     *cron.Cron
	interval time.Duration

	mu      sync.Mutex
	lastRun time.Time
}

func NewScheduler(runner *Runner, interval time.Duration) (*Scheduler, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is nil")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}
	return &Scheduler{
		runner:   runner,
		cron:     cron.New(cron.WithSeconds()),
		interval: interval,
	}, nil
}

// Start registers the cron expression and begins scheduling. The first tick
// covers the interval preceding it.
func (s *Scheduler) Start(cronExpression string) error {
	s.mu.Lock()
	s.lastRun = time.Now().Add(-s.interval)
	s.mu.Unlock()
	_, err := s.cron.AddFunc(cronExpression, s.tick)
	if err != nil {
		return fmt.Errorf("invalid monitoring schedule %q: %w", cronExpression, err)
	}
	s.cron.Start()
	log.Info().Str("schedule", cronExpression).Msg("Monitoring scheduler started")
	return nil
}

// nextWindow atomically claims the interval since the previous claim. Two
// concurrent ticks therefore get adjacent disjoint windows, never the same
// one twice.
func (s *Scheduler) nextWindow(now time.Time) Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := Window{From: s.lastRun, To: now}
	s.lastRun = now
	return window
}

func (s *Scheduler) tick() {
	window := s.nextWindow(time.Now())

	if _, err := s.runner.Run(context.Background(), window); err != nil {
		log.Error().Err(err).Time("from", window.From).Time("to", window.To).
			Msg("Scheduled monitoring run failed")
	}
}

// Stop halts scheduling and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Monitoring scheduler stopped")
}
