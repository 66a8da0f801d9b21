package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	portuc "manuscript-pipeline/internal/domain/ports/usecase"
)

// reapTimeout bounds a single ReapStuck pass.
const reapTimeout = 30 * time.Second

// Scheduler periodically returns stuck RUNNING jobs to the queue.
type Scheduler struct {
	interval time.Duration
	stuckAge time.Duration
	reaper   portuc.Reaper
	log      *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler runs reaper.ReapStuck(stuckAge) every interval. If interval
// <= 0 it defaults to 1 minute.
func NewScheduler(interval, stuckAge time.Duration, reaper portuc.Reaper, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	l := logger.With().Str("component", "Scheduler").Logger()
	return &Scheduler{interval: interval, stuckAge: stuckAge, reaper: reaper, log: &l}
}

// Start begins the loop in a background goroutine. Calling Start twice has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	s.log.Info().Dur("interval", s.interval).Dur("stuck_age", s.stuckAge).Msg("scheduler started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("scheduler context cancelled; stopping")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one pass.
func (s *Scheduler) Tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, reapTimeout)
	defer cancel()

	n, err := s.reaper.ReapStuck(runCtx, s.stuckAge)
	if err != nil {
		s.log.Error().Err(err).Msg("reap stuck jobs")
	} else if n > 0 {
		s.log.Warn().Int("count", n).Msg("stuck jobs reclaimed")
	}
}

// Stop cancels the loop and waits for it to finish. It is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("scheduler stopped")
}
