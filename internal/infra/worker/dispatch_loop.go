// File: internal/infra/worker/dispatch_loop.go
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	portuc "manuscript-pipeline/internal/domain/ports/usecase"
)

// maxRunsPerTask caps how many jobs one submitted task drains back to back.
const maxRunsPerTask = 10

// DispatchLoop is the in-process trigger for the dispatcher: on every tick
// it hands a drain task to the pool. External triggers (the HTTP dispatch
// endpoint, cmd/trigger) call the same dispatcher.
type DispatchLoop struct {
	dispatcher portuc.Dispatcher
	interval   time.Duration
	log        *zerolog.Logger
}

func NewDispatchLoop(d portuc.Dispatcher, interval time.Duration, logger *zerolog.Logger) *DispatchLoop {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	l := logger.With().Str("component", "DispatchLoop").Logger()
	return &DispatchLoop{dispatcher: d, interval: interval, log: &l}
}

// Start blocks until ctx is done. Run it in a goroutine.
func (l *DispatchLoop) Start(ctx context.Context, pool *Pool) {
	l.log.Info().Dur("interval", l.interval).Int("workers", pool.Size()).Msg("dispatch loop started")
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("dispatch loop stopping")
			return
		case <-ticker.C:
			if err := pool.Submit(l.Drain); err != nil && !errors.Is(err, ErrQueueFull) {
				l.log.Error().Err(err).Msg("submit dispatch task")
			}
		}
	}
}

// Drain runs the dispatcher until the queue reports no work, an error
// occurs, or maxRunsPerTask jobs were handled.
func (l *DispatchLoop) Drain(ctx context.Context) error {
	for i := 0; i < maxRunsPerTask; i++ {
		if ctx.Err() != nil {
			return nil
		}
		res, err := l.dispatcher.RunOnce(ctx)
		if err != nil {
			return err
		}
		if res.Outcome == portuc.DispatchNoWork {
			return nil
		}
		l.log.Debug().
			Str("outcome", string(res.Outcome)).
			Str("job_id", res.JobID).
			Str("target_id", res.TargetID).
			Msg("dispatch run finished")
	}
	return nil
}
