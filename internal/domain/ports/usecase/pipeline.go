package usecase

import (
	"context"
	"time"
)

// Dispatcher is what the poll loop and the HTTP trigger need from the pipeline.
type Dispatcher interface {
	RunOnce(ctx context.Context) (DispatchResult, error)
}

// Reaper returns jobs orphaned by a crashed worker to the queue.
type Reaper interface {
	ReapStuck(ctx context.Context, olderThan time.Duration) (int, error)
}

// DispatchOutcome tells callers which of the result shapes applies.
type DispatchOutcome string

const (
	DispatchNoWork     DispatchOutcome = "NO_WORK"
	DispatchSuccess    DispatchOutcome = "SUCCESS"
	DispatchFailed     DispatchOutcome = "FAILED"
	DispatchSuperseded DispatchOutcome = "SUPERSEDED"
)

// DispatchResult describes one dispatcher invocation.
type DispatchResult struct {
	Outcome       DispatchOutcome
	JobID         string
	TargetID      string
	JobType       string
	Error         string
	WillRetry     bool
	NextAttemptIn time.Duration
}
