package reporter

import (
	"context"
	"log"
	"time"

	"sub_trigger_bot/pkg/looper"
)

const (
	DefaultInterval = 30 * time.Second
)

type Scheduler interface {
	Start(ctx context.Context, interval time.Duration, onTimer func())
}

type SchedulerFunc func(ctx context.Context, interval time.Duration, onTimer func())

func (fnc SchedulerFunc) Start(ctx context.Context, interval time.Duration, onTimer func()) {
	fnc(ctx, interval, onTimer)
}

// Invokes onTimer every interval until ctx is done. Blocks.
func Every(ctx context.Context, interval time.Duration, onTimer func()) {
	retryTimer := time.NewTimer(interval)
	defer retryTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("stopping status reports\n")
			return

		case <-retryTimer.C:
			onTimer()

			// reset timer
			retryTimer.Reset(interval)
		}
	}
}

// Subset of the poll loop read by the reporter.
type Status interface {
	State() looper.State
	Count() (uint64, bool)
}

// Logs the current count of a running loop.
type Reporter struct {
	status Status
	logf   func(format string, v ...any)
}

func New(status Status) *Reporter {
	return &Reporter{
		status: status,
		logf:   log.Printf,
	}
}

func (r *Reporter) Report() {
	if r.status.State() != looper.Running {
		return
	}

	if count, ok := r.status.Count(); ok {
		r.logf("current subscriber count: %d\n", count)
	} else {
		r.logf("current subscriber count: unavailable\n")
	}
}

// Runs reports on the given scheduler, non-blocking.
func (r *Reporter) Start(ctx context.Context, scheduler Scheduler, interval time.Duration) {
	go scheduler.Start(ctx, interval, r.Report)
}
