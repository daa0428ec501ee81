package reporter

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"sub_trigger_bot/pkg/looper"
)

type status struct {
	state looper.State
	count uint64
	known bool
}

func (s status) State() looper.State { return s.state }

func (s status) Count() (uint64, bool) { return s.count, s.known }

func TestReport(t *testing.T) {
	cases := []struct {
		status status
		want   string
	}{
		{status{looper.Running, 1234, true}, "current subscriber count: 1234\n"},
		{status{looper.Running, 0, false}, "current subscriber count: unavailable\n"},
		{status{looper.Idle, 1234, true}, ""},
		{status{looper.Stopping, 1234, true}, ""},
	}

	for i, c := range cases {
		t.Run(fmt.Sprintf("Test case %d", i), func(t *testing.T) {
			var got string

			r := New(c.status)
			r.logf = func(format string, v ...any) {
				got = fmt.Sprintf(format, v...)
			}
			r.Report()

			if got != c.want {
				t.Errorf("expected %q, got %q", c.want, got)
			}
		})
	}
}

func TestEvery(t *testing.T) {
	var ticks atomic.Int32

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		Every(ctx, time.Millisecond, func() {
			if ticks.Add(1) == 3 {
				cancel()
			}
		})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop with its context")
	}

	if ticks.Load() < 3 {
		t.Errorf("expected at least 3 ticks, got %d", ticks.Load())
	}
}

func TestStartWithScheduler(t *testing.T) {
	called := make(chan time.Duration, 1)

	r := New(status{state: looper.Idle})
	r.Start(context.Background(), SchedulerFunc(func(ctx context.Context, interval time.Duration, onTimer func()) {
		onTimer()
		called <- interval
	}), DefaultInterval)

	select {
	case interval := <-called:
		if interval != DefaultInterval {
			t.Errorf("expected %s, got %s", DefaultInterval, interval)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler not started")
	}
}
