package notify_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"sub_trigger_bot/pkg/fault"
	"sub_trigger_bot/pkg/notify"

	"github.com/pkg/errors"
)

type recorder struct {
	mx     sync.Mutex
	events []notify.Event
	block  chan struct{}
}

func (r *recorder) Notify(e notify.Event) {
	if r.block != nil {
		<-r.block
	}
	r.mx.Lock()
	defer r.mx.Unlock()

	r.events = append(r.events, e)
}

func (r *recorder) len() int {
	r.mx.Lock()
	defer r.mx.Unlock()

	return len(r.events)
}

func TestDispatcherDelivers(t *testing.T) {
	r1, r2 := &recorder{}, &recorder{}

	d := notify.NewDispatcher(8, r1)
	d.Add(r2)
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		d.Notify(notify.Event{Kind: notify.KindCount, Count: uint64(i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := d.Shutdown(ctx); err != nil {
		t.Fatalf("failed to shut down, got error %v", err)
	}

	if r1.len() != 5 || r2.len() != 5 {
		t.Fatalf("want 5 events per observer, got %d and %d", r1.len(), r2.len())
	}
	for i, e := range r1.events {
		if e.Count != uint64(i) {
			t.Errorf("event %d out of order, got count %d", i, e.Count)
		}
	}
}

func TestDispatcherNeverBlocks(t *testing.T) {
	r := &recorder{block: make(chan struct{})}

	d := notify.NewDispatcher(2, r)
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			d.Notify(notify.Event{Kind: notify.KindCount})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Notify blocked on a slow observer")
	}

	close(r.block)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = d.Shutdown(ctx)

	if got := r.len(); got == 0 || got > 3 {
		t.Errorf("want buffered events only, got %d", got)
	}
}

func TestEventString(t *testing.T) {
	cases := []struct {
		e    notify.Event
		want string
	}{
		{notify.Event{Kind: notify.KindCount, Count: 10}, "current count 10"},
		{notify.Event{Kind: notify.KindIncrease, Previous: 10, Count: 15, Delta: 5}, "increase 10 -> 15 (+5)"},
		{notify.Event{Kind: notify.KindState, State: "Running"}, "state Running"},
		{
			notify.Event{Kind: notify.KindError, Err: fault.Wrap(fault.SinkApplyFailed, errors.New("refused"))},
			"SinkApplyFailed: effect sink apply failed: refused",
		},
	}

	for _, c := range cases {
		if got := c.e.String(); got != c.want {
			t.Errorf("want %q, got %q", c.want, got)
		}
	}
}

func TestMultiAndFunc(t *testing.T) {
	var got []notify.Kind
	fnc := notify.Func(func(e notify.Event) { got = append(got, e.Kind) })

	notify.Multi{fnc, notify.Nop{}, fnc}.Notify(notify.Event{Kind: notify.KindState})

	if len(got) != 2 {
		t.Errorf("want 2 deliveries, got %d", len(got))
	}
}
