package effect

import (
	"context"
	"sync"

	"sub_trigger_bot/pkg/holder"
)

// Recording sink for tests.
type Fake struct {
	mx      sync.Mutex
	ready   bool
	applied []holder.Delta
	errs    map[int]error
	calls   int
}

func NewFake(ready bool) *Fake {
	return &Fake{
		ready: ready,
		errs:  make(map[int]error),
	}
}

func (f *Fake) SetReady(ready bool) {
	f.mx.Lock()
	defer f.mx.Unlock()

	f.ready = ready
}

// Fails the n-th Apply (0 based) with the given error.
func (f *Fake) FailAt(n int, err error) *Fake {
	f.mx.Lock()
	defer f.mx.Unlock()

	f.errs[n] = err
	return f
}

func (f *Fake) Ready(ctx context.Context) bool {
	f.mx.Lock()
	defer f.mx.Unlock()

	return f.ready
}

func (f *Fake) Apply(ctx context.Context, delta holder.Delta) error {
	f.mx.Lock()
	defer f.mx.Unlock()

	n := f.calls
	f.calls++
	if err := f.errs[n]; err != nil {
		return err
	}

	f.applied = append(f.applied, delta)
	return nil
}

// Successfully applied deltas.
func (f *Fake) Applied() []holder.Delta {
	f.mx.Lock()
	defer f.mx.Unlock()

	return append([]holder.Delta(nil), f.applied...)
}

// Number of Apply calls, failed ones included.
func (f *Fake) Calls() int {
	f.mx.Lock()
	defer f.mx.Unlock()

	return f.calls
}
