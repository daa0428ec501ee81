package source

import (
	"context"
	"sync"

	"sub_trigger_bot/pkg/holder"
)

// Scripted source for tests. Reads walk Samples in order and repeat the last one.
type Fake struct {
	mx      sync.Mutex
	samples []holder.Sample
	errs    map[int]error
	reads   int
	closes  int
	onRead  func(n int)
}

func NewFake(samples ...holder.Sample) *Fake {
	return &Fake{
		samples: samples,
		errs:    make(map[int]error),
	}
}

// Fails the n-th read (0 based) with the given error.
func (f *Fake) FailAt(n int, err error) *Fake {
	f.mx.Lock()
	defer f.mx.Unlock()

	f.errs[n] = err
	return f
}

// Invokes fnc after every read with the read index.
func (f *Fake) OnRead(fnc func(n int)) *Fake {
	f.mx.Lock()
	defer f.mx.Unlock()

	f.onRead = fnc
	return f
}

func (f *Fake) Read(ctx context.Context) (holder.Sample, error) {
	f.mx.Lock()
	n := f.reads
	f.reads++
	onRead := f.onRead

	var (
		sample = holder.Unavailable()
		err    error
	)
	switch {
	case f.closes > 0:
		err = ErrClosed
	case f.errs[n] != nil:
		err = f.errs[n]
	case len(f.samples) == 0:
	case n < len(f.samples):
		sample = f.samples[n]
	default:
		sample = f.samples[len(f.samples)-1]
	}
	f.mx.Unlock()

	if onRead != nil {
		onRead(n)
	}

	return sample, err
}

func (f *Fake) Close() error {
	f.mx.Lock()
	defer f.mx.Unlock()

	f.closes++
	return nil
}

func (f *Fake) GetCount() uint64 {
	f.mx.Lock()
	defer f.mx.Unlock()

	return uint64(f.reads)
}

// Number of Close calls.
func (f *Fake) Closes() int {
	f.mx.Lock()
	defer f.mx.Unlock()

	return f.closes
}
