package looper

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"sub_trigger_bot/pkg/config"
	"sub_trigger_bot/pkg/detector"
	"sub_trigger_bot/pkg/effect"
	"sub_trigger_bot/pkg/fault"
	"sub_trigger_bot/pkg/holder"
	"sub_trigger_bot/pkg/notify"
	"sub_trigger_bot/pkg/source"

	"github.com/pkg/errors"
)

const (
	DefaultApplyTimeout = 30 * time.Second
)

var (
	ErrAlreadyRunning = errors.New("poll loop already running")
	ErrStopping       = errors.New("poll loop is stopping")
)

type State int32

const (
	Idle State = iota
	Running
	Stopping
)

func (state State) String() string {
	return [...]string{"Idle", "Running", "Stopping"}[state]
}

// Opens a counter source session for the run.
type SourceOpener func(ctx context.Context, cfg config.Config) (source.Source, error)

// Builds the effect sink of the selected variant.
type SinkFactory func(variant effect.Variant) (effect.Sink, error)

// Poll loop config.
type Config struct {
	OpenSource   SourceOpener
	NewSink      SinkFactory
	Observer     notify.Observer
	ApplyTimeout time.Duration
	// Overrides the poll interval of a run, tests only.
	Interval func(cfg config.Config) time.Duration
	Now      func() time.Time
}

// A single Running period.
type run struct {
	cfg  config.Config
	stop context.CancelFunc
	done chan struct{}
}

// Polls a counter source and turns increases into effects.
// At most one run is active at a time.
type Loop struct {
	config *Config

	mx       sync.Mutex // serializes start/stop and guards run
	state    atomic.Int32
	run      *run
	starting bool // start checks in flight, mx is released meanwhile

	count atomic.Uint64
	known atomic.Bool
}

func New(conf *Config) *Loop {
	cfg := &Config{}
	*cfg = *conf

	if cfg.OpenSource == nil || cfg.NewSink == nil {
		panic("looper: nil source opener or sink factory")
	}
	if cfg.Observer == nil {
		cfg.Observer = notify.Nop{}
	}
	if cfg.ApplyTimeout <= 0 {
		cfg.ApplyTimeout = DefaultApplyTimeout
	}
	if cfg.Interval == nil {
		cfg.Interval = config.Config.PollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Loop{config: cfg}
}

func (l *Loop) State() State {
	return State(l.state.Load())
}

// Returns the count read on the latest successful poll.
func (l *Loop) Count() (uint64, bool) {
	return l.count.Load(), l.known.Load()
}

// Returns config of the active run.
func (l *Loop) Config() (config.Config, bool) {
	l.mx.Lock()
	defer l.mx.Unlock()

	if l.run == nil {
		return config.Config{}, false
	}
	return l.run.cfg, true
}

// Checks preconditions and asynchronously starts polling with the given config.
// The context bounds the start checks only, the run lasts until Stop or a fatal fault.
// The slow checks run without holding the lock, a concurrent Start is rejected meanwhile.
func (l *Loop) Start(ctx context.Context, cfg config.Config) error {
	l.mx.Lock()
	switch {
	case l.starting || l.State() == Running:
		l.mx.Unlock()
		return ErrAlreadyRunning
	case l.State() == Stopping:
		l.mx.Unlock()
		return ErrStopping
	}
	l.starting = true
	l.mx.Unlock()

	src, sink, err := l.prepare(ctx, cfg)

	l.mx.Lock()
	defer l.mx.Unlock()
	l.starting = false

	if err != nil {
		return err
	}

	stopCtx, stop := context.WithCancel(context.Background())
	r := &run{
		cfg:  cfg,
		stop: stop,
		done: make(chan struct{}),
	}

	l.run = r
	l.known.Store(false)
	l.state.Store(int32(Running))
	l.notifyState(cfg, Running)

	go l.loop(stopCtx, r, src, sink)

	return nil
}

// Validates config, checks the sink and opens the source of a new run.
func (l *Loop) prepare(ctx context.Context, cfg config.Config) (source.Source, effect.Sink, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	sink, err := l.config.NewSink(cfg.Effect)
	if err != nil {
		return nil, nil, err
	}

	if !sink.Ready(ctx) {
		err := fault.Wrap(fault.SinkUnreachable, errors.Errorf("%s effect target not reachable", cfg.Effect))
		l.notifyErr(cfg, err)
		return nil, nil, err
	}

	src, err := l.config.OpenSource(ctx, cfg)
	if err != nil {
		err = fault.Wrap(fault.SourceInitFailed, err)
		l.notifyErr(cfg, err)
		return nil, nil, err
	}

	return src, sink, nil
}

// Requests the active run to stop at the next cycle boundary.
// Idempotent, does not wait. A start still in its checks is not affected.
func (l *Loop) Stop() {
	l.mx.Lock()
	defer l.mx.Unlock()

	if l.run == nil || l.State() != Running {
		return
	}

	l.state.Store(int32(Stopping))
	l.notifyState(l.run.cfg, Stopping)
	l.run.stop()
}

// Blocks until the active run, if any, has released its source.
func (l *Loop) Wait(ctx context.Context) error {
	l.mx.Lock()
	r := l.run
	l.mx.Unlock()

	if r == nil {
		return nil
	}

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stops and waits. Use for graceful shutdown.
func (l *Loop) Shutdown(ctx context.Context) error {
	l.Stop()
	return l.Wait(ctx)
}

func (l *Loop) loop(stopCtx context.Context, r *run, src source.Source, sink effect.Sink) {
	defer close(r.done)
	// runs after recover below
	defer l.finish(r, src)
	defer func() {
		if rec := recover(); rec != nil {
			l.notifyErr(r.cfg, fault.Wrap(fault.UnexpectedFault, errors.Errorf("panic: %v", rec)))
		}
	}()

	det := detector.New()
	interval := l.config.Interval(r.cfg)

	sleepTimer := time.NewTimer(interval)
	defer sleepTimer.Stop()
	if !sleepTimer.Stop() {
		<-sleepTimer.C
	}

	for {
		if stopCtx.Err() != nil {
			return
		}

		l.tick(r, src, det, sink)

		if stopCtx.Err() != nil {
			return
		}

		// drained, either above or by the previous receive
		sleepTimer.Reset(interval)
		select {
		case <-stopCtx.Done():
			// operation interrupted from upstream
			return

		case <-sleepTimer.C:
		}
	}
}

// One poll cycle: read, detect and maybe apply. Per-tick faults never escape.
func (l *Loop) tick(r *run, src source.Source, det *detector.Detector, sink effect.Sink) {
	prev, _ := det.Baseline()

	sample, err := src.Read(context.Background())
	if err != nil || !sample.IsAvailable() {
		if err == nil {
			err = errors.New("no value")
		}
		l.notifyErr(r.cfg, fault.Wrap(fault.SourceUnavailable, err))
	}

	delta, increased := det.Observe(sample)

	if value, ok := sample.Value(); ok {
		l.count.Store(value)
		l.known.Store(true)
		l.config.Observer.Notify(notify.Event{
			Kind:   notify.KindCount,
			Time:   l.config.Now(),
			Target: r.cfg.ChannelID,
			Count:  value,
		})

		if increased {
			l.config.Observer.Notify(notify.Event{
				Kind:     notify.KindIncrease,
				Time:     l.config.Now(),
				Target:   r.cfg.ChannelID,
				Count:    value,
				Previous: prev,
				Delta:    delta,
			})
		}
	}

	if !increased {
		return
	}

	l.apply(r, sink, delta)
}

// Best effort, a missed effect is not retried.
func (l *Loop) apply(r *run, sink effect.Sink, delta holder.Delta) {
	ctx, cancel := context.WithTimeout(context.Background(), l.config.ApplyTimeout)
	defer cancel()

	if err := sink.Apply(ctx, delta); err != nil {
		l.notifyErr(r.cfg, fault.Wrap(fault.SinkApplyFailed, err))
	}
}

// Releases the source exactly once per run and returns to Idle.
func (l *Loop) finish(r *run, src source.Source) {
	if err := src.Close(); err != nil {
		l.notifyErr(r.cfg, errors.Wrap(err, "failed to close source"))
	}

	l.mx.Lock()
	defer l.mx.Unlock()

	r.stop()
	if l.run == r {
		l.run = nil
	}
	l.state.Store(int32(Idle))
	l.notifyState(r.cfg, Idle)
}

func (l *Loop) notifyErr(cfg config.Config, err error) {
	l.config.Observer.Notify(notify.Event{
		Kind:   notify.KindError,
		Time:   l.config.Now(),
		Target: cfg.ChannelID,
		Err:    err,
	})
}

func (l *Loop) notifyState(cfg config.Config, state State) {
	l.config.Observer.Notify(notify.Event{
		Kind:   notify.KindState,
		Time:   l.config.Now(),
		Target: cfg.ChannelID,
		State:  state.String(),
	})
}
