package notify

import (
	"context"
	"log"
	"sync"
	"time"
)

const (
	DefaultBufSize = 64

	dropLogInterval = 10 * time.Second
)

// Hands events over to observers on its own goroutine, so a slow observer
// never stalls the poller. Events are dropped when the buffer is full.
type Dispatcher struct {
	ch chan Event

	mx        sync.RWMutex
	observers []Observer

	dropMx      sync.Mutex
	dropped     int64
	lastDropLog time.Time

	stop context.CancelFunc
	done chan struct{}
}

func NewDispatcher(bufSize int, observers ...Observer) *Dispatcher {
	if bufSize <= 0 {
		bufSize = DefaultBufSize
	}
	return &Dispatcher{
		ch:        make(chan Event, bufSize),
		observers: observers,
	}
}

// Adds an observer, safe while dispatching.
func (d *Dispatcher) Add(o Observer) {
	d.mx.Lock()
	defer d.mx.Unlock()

	d.observers = append(d.observers, o)
}

// Implements Observer. Never blocks.
func (d *Dispatcher) Notify(e Event) {
	select {
	case d.ch <- e:
	default:
		d.dropMx.Lock()
		defer d.dropMx.Unlock()

		d.dropped++
		now := time.Now()
		if d.lastDropLog.IsZero() || now.Sub(d.lastDropLog) >= dropLogInterval {
			log.Printf("notifications dropped: %d (buffer full)\n", d.dropped)
			d.dropped = 0
			d.lastDropLog = now
		}
	}
}

// Starts dispatching asynchronously.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.stop = cancel
	d.done = make(chan struct{})

	go func(ctx context.Context) {
		defer close(d.done)

		for {
			select {
			case <-ctx.Done():
				d.drain()
				log.Println("stopping notifications dispatcher")
				return

			case e := <-d.ch:
				d.dispatch(e)
			}
		}
	}(ctx)
}

func (d *Dispatcher) drain() {
	for {
		select {
		case e := <-d.ch:
			d.dispatch(e)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(e Event) {
	d.mx.RLock()
	observers := d.observers
	d.mx.RUnlock()

	for _, o := range observers {
		o.Notify(e)
	}
}

// Stops dispatching after delivering buffered events.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	log.Println("shutting down notifications dispatcher")
	if d.stop == nil {
		return nil
	}

	d.stop()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
