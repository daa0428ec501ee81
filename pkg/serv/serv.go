package serv

import (
	"context"
	"log"
	"sync"
)

type Starter interface {
	Start(context.Context) error
}

type Shutdowner interface {
	Shutdown(context.Context) error
}

type ShutdownerFunc func(context.Context) error

func (fnc ShutdownerFunc) Shutdown(ctx context.Context) error {
	return fnc(ctx)
}

// Shuts down all given services concurrently and blocks until they completed or ctx is done.
func ShutdownAll(ctx context.Context, shutdowners ...Shutdowner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(len(shutdowners))

	for _, shutdowner := range shutdowners {
		go func(shutdowner Shutdowner) {
			defer wg.Done()

			if e := shutdowner.Shutdown(ctx); e != nil {
				log.Println(e.Error())
			}
		}(shutdowner)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// block until all services completed their work or timeout
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
