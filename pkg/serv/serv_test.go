package serv

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestShutdownAll(t *testing.T) {
	var calls atomic.Int32

	fnc := ShutdownerFunc(func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	failing := ShutdownerFunc(func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("already closed")
	})

	if err := ShutdownAll(context.Background(), fnc, failing, fnc); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 shutdowns, got %d", calls.Load())
	}
}

func TestShutdownAllTimeout(t *testing.T) {
	hanging := ShutdownerFunc(func(ctx context.Context) error {
		time.Sleep(time.Second)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := ShutdownAll(ctx, hanging); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestShutdownAllEmpty(t *testing.T) {
	if err := ShutdownAll(context.Background()); err != nil {
		t.Errorf("unexpected error %v", err)
	}
}
