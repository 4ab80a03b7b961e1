package inproc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestTrackedPool_RunsDispatchedWorkConcurrently(t *testing.T) {
	pool := NewTrackedPool(4)
	var count int32

	for i := 0; i < 10; i++ {
		if err := pool.Dispatch(context.Background(), func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}

	if err := pool.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 10 {
		t.Fatalf("expected all 10 dispatched tasks to run, got %d", count)
	}
}

func TestTrackedPool_PropagatesFirstError(t *testing.T) {
	pool := NewTrackedPool(2)
	boom := errors.New("boom")

	_ = pool.Dispatch(context.Background(), func(ctx context.Context) error { return nil })
	_ = pool.Dispatch(context.Background(), func(ctx context.Context) error { return boom })

	if err := pool.Wait(); err == nil {
		t.Fatal("expected an error from Wait")
	}
}

func TestPool_DispatchReturnsImmediately(t *testing.T) {
	pool := NewPool(1)
	done := make(chan struct{})
	if err := pool.Dispatch(context.Background(), func(ctx context.Context) error {
		<-done
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	close(done)
}
