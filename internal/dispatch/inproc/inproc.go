// Package inproc implements spec.md §5's "parallel workers, no shared
// in-memory state" concurrency model for manual-trigger dispatch: each
// enqueued invocation runs as an independent goroutine, with no state
// shared between them beyond the arguments passed in.
package inproc

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool runs each dispatched handler invocation in its own goroutine. limit
// applies to the errgroup each Dispatch call creates for its single
// invocation, so it does not bound how many invocations run at once across
// Dispatch calls; each invocation is fully independent.
type Pool struct {
	limit int
}

// NewPool builds a Pool with the given per-Dispatch group limit.
// limit<=0 sets no limit.
func NewPool(limit int) *Pool {
	return &Pool{limit: limit}
}

// Dispatch starts fn asynchronously and always returns nil. fn runs under a
// context detached from ctx's cancellation, so an already-cancelled ctx
// neither prevents nor stops it — spec.md §4.8's manual trigger orchestration returns
// 202 Accepted before fn's result is known, so fn's own error is never
// surfaced to the caller of Dispatch; it belongs to the audit record fn
// writes internally.
func (p *Pool) Dispatch(ctx context.Context, fn func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	if p.limit > 0 {
		g.SetLimit(p.limit)
	}
	g.Go(func() error {
		return fn(gctx)
	})
	return nil
}

// Wait blocks until every invocation dispatched through p has completed.
// Production callers never call Wait — the manual-trigger endpoint returns
// immediately after Dispatch — this exists for tests that need to observe
// a dispatched invocation's side effects deterministically.
type TrackedPool struct {
	Pool
	group *errgroup.Group
}

// NewTrackedPool builds a TrackedPool whose Dispatch calls can be waited on.
func NewTrackedPool(limit int) *TrackedPool {
	g := &errgroup.Group{}
	if limit > 0 {
		g.SetLimit(limit)
	}
	return &TrackedPool{Pool: Pool{limit: limit}, group: g}
}

// Dispatch runs fn under the tracked group instead of a detached one.
func (p *TrackedPool) Dispatch(ctx context.Context, fn func(ctx context.Context) error) error {
	p.group.Go(func() error {
		return fn(ctx)
	})
	return nil
}

// Wait blocks until every dispatched invocation has returned, propagating
// the first non-nil error (tests only; production never calls this).
func (p *TrackedPool) Wait() error {
	return p.group.Wait()
}
