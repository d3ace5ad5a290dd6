// Package asyncx provides the small set of concurrency primitives this
// repository needs: a promise-shaped Deferred handle for callers that must
// be handed something awaitable before the outcome is known, a bounded
// worker Pool for fanning lookups out without unbounded goroutines, and a
// Retry loop for flaky startup dependencies. Everything is context-aware.
package asyncx

import (
	"context"
	"sync"
)

// result holds the settled outcome of an async operation.
type result[T any] struct {
	value T
	err   error
}

// ─── Deferred ─────────────────────────────────────────────────────────────────

// Deferred represents a value that will be resolved or rejected later by
// code other than whatever holds the Deferred itself: it is created empty
// and settled exactly once, possibly before any work to produce the value
// has even started (a queued wait, not a dispatched one).
type Deferred[T any] struct {
	ch       chan result[T]
	res      *result[T]
	mu       sync.Mutex
	settleMu sync.Mutex
	settled  bool
}

// NewDeferred creates an unresolved Deferred.
func NewDeferred[T any]() *Deferred[T] {
	return &Deferred[T]{ch: make(chan result[T], 1)}
}

// Resolve settles the Deferred with a value. A Deferred can be settled
// exactly once; later calls to Resolve or Reject are no-ops.
func (d *Deferred[T]) Resolve(v T) {
	d.settle(result[T]{value: v})
}

// Reject settles the Deferred with an error.
func (d *Deferred[T]) Reject(err error) {
	var zero T
	d.settle(result[T]{value: zero, err: err})
}

func (d *Deferred[T]) settle(r result[T]) {
	d.settleMu.Lock()
	defer d.settleMu.Unlock()
	if d.settled {
		return
	}
	d.settled = true
	d.ch <- r
}

// Await blocks until the Deferred is settled and returns its value and
// error. Safe to call multiple times, and from multiple goroutines —
// every caller after the first resolution observes the cached result.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.res != nil {
		return d.res.value, d.res.err
	}
	select {
	case r := <-d.ch:
		d.res = &r
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// ─── Pool ─────────────────────────────────────────────────────────────────────

// Pool processes items using at most workers goroutines and returns results
// in the original order. The first error encountered is returned, after
// every worker has finished, so goroutines are never leaked.
func Pool[T any, R any](
	ctx context.Context,
	workers int,
	items []T,
	fn func(context.Context, T) (R, error),
) ([]R, error) {
	if workers <= 0 {
		workers = 1
	}

	type indexed struct {
		i    int
		item T
	}

	work := make(chan indexed, len(items))
	for i, item := range items {
		work <- indexed{i: i, item: item}
	}
	close(work)

	results := make([]R, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for w := range work {
				select {
				case <-ctx.Done():
					errs[w.i] = ctx.Err()
					return
				default:
					results[w.i], errs[w.i] = fn(ctx, w.item)
				}
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// ─── Retry ────────────────────────────────────────────────────────────────────

// Retry calls fn up to attempts times, returning as soon as fn succeeds.
// Returns the last error if every attempt fails, or the context's error if
// it is cancelled between attempts.
func Retry[T any](ctx context.Context, attempts int, fn func(context.Context) (T, error)) (T, error) {
	var (
		zero T
		err  error
		val  T
	)
	for range attempts {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}
		val, err = fn(ctx)
		if err == nil {
			return val, nil
		}
	}
	return zero, err
}
