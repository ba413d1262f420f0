// Package fanout provides generic concurrency helpers for application-layer
// orchestration. Run fans a function out across a slice of items with a fixed
// number of workers; Settle starts a set of calls together and waits for all
// of them, which is how hook phases are dispatched. Both preserve input order
// in their results and turn a panicking call into an error result.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrPanic wraps the value recovered from a panicking call.
var ErrPanic = errors.New("fanout: call panicked")

// Result holds the outcome of processing a single item.
// Either Value is populated (on success) or Err is non-nil (on failure).
type Result[R any] struct {
	Value R
	Err   error
}

// Run executes fn for each item in items using at most maxWorkers concurrent
// goroutines. Results are returned in the same order as the input items.
//
// If ctx is canceled while a goroutine is waiting for a semaphore slot,
// that goroutine records ctx.Err() and does not call fn. Goroutines that
// have already acquired a slot run to completion (fn is responsible for
// checking ctx internally if it supports cancellation).
//
// Run blocks until all goroutines complete. If items is empty, it returns
// an empty non-nil slice immediately. maxWorkers below 1 is treated as 1.
func Run[T, R any](ctx context.Context, maxWorkers int, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	if len(items) == 0 {
		return []Result[R]{}
	}

	results := make([]Result[R], len(items))
	sem := make(chan struct{}, max(maxWorkers, 1))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(idx int, it T) {
			defer wg.Done()

			// Context-aware semaphore acquisition.
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = Result[R]{Err: ctx.Err()}
				return
			}

			results[idx] = call(ctx, func(ctx context.Context) (R, error) { return fn(ctx, it) })
		}(i, item)
	}

	wg.Wait()
	return results
}

// Settle starts every fn at once and blocks until all of them have returned.
// Unlike Run it never skips a call because ctx is done: every fn is
// attempted, and observes ctx itself.
func Settle[R any](ctx context.Context, fns []func(context.Context) (R, error)) []Result[R] {
	results := make([]Result[R], len(fns))
	var wg sync.WaitGroup

	for i, fn := range fns {
		wg.Go(func() {
			results[i] = call(ctx, fn)
		})
	}

	wg.Wait()
	return results
}

// Errors joins the non-nil errors of results in input order, or returns nil.
func Errors[R any](results []Result[R]) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
	}
	return errors.Join(errs...)
}

func call[R any](ctx context.Context, fn func(context.Context) (R, error)) (res Result[R]) {
	defer func() {
		if p := recover(); p != nil {
			res = Result[R]{Err: fmt.Errorf("%w: %v", ErrPanic, p)}
		}
	}()
	v, err := fn(ctx)
	return Result[R]{Value: v, Err: err}
}
