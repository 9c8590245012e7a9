// Package worker provides a bounded pool for per-file work. Results come
// back indexed by input position, so callers can consume them in the
// original input order even though execution is concurrent.
package worker

import (
	"context"
	"sync"
)

// Result pairs an input with its outcome.
type Result[T any, R any] struct {
	Input  T
	Output R
	Err    error
}

// ProcessFunc processes a single input.
type ProcessFunc[T any, R any] func(ctx context.Context, input T) (R, error)

// Pool runs inputs through a fixed number of workers.
type Pool[T any, R any] struct {
	workers int
	process ProcessFunc[T, R]
}

// NewPool creates a pool with the given concurrency.
func NewPool[T any, R any](workers int, fn ProcessFunc[T, R]) *Pool[T, R] {
	if workers < 1 {
		workers = 1
	}
	return &Pool[T, R]{workers: workers, process: fn}
}

// Execute runs all inputs and returns their results in input order.
// Cancelling the context stops the dispatch of further inputs.
func (p *Pool[T, R]) Execute(ctx context.Context, inputs []T) []Result[T, R] {
	results := make([]Result[T, R], len(inputs))
	indexes := make(chan int, len(inputs))

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case idx, ok := <-indexes:
					if !ok {
						return
					}
					output, err := p.process(ctx, inputs[idx])
					results[idx] = Result[T, R]{Input: inputs[idx], Output: output, Err: err}
				}
			}
		}()
	}

	for i := range inputs {
		select {
		case <-ctx.Done():
		case indexes <- i:
		}
	}
	close(indexes)

	wg.Wait()
	return results
}
