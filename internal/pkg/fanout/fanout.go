// Package fanout runs bounded-parallelism work over a slice of items.
//
// It submits each item's work to the shared thoughtweave pool manager and
// falls back to a plain goroutine when the pool rejects the submission, the
// same degrade-to-goroutine pattern used by storage.Manager.HealthCheckAll
// in the wider kart-io stack.
package fanout

import (
	"context"
	"sync"

	"github.com/kart-io/thoughtweave/pkg/infra/pool"
)

// Map runs fn(items[i]) for every index concurrently, bounded by poolType,
// and returns the results in input order. A panic inside fn is not
// recovered here; callers that need per-item error handling should capture
// the error inside the result type R.
func Map[T any, R any](ctx context.Context, poolType pool.PoolType, items []T, fn func(context.Context, T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}

	p, err := pool.GetByType(poolType)
	usePool := err == nil && p != nil

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		idx, it := i, item
		task := func() {
			defer wg.Done()
			results[idx] = fn(ctx, it)
		}

		if usePool {
			if submitErr := p.Submit(task); submitErr != nil {
				go task()
			}
		} else {
			go task()
		}
	}
	wg.Wait()

	return results
}

// MapBounded behaves like Map but additionally caps in-flight goroutines at
// maxConcurrency regardless of pool availability, using a buffered
// semaphore channel. Used where an unbounded goroutine fallback would be
// unacceptable, e.g. decrypting an entire conversation history at once.
func MapBounded[T any, R any](ctx context.Context, poolType pool.PoolType, maxConcurrency int, items []T, fn func(context.Context, T) R) []R {
	results := make([]R, len(items))
	if len(items) == 0 {
		return results
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}

	p, err := pool.GetByType(poolType)
	usePool := err == nil && p != nil

	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		sem <- struct{}{}
		idx, it := i, item
		task := func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			results[idx] = fn(ctx, it)
		}

		if usePool {
			if submitErr := p.Submit(task); submitErr != nil {
				go task()
			}
		} else {
			go task()
		}
	}
	wg.Wait()

	return results
}
