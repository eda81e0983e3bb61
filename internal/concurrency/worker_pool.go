package concurrency

import (
	"context"
	"sync"
)

// WorkerFn handles the task at index.
type WorkerFn func(ctx context.Context, index int) error

// SimpleWorkerPool runs fn for every index in [0, tasks) on at most
// concurrency goroutines. After the first error no new tasks start; the
// first error is returned once all running tasks have finished.
func SimpleWorkerPool(ctx context.Context, concurrency int, tasks int, fn WorkerFn) error {
	if tasks <= 0 {
		return nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > tasks {
		concurrency = tasks
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	indexes := make(chan int)
	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range indexes {
				if err := fn(ctx, idx); err != nil {
					once.Do(func() {
						firstErr = err
						cancel()
					})
				}
			}
		}()
	}

feed:
	for i := 0; i < tasks; i++ {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	return ctx.Err()
}
