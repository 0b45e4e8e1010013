package parallel

import (
	"runtime"
	"sync"
)

type (
	// WorkerFunc schedules a job. It may block until a worker is free.
	WorkerFunc func(func())
	// WaitFunc blocks until every scheduled job is done. With done set no
	// further jobs are accepted.
	WaitFunc   func(done bool)
	CancelFunc func()
)

// Pool runs jobs on a fixed number of goroutines.
type Pool struct {
	wg      sync.WaitGroup
	workers int
	Do      WorkerFunc
	Wait    WaitFunc
	Cancel  CancelFunc
}

// Start launches numWorkers goroutines, or GOMAXPROCS of them when
// numWorkers is below 1. A pool of one runs jobs inline on the caller.
func Start(numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}

	pool := &Pool{
		workers: numWorkers,
		Do: func(f func()) {
			f()
		},
		Wait:   func(bool) {},
		Cancel: func() {},
	}
	if numWorkers == 1 {
		return pool
	}

	jobs := make(chan func(), numWorkers)
	for range numWorkers {
		pool.wg.Go(func() {
			for f := range jobs {
				f()
			}
		})
	}

	pool.Do = func(f func()) {
		jobs <- f
	}
	pool.Cancel = sync.OnceFunc(func() { close(jobs) })
	pool.Wait = func(done bool) {
		if done {
			pool.Cancel()
		}
		pool.wg.Wait()
	}

	return pool
}

func (p *Pool) Workers() int {
	return p.workers
}
