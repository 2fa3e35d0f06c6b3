// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool implements the fork-join primitives used to dispatch kernels: a pool of goroutines with
// a soft limit on parallelism, and the parallel loops built on top of it (ParallelFor5D, ParallelForN).
package workerspool

import (
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

type Pool struct {
	// maxParallelism is a soft target on the limit of parallel work to do.
	// The actual number of goroutines is higher than that -- because of waits and such.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Should be signaled whenever numRunning is decreased.
	numRunning     int

	// extraParallelism is temporarily increased when a worked goes to sleep.
	extraParallelism atomic.Int32
}

// NewWithParallelism returns a new Pool with the given maxParallelism. See Pool.SetMaxParallelism.
func NewWithParallelism(maxParallelism int) *Pool {
	w := &Pool{maxParallelism: maxParallelism}
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// IsUnlimited returns whether parallelism is unlimited (maxParallelism < 0)
func (w *Pool) IsUnlimited() bool {
	return w.maxParallelism < 0
}

// NumWorkers is the number of workers the parallel loops split their work into.
//
// Each worker of a parallel loop receives a distinct index in [0, NumWorkers()), which callers use
// to hand out per-worker resources (e.g. scratch buffers).
func (w *Pool) NumWorkers() int {
	switch {
	case w.maxParallelism == 0:
		return 1
	case w.maxParallelism < 0:
		return runtime.GOMAXPROCS(0)
	}
	return w.maxParallelism
}

const goroutineToParallelismRatio = 2

// lockedIsFull returns whether all available workers are in use.
//
// It must be called with workerPool.mu acquired.
func (w *Pool) lockedIsFull() bool {
	if w.maxParallelism == 0 {
		return true
	} else if w.maxParallelism < 0 {
		return false
	}
	return w.numRunning >= goroutineToParallelismRatio*w.maxParallelism+int(w.extraParallelism.Load())
}

// WaitToStart waits until there is a worker available to run the task.
//
// If parallelism is disabled (maxParallelism is 0), it runs the task inline and returns when it is finished.
// This is risky if one is relying on concurrency, and it can lead to deadlocks.
// Avoid using this function if the parallelism is disabled.
func (w *Pool) WaitToStart(task func()) {
	if w.IsUnlimited() {
		go task()
		return

	} else if w.maxParallelism == 0 {
		// No parallelism, run inline -- better avoided.
		task()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for w.lockedIsFull() {
		w.cond.Wait()
	}
	w.lockedRunTaskInGoroutine(task)
}

// lockedRunTaskInGoroutine and keep tabs on w.numRunning.
//
// It must be called with workerPool.mu acquired.
func (w *Pool) lockedRunTaskInGoroutine(task func()) {
	w.numRunning++
	go func() {
		task()
		w.mu.Lock()
		w.numRunning--
		w.cond.Signal()
		w.mu.Unlock()
	}()
}

// Split the range [0, total) into numWorkers balanced contiguous chunks and return the chunk [start, end) of
// the given worker.
//
// The first chunks get one more item than the last ones, if total is not divisible by numWorkers.
// Chunks of workers beyond the total are empty.
func Split(total, numWorkers, workerIdx int) (start, end int) {
	if numWorkers <= 1 || total == 0 {
		return 0, total
	}
	n1 := (total + numWorkers - 1) / numWorkers
	n2 := n1 - 1
	t1 := total - n2*numWorkers // Number of workers that get n1 items.
	if workerIdx < t1 {
		start = workerIdx * n1
		end = start + n1
	} else {
		start = t1*n1 + (workerIdx-t1)*n2
		end = start + n2
	}
	return
}

// ParallelFor5D calls body for every index tuple of the 5-dimensional space given by dims.
//
// The flat index space is split into contiguous ranges (see Split), one per worker, and each worker iterates
// its range in row-major order (the last index changes fastest). The body receives the index of the worker
// calling it: no two concurrent calls share the same workerIdx.
//
// It returns when all calls have finished.
func (w *Pool) ParallelFor5D(dims [5]int, body func(workerIdx int, indices [5]int)) {
	total := 1
	for _, dim := range dims {
		total *= dim
	}
	if total == 0 {
		return
	}
	numWorkers := min(w.NumWorkers(), total)
	if numWorkers <= 1 || !w.IsEnabled() {
		forRange5D(dims, 0, total, 0, body)
		return
	}
	var wg sync.WaitGroup
	wg.Add(numWorkers)
	for workerIdx := range numWorkers {
		start, end := Split(total, numWorkers, workerIdx)
		w.WaitToStart(func() {
			defer wg.Done()
			forRange5D(dims, start, end, workerIdx, body)
		})
	}
	wg.Wait()
}

// forRange5D iterates over the flat indices [start, end) of the 5D space dims.
func forRange5D(dims [5]int, start, end, workerIdx int, body func(workerIdx int, indices [5]int)) {
	if start >= end {
		return
	}
	var indices [5]int
	tmp := start
	for axis := 4; axis >= 0; axis-- {
		indices[axis] = tmp % dims[axis]
		tmp /= dims[axis]
	}
	for range end - start {
		body(workerIdx, indices)
		for axis := 4; axis >= 0; axis-- {
			indices[axis]++
			if indices[axis] < dims[axis] {
				break
			}
			indices[axis] = 0
		}
	}
}

// ParallelForN runs body concurrently for each of numWorkers workers, and returns the first error returned
// by any of them, after all have finished.
//
// If numWorkers <= 0, NumWorkers() is used. Each call receives its worker index and the total number of
// workers, so it can select its own share of the work -- see Split.
func (w *Pool) ParallelForN(numWorkers int, body func(workerIdx, numWorkers int) error) error {
	if numWorkers <= 0 {
		numWorkers = w.NumWorkers()
	}
	if numWorkers == 1 || !w.IsEnabled() {
		return body(0, 1)
	}
	var g errgroup.Group
	g.SetLimit(numWorkers)
	for workerIdx := range numWorkers {
		g.Go(func() error {
			return body(workerIdx, numWorkers)
		})
	}
	return g.Wait()
}
