// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package snippets

import (
	"sync"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/snippets/internal/workerspool"
	"github.com/gomlx/snippets/pkg/snippets/kernel"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// dynamicChunkSize is the number of harness iterations claimed at a time with PartitioningDynamic.
const dynamicChunkSize = 16

// scheduler dispatches kernels over an execution domain using the worker pool.
type scheduler struct {
	pool         *workerspool.Pool
	partitioning Partitioning
	lanes        int

	// scratch is the broadcast scratch of all workers, allocated once on first use.
	scratch []float32

	// workerArgs are the per-worker copies of the call arguments used with scratch, reused across calls.
	workerArgs []kernel.CallArgs
}

func newScheduler(pool *workerspool.Pool, partitioning Partitioning, lanes int) *scheduler {
	return &scheduler{pool: pool, partitioning: partitioning, lanes: lanes}
}

// selectStrategy picks the strategy for a configuration.
func selectStrategy(cfg *Configuration, forceFlattened bool) (Strategy, error) {
	if cfg.Dynamic {
		if cfg.TensorRank != kernel.Rank6D {
			return StrategyParallel6D, errors.Wrapf(ErrRankLimit, "dynamic configurations support only rank %d, got rank %d",
				kernel.Rank6D, cfg.TensorRank)
		}
		if cfg.HasBroadcast() {
			return StrategyParallel6DScratch, nil
		}
		return StrategyParallel6D, nil
	}
	if cfg.TensorRank == kernel.Rank6D && !forceFlattened {
		return StrategyParallel6D, nil
	}
	return StrategyFlattenedND, nil
}

// panicCollector keeps the first panic raised by a kernel call in any worker.
type panicCollector struct {
	failed atomic.Bool
	once   sync.Once
	err    error
}

// call runs fn, converting a panic into the collected error. It returns false if any call failed so far.
func (pc *panicCollector) call(fn func()) bool {
	if pc.failed.Load() {
		return false
	}
	exception := exceptions.Try(fn)
	if exception == nil {
		return true
	}
	pc.once.Do(func() {
		if err, ok := exception.(error); ok {
			pc.err = errors.WithMessage(err, "kernel panicked")
		} else {
			pc.err = errors.Errorf("kernel panicked: %v", exception)
		}
		pc.failed.Store(true)
	})
	return false
}

// run dispatches the schedule's kernel with the given strategy.
func (s *scheduler) run(strategy Strategy, schedule *kernel.Schedule, cfg *Configuration, args *kernel.CallArgs) error {
	switch strategy {
	case StrategyParallel6D:
		return s.parallel6D(schedule, args)
	case StrategyParallel6DScratch:
		return s.parallel6DScratch(schedule, cfg, args)
	case StrategyFlattenedND:
		return s.flattenedND(schedule, args)
	}
	return errors.Errorf("unknown strategy %s", strategy)
}

func execDomain5D(schedule *kernel.Schedule) (dims [5]int) {
	copy(dims[:], schedule.ExecDomain[:5])
	return
}

// parallel6D calls the kernel once per index tuple of the 5 outer dimensions, sharing args.
func (s *scheduler) parallel6D(schedule *kernel.Schedule, args *kernel.CallArgs) error {
	if len(schedule.ExecDomain) != kernel.Rank6D {
		return errors.Wrapf(ErrRankLimit, "%s requires a rank-%d domain, got %v", StrategyParallel6D, kernel.Rank6D, schedule.ExecDomain)
	}
	var pc panicCollector
	k := schedule.Kernel
	s.pool.ParallelFor5D(execDomain5D(schedule), func(_ int, idx [5]int) {
		indices := [5]int64{int64(idx[0]), int64(idx[1]), int64(idx[2]), int64(idx[3]), int64(idx[4])}
		pc.call(func() { k(indices[:], args) })
	})
	return pc.err
}

// parallel6DScratch is parallel6D where each worker uses its own copy of args, pointing to its own
// slice of the scratch.
func (s *scheduler) parallel6DScratch(schedule *kernel.Schedule, cfg *Configuration, args *kernel.CallArgs) error {
	if len(schedule.ExecDomain) != kernel.Rank6D {
		return errors.Wrapf(ErrRankLimit, "%s requires a rank-%d domain, got %v", StrategyParallel6DScratch, kernel.Rank6D, schedule.ExecDomain)
	}
	numWorkers := s.pool.NumWorkers()
	scratchSize := s.lanes * len(cfg.Inputs)
	if len(s.scratch) < numWorkers*scratchSize {
		s.scratch = make([]float32, numWorkers*scratchSize)
		klog.V(1).Infof("snippets: allocated broadcast scratch of %s for %d workers",
			humanize.IBytes(uint64(len(s.scratch))*4), numWorkers)
	}
	if len(s.workerArgs) < numWorkers {
		s.workerArgs = make([]kernel.CallArgs, numWorkers)
	}
	perWorkerArgs := s.workerArgs[:numWorkers]
	for workerIdx := range perWorkerArgs {
		perWorkerArgs[workerIdx] = *args
		start := workerIdx * scratchSize
		perWorkerArgs[workerIdx].Scratch = s.scratch[start : start+scratchSize : start+scratchSize]
	}

	var pc panicCollector
	k := schedule.Kernel
	s.pool.ParallelFor5D(execDomain5D(schedule), func(workerIdx int, idx [5]int) {
		indices := [5]int64{int64(idx[0]), int64(idx[1]), int64(idx[2]), int64(idx[3]), int64(idx[4])}
		pc.call(func() { k(indices[:], &perWorkerArgs[workerIdx]) })
	})
	return pc.err
}

// flattenedND flattens the harness dimensions (all but the innermost) into HarnessWorkAmount units,
// partitioned among the workers, and rebuilds the index tuple of each unit least significant axis first.
func (s *scheduler) flattenedND(schedule *kernel.Schedule, args *kernel.CallArgs) error {
	domain := schedule.ExecDomain
	numIndices := len(domain) - 1
	total := schedule.HarnessWorkAmount
	if total == 0 {
		return nil
	}
	k := schedule.Kernel
	var pc panicCollector
	callRange := func(indices []int64, start, end int) bool {
		for iwork := start; iwork < end; iwork++ {
			tmp := iwork
			for axis := numIndices - 1; axis >= 0; axis-- {
				indices[axis] = int64(tmp % domain[axis])
				tmp /= domain[axis]
			}
			if !pc.call(func() { k(indices, args) }) {
				return false
			}
		}
		return true
	}

	numWorkers := min(s.pool.NumWorkers(), total)
	var next atomic.Int64
	err := s.pool.ParallelForN(numWorkers, func(workerIdx, numWorkers int) error {
		indices := make([]int64, numIndices)
		if s.partitioning == PartitioningStatic {
			start, end := workerspool.Split(total, numWorkers, workerIdx)
			callRange(indices, start, end)
			return nil
		}
		for {
			start := int(next.Add(dynamicChunkSize)) - dynamicChunkSize
			if start >= total {
				return nil
			}
			if !callRange(indices, start, min(start+dynamicChunkSize, total)) {
				return nil
			}
		}
	})
	if pc.err != nil {
		return pc.err
	}
	return err
}
