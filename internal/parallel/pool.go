// Package parallel provides a fixed-size worker pool for bounded
// concurrent fan-out work. Adapted from the teacher's worker-pool
// family (originally sized for parallel miniKanren goal evaluation,
// alongside a dynamically-scaling pool, a work-stealing pool, and
// related statistics/deadlock-detection machinery this module never
// needed); only the static, fixed-size pool survived the trim, since
// pkg/hex/external's bounded external-atom retrieval fan-out is sized
// once from Config.MaxParallelPluginCalls and never needs to scale.
package parallel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// ErrPoolShutdown is returned by Submit once the pool has been shut
// down.
var ErrPoolShutdown = fmt.Errorf("worker pool has been shutdown")

// StaticWorkerPool is a fixed-size pool of goroutines draining a shared
// task queue. Unlike a dynamically-scaling pool, its worker count never
// changes after construction, which is the right shape for a bound like
// MaxParallelPluginCalls: a caller-chosen concurrency ceiling, not a
// target the pool should hunt for on its own.
type StaticWorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once
}

// NewStaticWorkerPool creates a worker pool with exactly maxWorkers
// goroutines. maxWorkers <= 0 defaults to runtime.NumCPU().
func NewStaticWorkerPool(maxWorkers int) *StaticWorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &StaticWorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// worker drains the task queue until the pool is shut down.
func (swp *StaticWorkerPool) worker() {
	defer swp.workerWg.Done()

	for {
		select {
		case task := <-swp.taskChan:
			if task != nil {
				task()
			}
		case <-swp.shutdownChan:
			return
		}
	}
}

// Submit enqueues a task, blocking until a slot is free, ctx is done, or
// the pool is shut down.
func (swp *StaticWorkerPool) Submit(ctx context.Context, task func()) error {
	select {
	case <-swp.shutdownChan:
		return ErrPoolShutdown
	default:
	}
	select {
	case swp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-swp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops accepting new tasks and waits for in-flight tasks to
// finish. Safe to call more than once.
func (swp *StaticWorkerPool) Shutdown() {
	swp.once.Do(func() {
		close(swp.shutdownChan)
		swp.workerWg.Wait()
	})
}

// GetWorkerCount returns the pool's fixed worker count.
func (swp *StaticWorkerPool) GetWorkerCount() int {
	return swp.maxWorkers
}

// GetQueueDepth returns the number of tasks currently queued but not yet
// picked up by a worker.
func (swp *StaticWorkerPool) GetQueueDepth() int {
	return len(swp.taskChan)
}
