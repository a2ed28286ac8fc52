package parallel

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/dd0wney/cluso-vortex/pkg/logging"
)

// WorkerPool runs submitted tasks on a fixed set of goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu

	panics  atomic.Int64
	onPanic func(recovered any)
	logger  logging.Logger
}

// ErrTooManyWorkers is returned when the worker count exceeds MaxWorkers.
var ErrTooManyWorkers = errors.New("worker count exceeds maximum")

// MaxWorkers caps the number of workers in a pool.
const MaxWorkers = 1024

// Option configures a WorkerPool.
type Option func(*WorkerPool)

// WithPanicHandler registers fn to be called, on the worker goroutine, with
// the value of every recovered task panic.
func WithPanicHandler(fn func(recovered any)) Option {
	return func(wp *WorkerPool) { wp.onPanic = fn }
}

// NewWorkerPool starts a pool with the given number of workers. Non-positive
// counts start one worker. A nil logger discards output.
func NewWorkerPool(workers int, logger logging.Logger, opts ...Option) (*WorkerPool, error) {
	if workers <= 0 {
		workers = 1
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2),
		logger:    logger.With(logging.Component("worker_pool")),
	}
	for _, opt := range opts {
		opt(pool)
	}

	pool.start()
	return pool, nil
}

func (wp *WorkerPool) start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		wp.run(id, task)
	}
}

// run executes one task, recovering a panic so the worker survives it.
func (wp *WorkerPool) run(id int, task func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		wp.panics.Add(1)
		wp.logger.Warn("worker panic recovered",
			logging.Int("worker", id),
			logging.Any("panic", fmt.Sprint(r)),
			logging.String("stack", string(debug.Stack())))
		if wp.onPanic != nil {
			wp.onPanic(r)
		}
	}()
	task()
}

// Submit queues a task, blocking while the queue is full. It returns false
// once the pool is closed.
func (wp *WorkerPool) Submit(task func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		return false
	}
	wp.taskQueue <- task
	return true
}

// Close stops accepting tasks and waits for queued ones to finish.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}

// Wait drains the pool. The pool cannot be used afterwards.
func (wp *WorkerPool) Wait() {
	wp.Close()
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.workers }

// Panics returns the number of task panics recovered so far.
func (wp *WorkerPool) Panics() int64 { return wp.panics.Load() }
