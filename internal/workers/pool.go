package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/aatumaykin/profsweep/internal/logger"
)

// WorkerPool manages a pool of goroutine workers for concurrent task execution.
type WorkerPool struct {
	taskQueue chan Task
	resultCh  chan Result
	workers   int
	wg        *taskWaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *logger.Logger
	metrics   *PoolMetrics
	executors map[string]TaskExecutor
	observers []Observer
	stopOnce  sync.Once
}

// NewPool creates a worker pool. Non-positive sizes fall back to defaults.
func NewPool(workers int, bufferSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultPoolSize
	}
	if bufferSize <= 0 {
		bufferSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		taskQueue: make(chan Task, bufferSize),
		resultCh:  make(chan Result, bufferSize),
		workers:   workers,
		wg:        newTaskWaitGroup(),
		ctx:       ctx,
		cancel:    cancel,
		logger:    log,
		metrics:   &PoolMetrics{},
		executors: make(map[string]TaskExecutor),
	}
}

// Register binds an executor to a task type. Call before Start.
func (p *WorkerPool) Register(taskType string, exec TaskExecutor) {
	p.executors[taskType] = exec
}

// Observe adds a hook run after every task. Call before Start.
func (p *WorkerPool) Observe(o Observer) {
	p.observers = append(p.observers, o)
}

// Start initializes and starts all worker goroutines.
func (p *WorkerPool) Start() {
	p.logger.Debug("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit sends a task to the worker pool for execution.
// It blocks if the task queue is full.
func (p *WorkerPool) Submit(task Task) {
	p.incrementSubmitted()

	p.logger.DebugCtx(p.ctx, "task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	p.taskQueue <- task
}

// SubmitWithContext attempts to submit a task until ctx is done.
func (p *WorkerPool) SubmitWithContext(ctx context.Context, task Task) error {
	select {
	case p.taskQueue <- task:
		p.incrementSubmitted()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool stopped: %w", p.ctx.Err())
	}
}

// Results returns a read-only channel for receiving task results.
func (p *WorkerPool) Results() <-chan Result {
	return p.resultCh
}

// Collect submits every task and blocks until each has produced exactly one
// result. Tasks that cannot be submitted get a result carrying the submit
// error. Results are returned in completion order. If the pool is stopped
// midway the results gathered so far are returned.
func (p *WorkerPool) Collect(ctx context.Context, tasks []Task) []Result {
	if len(tasks) == 0 {
		return nil
	}

	rejected := make(chan Result, len(tasks))
	go func() {
		for _, t := range tasks {
			if t.Context == nil {
				t.Context = ctx
			}
			if err := p.SubmitWithContext(ctx, t); err != nil {
				rejected <- Result{TaskID: t.ID, Type: t.Type, Error: err}
			}
		}
	}()

	results := make([]Result, 0, len(tasks))
	for len(results) < len(tasks) {
		select {
		case r := <-p.resultCh:
			results = append(results, r)
		case r := <-rejected:
			results = append(results, r)
		case <-p.ctx.Done():
			return results
		}
	}
	return results
}

// Stop cancels the workers and waits for them to exit. In-flight executors
// see their context canceled. Stop is idempotent.
func (p *WorkerPool) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()

		metrics := p.Metrics()
		p.logger.Debug("worker pool stopped",
			logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
			logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
			logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed})
	})
}

// WorkerCount returns the number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// QueueSize returns the current number of tasks waiting in the queue.
func (p *WorkerPool) QueueSize() int {
	return len(p.taskQueue)
}

// taskWaitGroup pairs the worker WaitGroup with the metrics lock.
type taskWaitGroup struct {
	sync.RWMutex
	wg sync.WaitGroup
}

func newTaskWaitGroup() *taskWaitGroup {
	return &taskWaitGroup{}
}

func (twg *taskWaitGroup) Add(delta int) {
	twg.wg.Add(delta)
}

func (twg *taskWaitGroup) Done() {
	twg.wg.Done()
}

func (twg *taskWaitGroup) Wait() {
	twg.wg.Wait()
}
