package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/profsweep/internal/logger"
)

// worker is the main worker goroutine that processes tasks from the queue.
func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panic recovered",
				fmt.Errorf("panic: %v", r),
				logger.Field{Key: "worker_id", Value: id})
		}
	}()

	for {
		select {
		case task := <-p.taskQueue:
			p.processTask(id, task)

		case <-p.ctx.Done():
			return
		}
	}
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) {
	startTime := time.Now()

	execCtx := p.ctx
	if task.Context != nil {
		var cancel context.CancelFunc
		execCtx, cancel = mergeCancel(task.Context, p.ctx)
		defer cancel()
	}

	result := p.executeTask(execCtx, task)
	result.Duration = time.Since(startTime)

	if result.Error != nil {
		p.incrementFailed()
	} else {
		p.incrementCompleted()
	}
	p.recordDuration(result.Duration)

	for _, o := range p.observers {
		o(result)
	}

	p.logger.DebugCtx(execCtx, "task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()},
		logger.Field{Key: "error", Value: result.Error})

	// The result channel is drained by Collect or by the owner of Results;
	// a stopped pool drops the result.
	select {
	case p.resultCh <- result:
	case <-p.ctx.Done():
		p.logger.Warn("dropping result, pool shutting down",
			logger.Field{Key: "task_id", Value: task.ID})
	}
}

// executeTask dispatches a task to its registered executor.
func (p *WorkerPool) executeTask(ctx context.Context, task Task) Result {
	if err := ctx.Err(); err != nil {
		return Result{TaskID: task.ID, Type: task.Type, Error: err}
	}

	exec, ok := p.executors[task.Type]
	if !ok {
		return Result{
			TaskID: task.ID,
			Type:   task.Type,
			Error:  fmt.Errorf("unknown task type: %s", task.Type),
		}
	}
	return p.executeWithRecovery(ctx, task, exec)
}

// executeWithRecovery runs exec with panic recovery. If ctx ends first the
// result carries ctx.Err() and the executor is left to observe cancellation.
func (p *WorkerPool) executeWithRecovery(ctx context.Context, task Task, exec TaskExecutor) Result {
	done := make(chan struct{})
	var value any
	var err error

	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic during task execution: %v", r)
				p.logger.ErrorCtx(ctx, "task panic recovered", err,
					logger.Field{Key: "task_id", Value: task.ID})
			}
		}()

		value, err = exec(ctx, task)
	}()

	select {
	case <-done:
		return Result{TaskID: task.ID, Type: task.Type, Value: value, Error: err}
	case <-ctx.Done():
		return Result{TaskID: task.ID, Type: task.Type, Error: ctx.Err()}
	}
}

// mergeCancel returns a context derived from primary that is also canceled
// when secondary is.
func mergeCancel(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(primary)
	stop := context.AfterFunc(secondary, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
