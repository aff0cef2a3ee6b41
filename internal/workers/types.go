// Package workers provides a bounded goroutine pool for fan-out work against
// many hosts. Executors are registered per task type; results come back on a
// single channel.
package workers

import (
	"context"
	"time"
)

// Task represents a unit of work to be executed by a worker.
type Task struct {
	ID      string          // Unique task identifier, usually the host name
	Type    string          // Registered executor name
	Payload any             // Executor-specific input
	Context context.Context // Task-specific context for cancellation/timeout
}

// Result represents the outcome of a task execution.
type Result struct {
	TaskID   string
	Type     string
	Value    any
	Error    error
	Duration time.Duration
}

// PoolMetrics tracks execution metrics for the worker pool.
type PoolMetrics struct {
	TasksSubmitted uint64
	TasksCompleted uint64
	TasksFailed    uint64
	TotalDuration  time.Duration
}

// TaskExecutor runs one task of a registered type.
type TaskExecutor func(context.Context, Task) (any, error)

// Observer is called once per finished task, from the worker goroutine.
type Observer func(Result)

const (
	DefaultPoolSize  = 25
	DefaultQueueSize = 100
)
