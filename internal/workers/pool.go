package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/aatumaykin/morningbrew/internal/logger"
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

	execMu    sync.RWMutex
	executors map[string]TaskExecutor

	stateMu sync.RWMutex
	stopped bool
}

// NewPool creates a new worker pool with the specified configuration.
func NewPool(workers int, bufferSize int, log *logger.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultPoolSize
	}
	if bufferSize <= 0 {
		bufferSize = DefaultQueueSize
	}
	if log == nil {
		log = logger.Discard()
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

// RegisterExecutor binds a task type to its executor.
func (p *WorkerPool) RegisterExecutor(taskType string, exec TaskExecutor) {
	p.execMu.Lock()
	defer p.execMu.Unlock()
	p.executors[taskType] = exec
}

// Start initializes and starts all worker goroutines.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool",
		logger.Field{Key: "workers", Value: p.workers},
		logger.Field{Key: "buffer_size", Value: cap(p.taskQueue)})

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// TrySubmit queues a task without blocking.
func (p *WorkerPool) TrySubmit(task Task) error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.taskQueue <- task:
	default:
		return ErrQueueFull
	}

	p.incrementSubmitted()
	p.logger.Debug("task submitted",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})
	return nil
}

// SubmitWithContext waits for a queue slot until ctx is done.
func (p *WorkerPool) SubmitWithContext(ctx context.Context, task Task) error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()

	if p.stopped {
		return ErrPoolStopped
	}

	select {
	case p.taskQueue <- task:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.incrementSubmitted()
	p.logger.DebugCtx(ctx, "task submitted with context",
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})
	return nil
}

// Results returns a read-only channel for receiving task results.
// Results are dropped when nobody reads them.
func (p *WorkerPool) Results() <-chan Result {
	return p.resultCh
}

// Stop stops accepting tasks, waits for in-flight tasks and then hands the
// still-queued tasks to their executors with a cancelled context so each can
// record its outcome.
func (p *WorkerPool) Stop() {
	p.stateMu.Lock()
	if p.stopped {
		p.stateMu.Unlock()
		return
	}
	p.stopped = true
	p.stateMu.Unlock()

	p.cancel()
	p.wg.Wait()

	close(p.taskQueue)
	drained := 0
	for task := range p.taskQueue {
		task.Context = p.ctx
		p.processTask(-1, task)
		drained++
	}

	metrics := p.Metrics()
	p.logger.Info("worker pool stopped",
		logger.Field{Key: "tasks_submitted", Value: metrics.TasksSubmitted},
		logger.Field{Key: "tasks_completed", Value: metrics.TasksCompleted},
		logger.Field{Key: "tasks_failed", Value: metrics.TasksFailed},
		logger.Field{Key: "tasks_drained", Value: drained})

	close(p.resultCh)
}

// WorkerCount returns the number of workers.
func (p *WorkerPool) WorkerCount() int {
	return p.workers
}

// QueueSize returns the current number of tasks waiting in the queue.
func (p *WorkerPool) QueueSize() int {
	return len(p.taskQueue)
}

func (p *WorkerPool) executor(taskType string) (TaskExecutor, error) {
	p.execMu.RLock()
	defer p.execMu.RUnlock()

	exec, ok := p.executors[taskType]
	if !ok {
		return nil, fmt.Errorf("unknown task type: %s", taskType)
	}
	return exec, nil
}

// taskWaitGroup wraps sync.WaitGroup with thread-safe metrics access.
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

// Metrics returns a snapshot of the pool counters.
func (p *WorkerPool) Metrics() PoolMetrics {
	p.wg.RLock()
	defer p.wg.RUnlock()
	return *p.metrics
}

func (p *WorkerPool) incrementSubmitted() {
	p.wg.Lock()
	defer p.wg.Unlock()
	p.metrics.TasksSubmitted++
}

// record учитывает результат задачи в счётчиках пула
func (p *WorkerPool) record(result Result) {
	p.wg.Lock()
	defer p.wg.Unlock()

	if result.Error != nil {
		p.metrics.TasksFailed++
	} else {
		p.metrics.TasksCompleted++
	}
	p.metrics.TotalDuration += result.Duration
}
