package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/aatumaykin/morningbrew/internal/logger"
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

	p.logger.DebugCtx(p.ctx, "worker started",
		logger.Field{Key: "worker_id", Value: id})

	for {
		select {
		case <-p.ctx.Done():
			p.logger.DebugCtx(p.ctx, "worker stopping",
				logger.Field{Key: "worker_id", Value: id})
			return

		case task := <-p.taskQueue:
			if p.ctx.Err() != nil {
				// пул останавливается: задача только фиксирует свой исход
				task.Context = p.ctx
			}
			p.processTask(id, task)
		}
	}
}

// processTask handles a single task execution with metrics and error handling.
func (p *WorkerPool) processTask(workerID int, task Task) {
	startTime := time.Now()

	p.logger.Debug("processing task",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "task_type", Value: task.Type})

	// Контекст задачи не зависит от пула: остановка пула не обрывает задачу
	execCtx := p.ctx
	if task.Context != nil {
		execCtx = task.Context
	}

	result := p.executeTask(execCtx, task)
	result.Duration = time.Since(startTime)

	p.record(result)

	select {
	case p.resultCh <- result:
	default:
		p.logger.Debug("result dropped, nobody is reading",
			logger.Field{Key: "task_id", Value: task.ID})
	}

	p.logger.Debug("task processed",
		logger.Field{Key: "worker_id", Value: workerID},
		logger.Field{Key: "task_id", Value: task.ID},
		logger.Field{Key: "duration_ms", Value: result.Duration.Milliseconds()},
		logger.Field{Key: "failed", Value: result.Error != nil})
}

// executeTask runs the executor for the task type and turns a panic into an error.
func (p *WorkerPool) executeTask(ctx context.Context, task Task) (result Result) {
	result.TaskID = task.ID

	exec, err := p.executor(task.Type)
	if err != nil {
		result.Error = err
		return result
	}

	defer func() {
		if r := recover(); r != nil {
			result.Error = fmt.Errorf("panic during task execution: %v", r)
			p.logger.ErrorCtx(ctx, "task panic recovered", result.Error,
				logger.Field{Key: "task_id", Value: task.ID})
		}
	}()

	result.Output, result.Error = exec(ctx, task)
	return result
}
