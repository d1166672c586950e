package taskmanager

import (
	"context"
	"errors"
	"sync"

	"github.com/tokamak-network/trh-pipeline/internal/logger"
	"github.com/tokamak-network/trh-pipeline/pkg/domain/entities"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var ErrStopped = errors.New("task manager stopped")

// TaskManager runs tasks detached from whoever scheduled them. Every task gets
// the manager's own context, which is cancelled only by Stop.
type TaskManager struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// nil when the number of running tasks is unbounded
	sem *semaphore.Weighted

	mu      sync.Mutex
	stopped bool
	running int
}

// NewTaskManager returns a manager that runs at most maxConcurrent tasks at once.
// maxConcurrent <= 0 means no limit; tasks over the limit wait for a slot.
func NewTaskManager(maxConcurrent int) *TaskManager {
	ctx, cancel := context.WithCancel(context.Background())
	tm := &TaskManager{
		ctx:    ctx,
		cancel: cancel,
	}
	if maxConcurrent > 0 {
		tm.sem = semaphore.NewWeighted(int64(maxConcurrent))
	}
	return tm
}

// AddTask schedules task on its own goroutine.
func (tm *TaskManager) AddTask(task entities.Task) error {
	tm.mu.Lock()
	if tm.stopped {
		tm.mu.Unlock()
		return ErrStopped
	}
	tm.wg.Add(1)
	tm.mu.Unlock()

	go func() {
		defer tm.wg.Done()
		if tm.sem != nil {
			if err := tm.sem.Acquire(tm.ctx, 1); err != nil {
				logger.Warn("Task dropped before start", zap.Error(err))
				return
			}
			defer tm.sem.Release(1)
		}

		tm.track(1)
		defer tm.track(-1)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Task panicked", zap.Any("panic", r))
			}
		}()
		task(tm.ctx)
	}()
	return nil
}

// Running reports how many tasks are executing right now.
func (tm *TaskManager) Running() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.running
}

// Stop refuses new tasks, cancels the running ones and waits for them to return.
func (tm *TaskManager) Stop() {
	tm.mu.Lock()
	if tm.stopped {
		tm.mu.Unlock()
		return
	}
	tm.stopped = true
	tm.mu.Unlock()

	tm.cancel()
	tm.wg.Wait()
	logger.Info("All tasks stopped")
}

func (tm *TaskManager) track(delta int) {
	tm.mu.Lock()
	tm.running += delta
	tm.mu.Unlock()
}
