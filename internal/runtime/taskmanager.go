package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Task represents a background task
type Task struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	Status      TaskStatus `json:"status"`
	Error       error      `json:"-"`
	cancel      context.CancelFunc
	done        chan struct{}
}

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusStopped  TaskStatus = "stopped"
	TaskStatusFailed   TaskStatus = "failed"
	TaskStatusCanceled TaskStatus = "canceled"
)

// TaskFunc is a function that runs as a background task
type TaskFunc func(ctx context.Context) error

// ErrTaskNotFound is returned for unknown task names.
var ErrTaskNotFound = errors.New("task not found")

// TaskManager owns named background goroutines. Each task gets a context
// derived from the manager's; StopAll cancels every task at once.
type TaskManager struct {
	tasks  map[string]*Task
	mu     sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewTaskManager creates a new task manager
func NewTaskManager(ctx context.Context) *TaskManager {
	ctx, cancel := context.WithCancel(ctx)
	return &TaskManager{
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches fn under name. A name still registered (running or
// finished) is rejected; Remove it first.
func (tm *TaskManager) Start(name, description string, fn TaskFunc) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.tasks[name]; exists {
		return fmt.Errorf("task %s already exists", name)
	}
	tm.launchLocked(name, description, fn)
	return nil
}

// Remove cancels and forgets a task. It returns a channel closed when the
// task's goroutine has returned; unknown names yield an already-closed channel.
func (tm *TaskManager) Remove(name string) <-chan struct{} {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	task, exists := tm.tasks[name]
	if !exists {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	task.cancel()
	delete(tm.tasks, name)
	return task.done
}

func (tm *TaskManager) launchLocked(name, description string, fn TaskFunc) {
	taskCtx, taskCancel := context.WithCancel(tm.ctx)
	task := &Task{
		Name:        name,
		Description: description,
		StartTime:   time.Now(),
		Status:      TaskStatusRunning,
		cancel:      taskCancel,
		done:        make(chan struct{}),
	}
	tm.tasks[name] = task

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		defer close(task.done)
		defer taskCancel()
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"task":  name,
					"panic": r,
				}).Error("Task panicked")
				tm.mu.Lock()
				task.Status = TaskStatusFailed
				task.Error = fmt.Errorf("panic: %v", r)
				tm.mu.Unlock()
			}
		}()

		log.WithFields(log.Fields{
			"task":        name,
			"description": description,
		}).Info("Task started")

		err := fn(taskCtx)

		tm.mu.Lock()
		defer tm.mu.Unlock()
		switch {
		case err != nil && taskCtx.Err() != nil:
			task.Status = TaskStatusCanceled
			log.WithField("task", name).Info("Task canceled")
		case err != nil:
			task.Status = TaskStatusFailed
			task.Error = err
			log.WithFields(log.Fields{
				"task":  name,
				"error": err,
			}).Error("Task failed")
		default:
			task.Status = TaskStatusStopped
			log.WithField("task", name).Info("Task stopped")
		}
	}()
}

// IsRunning reports whether name is registered and still running.
func (tm *TaskManager) IsRunning(name string) bool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, exists := tm.tasks[name]
	return exists && task.Status == TaskStatusRunning
}

// StopAll cancels every task. Use WaitTimeout to wait for them to exit.
func (tm *TaskManager) StopAll() {
	tm.cancel()
}

// WaitTimeout waits for all tasks up to d; it reports whether they finished.
func (tm *TaskManager) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		tm.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *Task) snapshot() *Task {
	return &Task{
		Name:        t.Name,
		Description: t.Description,
		StartTime:   t.StartTime,
		Status:      t.Status,
		Error:       t.Error,
	}
}

// GetTask returns a copy of a task's state.
func (tm *TaskManager) GetTask(name string) (*Task, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	task, exists := tm.tasks[name]
	if !exists {
		return nil, fmt.Errorf("task %s: %w", name, ErrTaskNotFound)
	}
	return task.snapshot(), nil
}

// ListTasks returns a copy of every registered task, ordered by name.
func (tm *TaskManager) ListTasks() []*Task {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tasks := make([]*Task, 0, len(tm.tasks))
	for _, task := range tm.tasks {
		tasks = append(tasks, task.snapshot())
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })
	return tasks
}

// TaskStats contains statistics about tasks
type TaskStats struct {
	Total    int `json:"total"`
	Running  int `json:"running"`
	Stopped  int `json:"stopped"`
	Failed   int `json:"failed"`
	Canceled int `json:"canceled"`
}

// GetStats returns statistics about tasks
func (tm *TaskManager) GetStats() TaskStats {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	stats := TaskStats{Total: len(tm.tasks)}
	for _, task := range tm.tasks {
		switch task.Status {
		case TaskStatusRunning:
			stats.Running++
		case TaskStatusStopped:
			stats.Stopped++
		case TaskStatusFailed:
			stats.Failed++
		case TaskStatusCanceled:
			stats.Canceled++
		}
	}
	return stats
}
