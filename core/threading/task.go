package threading

import (
	"sync/atomic"
)

type (
	// Task is a unit of work processed by a Worker.
	Task interface {
		GetID() string
		Process()
	}

	// BaseTask is the basic structure for a Task interface.
	BaseTask struct {
		ID string
	}

	// TaskEntry tracks the lifecycle of a submitted task.
	TaskEntry struct {
		task      Task
		done      atomic.Bool
		cancelled atomic.Bool
	}

	// TaskCancelFunc is used to cancel the execution of a task. Return false if task has been done.
	TaskCancelFunc func() bool
)

func (bt *BaseTask) GetID() string { return bt.ID }

func NewTaskEntry(task Task) *TaskEntry {
	return &TaskEntry{task: task}
}

func (te *TaskEntry) Complete()          { te.done.Store(true) }
func (te *TaskEntry) IsCompleted() bool  { return te.done.Load() }
func (te *TaskEntry) IsCanceled() bool   { return te.cancelled.Load() }
func (te *TaskEntry) IsIgnoreable() bool { return te.cancelled.Load() || te.done.Load() }

func (te *TaskEntry) Cancel() bool {
	if !te.done.Load() {
		te.done.Store(true)
		te.cancelled.Store(true)
		return true
	}
	return false
}
