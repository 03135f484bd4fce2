package progress

import (
	"context"
	"fmt"
)

// Task runs a monitored function on its own goroutine. The caller decides how
// to stay responsive while it runs: block in Wait, or select on Finished.
type Task struct {
	monitor  *Monitor
	finished chan struct{}
	err      error
}

// Start launches fn with a fresh root monitor derived from ctx.
func Start(ctx context.Context, reporter Reporter, fn func(*Monitor) error) *Task {
	t := &Task{
		monitor:  New(ctx, reporter),
		finished: make(chan struct{}),
	}
	go func() {
		defer close(t.finished)
		defer func() {
			if r := recover(); r != nil {
				t.err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		t.err = fn(t.monitor)
		t.monitor.Done()
	}()
	return t
}

// Finished is closed once the task returned.
func (t *Task) Finished() <-chan struct{} {
	return t.finished
}

// Cancel requests cancellation. It does not wait for the task to stop.
func (t *Task) Cancel() {
	t.monitor.Cancel()
}

// Monitor exposes the task's root monitor.
func (t *Task) Monitor() *Monitor {
	return t.monitor
}

// Wait blocks until the task has returned and reports its error.
func (t *Task) Wait() error {
	<-t.finished
	return t.err
}
