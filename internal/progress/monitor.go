// Package progress provides cancellable progress monitors for long running
// work such as saving documents.
//
// A Monitor is bound to a context: cancelling the context (or calling
// Cancel) marks the monitor cancelled, and work is expected to poll
// Cancelled between units. Monitors can be split into children that
// account for a fixed number of the parent's units.
package progress

import (
	"context"
	"sync"
)

// Update is delivered to a Reporter whenever a monitor's state changes.
type Update struct {
	Task   string
	Worked int
	Total  int
	Done   bool
}

// Reporter receives progress updates. It is called synchronously from the
// goroutine doing the work.
type Reporter func(Update)

// Monitor tracks progress of one unit of work.
type Monitor struct {
	ctx      context.Context
	cancel   context.CancelFunc
	reporter Reporter

	parent      *Monitor
	parentTicks int
	reported    int

	mu     sync.Mutex
	task   string
	total  int
	worked int
	done   bool
}

// New creates a root monitor. The reporter may be nil.
func New(ctx context.Context, reporter Reporter) *Monitor {
	ctx, cancel := context.WithCancel(ctx)
	return &Monitor{ctx: ctx, cancel: cancel, reporter: reporter}
}

// Context returns the context that governs cancellation of this monitor.
func (m *Monitor) Context() context.Context {
	if m == nil {
		return context.Background()
	}
	return m.ctx
}

// Cancelled reports whether the work should stop.
func (m *Monitor) Cancelled() bool {
	if m == nil {
		return false
	}
	return m.ctx.Err() != nil
}

// Cancel requests cancellation of this monitor and all of its children.
func (m *Monitor) Cancel() {
	if m == nil {
		return
	}
	m.cancel()
}

// Begin names the task and sets the number of units it consists of.
func (m *Monitor) Begin(task string, total int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.task = task
	m.total = total
	m.worked = 0
	m.done = false
	m.mu.Unlock()
	m.report()
}

// Worked records n completed units.
func (m *Monitor) Worked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.worked += n
	if m.total > 0 && m.worked > m.total {
		m.worked = m.total
	}
	m.mu.Unlock()
	m.report()
}

// Done marks the work as finished. For a child monitor, any of the parent's
// units not yet accounted for are credited to the parent and the child's
// context is released; the parent's is left alone.
func (m *Monitor) Done() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	if m.total > 0 {
		m.worked = m.total
	}
	m.mu.Unlock()
	m.report()
	if m.parent != nil {
		m.cancel()
	}
}

// Split returns a child monitor representing ticks of this monitor's units.
// The child shares this monitor's cancellation.
func (m *Monitor) Split(ticks int) *Monitor {
	if m == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(m.ctx)
	return &Monitor{
		ctx:         ctx,
		cancel:      cancel,
		reporter:    m.reporter,
		parent:      m,
		parentTicks: ticks,
	}
}

// Snapshot returns the current state of the monitor.
func (m *Monitor) Snapshot() Update {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Update{Task: m.task, Worked: m.worked, Total: m.total, Done: m.done}
}

func (m *Monitor) report() {
	u := m.Snapshot()
	if m.parent != nil {
		m.propagate(u)
		return
	}
	if m.reporter != nil {
		m.reporter(u)
	}
}

// propagate converts the child's progress into parent units.
func (m *Monitor) propagate(u Update) {
	var owed int
	switch {
	case u.Done:
		owed = m.parentTicks
	case u.Total > 0:
		owed = u.Worked * m.parentTicks / u.Total
	}
	delta := owed - m.reported
	if delta <= 0 {
		return
	}
	m.reported = owed
	m.parent.Worked(delta)
}
