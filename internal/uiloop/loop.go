// Package uiloop runs functions one at a time on a dedicated goroutine.
//
// State that is not safe for concurrent use, such as a saveables registry,
// is owned by a Loop: every access is submitted to it and therefore runs on
// the loop goroutine, in submission order.
package uiloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned when work is submitted to a closed loop.
var ErrClosed = errors.New("uiloop: loop closed")

// ErrBusy is returned by TryPost when the queue is full.
var ErrBusy = errors.New("uiloop: queue full")

// Loop is a single-writer executor.
type Loop struct {
	work chan func()
	quit chan struct{}
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

// New starts a loop with a queue of the given size.
func New(queue int) *Loop {
	l := &Loop{
		work: make(chan func(), queue),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case fn := <-l.work:
			fn()
		case <-l.quit:
			for {
				select {
				case fn := <-l.work:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Post queues fn without waiting for it.
func (l *Loop) Post(fn func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	l.work <- fn
	return nil
}

// TryPost queues fn if there is room and never blocks, so it is safe to
// call from the loop goroutine.
func (l *Loop) TryPost(fn func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrClosed
	}
	select {
	case l.work <- fn:
		return nil
	default:
		return ErrBusy
	}
}

// Do runs fn on the loop and waits for it to return. A panic in fn is
// returned as an error. If ctx ends before fn started, fn is skipped. Do
// must not be called from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	var once sync.Once
	started := make(chan struct{})
	skipped := false
	var skipMu sync.Mutex

	err := l.Post(func() {
		skipMu.Lock()
		if skipped {
			skipMu.Unlock()
			return
		}
		once.Do(func() { close(started) })
		skipMu.Unlock()
		result <- call(fn)
	})
	if err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		skipMu.Lock()
		select {
		case <-started:
			skipMu.Unlock()
			return <-result
		default:
			skipped = true
			skipMu.Unlock()
			return ctx.Err()
		}
	}
}

// Close stops accepting work, runs what is queued and waits for the loop
// goroutine to exit.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.closed = true
	close(l.quit)
	l.mu.Unlock()
	<-l.done
}

func call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic on ui loop: %w", e)
				return
			}
			err = fmt.Errorf("panic on ui loop: %v", r)
		}
	}()
	return fn()
}
