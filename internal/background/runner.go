// Package background runs detached, fire-and-forget work such as session cache
// write-backs and notification publishes. Task failures never reach the
// request that scheduled them; they go to the runner's error channel and are
// logged there.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// TaskError describes a failed background task.
type TaskError struct {
	Task string
	Err  error
}

func (e TaskError) Error() string {
	return fmt.Sprintf("background task %s: %v", e.Task, e.Err)
}

type Runner struct {
	log     *zap.Logger
	timeout time.Duration

	wg     sync.WaitGroup
	errs   chan TaskError
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func NewRunner(log *zap.Logger, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	r := &Runner{
		log:     log,
		timeout: timeout,
		errs:    make(chan TaskError, 64),
		done:    make(chan struct{}),
	}
	go r.drain()
	return r
}

// Go schedules fn on its own goroutine with a fresh context bounded by the
// runner timeout. Calls after Close are dropped with a warning.
func (r *Runner) Go(name string, fn func(ctx context.Context) error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.log.Warn("background task dropped after shutdown", zap.String("task", name))
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		err := r.run(ctx, fn)
		if err != nil {
			r.errs <- TaskError{Task: name, Err: err}
		}
	}()
}

func (r *Runner) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

func (r *Runner) drain() {
	defer close(r.done)
	for te := range r.errs {
		r.log.Error("background task failed", zap.String("task", te.Task), zap.Error(te.Err))
	}
}

// Wait blocks until every scheduled task has finished. Errors reported so far
// may still be in flight to the logger; Close flushes them.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close waits for in-flight tasks, then stops the error drain.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
	close(r.errs)
	<-r.done
}
