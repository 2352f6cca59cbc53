package utils

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// StoppableWorkers owns a group of goroutines that share one cancellable context, such as the
// config watcher running beside the terminal viewer.
type StoppableWorkers struct {
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	firstErr  error
	errRecord sync.Once
}

// NewStoppableWorkers derives a cancellable context from parent and starts each function in its
// own goroutine.
func NewStoppableWorkers(parent context.Context, funcs ...func(context.Context) error) *StoppableWorkers {
	ctx, cancel := context.WithCancel(parent)
	sw := &StoppableWorkers{ctx: ctx, cancel: cancel}
	sw.Add(funcs...)
	return sw
}

// Add starts more workers. It is a no-op once Stop was called. The first non-nil error returned
// by any worker cancels the others and is reported by Wait.
func (sw *StoppableWorkers) Add(funcs ...func(context.Context) error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.ctx.Err() != nil {
		return
	}

	sw.wg.Add(len(funcs))
	for _, f := range funcs {
		goutils.PanicCapturingGo(func() {
			defer sw.wg.Done()
			if err := f(sw.ctx); err != nil && !errors.Is(err, context.Canceled) {
				sw.errRecord.Do(func() { sw.firstErr = err })
				sw.cancel()
			}
		})
	}
}

// Context returns the context the workers observe.
func (sw *StoppableWorkers) Context() context.Context {
	return sw.ctx
}

// Stop cancels all workers and waits for them to return.
func (sw *StoppableWorkers) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cancel()
	sw.wg.Wait()
}

// Wait blocks until every worker has returned and reports the first worker error, if any.
func (sw *StoppableWorkers) Wait() error {
	sw.wg.Wait()
	sw.cancel()
	return sw.firstErr
}
