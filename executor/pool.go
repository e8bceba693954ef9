package executor

import (
	"context"
	"sync"

	"example.com/curve/curveerr"
)

// Task is a unit of background work submitted to a Pool, typically an
// async DLQ send the publisher must not block the caller on.
type Task func(ctx context.Context)

// Pool is a bounded worker pool with deterministic graceful drain on
// shutdown, generalizing the reference stack's single-purpose
// dispatcher/server shutdown sequence (cancel → timeout context →
// Shutdown → Wait) into a reusable primitive for the publisher's
// kafka.dlqExecutorThreads / kafka.dlqExecutorShutdownTimeoutSeconds
// configuration.
type Pool struct {
	tasks chan Task
	wg    sync.WaitGroup

	closeOnce sync.Once
	mu        sync.Mutex
	draining  bool
	stopped   bool
}

// NewPool starts workers goroutines pulling from an internal queue of
// the given capacity.
func NewPool(workers, queueCapacity int) *Pool {
	p := &Pool{tasks: make(chan Task, queueCapacity)}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task(context.Background())
	}
}

// Submit enqueues task. It returns curveerr.ErrShuttingDown once
// Shutdown or ShutdownNow has been called.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	if p.draining || p.stopped {
		p.mu.Unlock()
		return curveerr.ErrShuttingDown
	}
	p.mu.Unlock()

	select {
	case p.tasks <- task:
		return nil
	default:
		return curveerr.New(curveerr.KindTransientBroker, "executor queue is full", nil)
	}
}

// Shutdown stops accepting new tasks and waits for all queued and
// in-flight tasks to finish, or for ctx to be done, whichever comes
// first. Calling Shutdown more than once is a no-op after the first
// call.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.draining {
		p.mu.Unlock()
		return nil
	}
	p.draining = true
	p.mu.Unlock()

	p.closeOnce.Do(func() { close(p.tasks) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ShutdownNow stops accepting new tasks immediately and returns every
// task still sitting in the queue, unstarted, without waiting for
// in-flight tasks to finish.
func (p *Pool) ShutdownNow() []Task {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.draining = true
	p.stopped = true
	p.mu.Unlock()

	p.closeOnce.Do(func() { close(p.tasks) })

	var pending []Task
	for task := range p.tasks {
		pending = append(pending, task)
	}
	return pending
}
