// Package lifecycle coordinates startup, background work, and shutdown for a
// scope such as the whole service or a single validation session.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrClosed is returned when work is scheduled on a coordinator that is shutting down.
var ErrClosed = errors.New("lifecycle closed")

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator manages startup hooks, tracked background work, and shutdown hooks.
// Its context is cancelled when Shutdown is called, which is the signal every
// hook and background goroutine observes.
type Coordinator struct {
	ctx        context.Context
	cancel     context.CancelFunc
	startupWg  sync.WaitGroup
	shutdownWg sync.WaitGroup
	workWg     sync.WaitGroup

	mu     sync.RWMutex
	ready  bool
	closed bool
}

// New creates a root Coordinator.
func New() *Coordinator {
	return NewWithParent(context.Background())
}

// NewWithParent creates a Coordinator whose context is derived from parent,
// so cancelling the parent scope also cancels this one.
func NewWithParent(parent context.Context) *Coordinator {
	ctx, cancel := context.WithCancel(parent)
	return &Coordinator{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the coordinator's context, cancelled on shutdown.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup registers a function to run concurrently during startup.
func (c *Coordinator) OnStartup(fn func()) {
	c.startupWg.Go(fn)
}

// OnShutdown registers a function to run concurrently during shutdown.
// Shutdown hooks should block on <-c.Context().Done() before executing cleanup.
func (c *Coordinator) OnShutdown(fn func()) {
	c.shutdownWg.Go(fn)
}

// Go runs fn in a tracked goroutine bound to the coordinator's context.
// Shutdown waits for tracked work to return. Returns ErrClosed once
// shutdown has begun.
func (c *Coordinator) Go(fn func(ctx context.Context)) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}

	c.workWg.Go(func() {
		fn(c.ctx)
	})
	return nil
}

// Ready returns true after all startup hooks have completed.
func (c *Coordinator) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready && !c.closed
}

// WaitForStartup blocks until all startup hooks have completed and sets the ready flag.
func (c *Coordinator) WaitForStartup() {
	c.startupWg.Wait()
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
}

// Closed reports whether Shutdown has been called.
func (c *Coordinator) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Shutdown cancels the context and waits for shutdown hooks and tracked work
// to complete within the given timeout. Calling Shutdown more than once is safe.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.cancel()

	done := make(chan struct{})
	go func() {
		c.shutdownWg.Wait()
		c.workWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}
