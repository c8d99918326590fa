// Package lifecycle coordinates startup and shutdown of long-lived subsystems.
//
// Subsystems register hooks during construction. Startup hooks run
// concurrently and may fail; shutdown hooks run concurrently and are expected
// to block on Context().Done() before releasing their resources.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrShutdownTimeout is returned when shutdown hooks outlive the drain window.
var ErrShutdownTimeout = errors.New("shutdown timed out")

// Coordinator tracks registered hooks and the service's readiness.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	starting sync.WaitGroup
	stopping sync.WaitGroup

	ready atomic.Bool

	mu       sync.Mutex
	failures []error
}

// New returns a Coordinator whose context is cancelled by Shutdown.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{ctx: ctx, cancel: cancel}
}

func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn in its own goroutine. A returned error is recorded and
// keeps the coordinator from becoming ready.
func (c *Coordinator) OnStartup(fn func() error) {
	c.starting.Go(func() {
		if err := fn(); err != nil {
			c.mu.Lock()
			c.failures = append(c.failures, err)
			c.mu.Unlock()
		}
	})
}

// OnShutdown runs fn in its own goroutine immediately. fn should wait on
// Context().Done() before cleaning up.
func (c *Coordinator) OnShutdown(fn func()) {
	c.stopping.Go(fn)
}

func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// Err joins the errors of failed startup hooks, or nil.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.failures...)
}

// WaitForStartup blocks until every startup hook has returned. Readiness is
// granted only when none failed.
func (c *Coordinator) WaitForStartup() error {
	c.starting.Wait()

	if err := c.Err(); err != nil {
		return err
	}
	c.ready.Store(true)
	return nil
}

// Shutdown withdraws readiness, cancels the context and waits up to timeout
// for the shutdown hooks.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.ready.Store(false)
	c.cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.stopping.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w after %v", ErrShutdownTimeout, timeout)
	}
}
