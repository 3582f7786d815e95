// Package connector provides bounded-retry, single-flight initialization of
// shared external resources (redis clients, database pools, broker channels).
package connector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAttempts = 5
	DefaultDelay    = 5 * time.Second
)

// ErrInitializationFailed is returned when a resource could not be brought up
// within the configured number of attempts.
var ErrInitializationFailed = errors.New("resource initialization failed")

// ErrClosed is returned to callers whose initialization finished after Close.
var ErrClosed = errors.New("connector closed")

// DialFunc establishes the underlying resource.
type DialFunc[T any] func(ctx context.Context) (T, error)

// CloseFunc releases a resource previously returned by a DialFunc.
type CloseFunc[T any] func(T) error

// Observer receives connection attempt outcomes. metrics.Metrics satisfies it.
type Observer interface {
	RecordConnectAttempt(resource string, ok bool, d time.Duration)
	SetHealth(component string, isHealthy bool)
}

// Options configures a Connector.
type Options struct {
	Attempts int
	Delay    time.Duration
	Observer Observer
}

// InitError wraps the last dial error after all attempts were used.
type InitError struct {
	Resource string
	Attempts int
	Err      error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Resource, e.Attempts, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Is reports ErrInitializationFailed so callers can classify with errors.Is.
func (e *InitError) Is(target error) bool { return target == ErrInitializationFailed }

type future[T any] struct {
	done   chan struct{}
	handle T
	err    error
}

// Connector lazily initializes a resource of type T. Concurrent callers of
// Acquire share one in-flight initialization. Once connected, the handle is
// read without taking the lock.
type Connector[T any] struct {
	name     string
	dial     DialFunc[T]
	closeFn  CloseFunc[T]
	attempts int
	delay    time.Duration
	observer Observer

	mu      sync.Mutex
	pending *future[T]
	handle  atomic.Pointer[T]
}

// New creates a connector for the named resource.
func New[T any](name string, dial DialFunc[T], closeFn CloseFunc[T], opts Options) *Connector[T] {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	return &Connector[T]{
		name:     name,
		dial:     dial,
		closeFn:  closeFn,
		attempts: opts.Attempts,
		delay:    opts.Delay,
		observer: opts.Observer,
	}
}

// Name returns the resource name used in logs and metrics.
func (c *Connector[T]) Name() string {
	return c.name
}

// Acquire returns the cached handle, or initializes it. Callers arriving while
// an initialization is in flight wait for that same attempt sequence. The
// attempt sequence itself is not bound to any single caller's context; ctx only
// limits how long this caller waits.
func (c *Connector[T]) Acquire(ctx context.Context) (T, error) {
	if h := c.handle.Load(); h != nil {
		return *h, nil
	}

	c.mu.Lock()
	if h := c.handle.Load(); h != nil {
		c.mu.Unlock()
		return *h, nil
	}
	f := c.pending
	if f == nil {
		f = &future[T]{done: make(chan struct{})}
		c.pending = f
		go c.initialize(context.WithoutCancel(ctx), f)
	}
	c.mu.Unlock()

	select {
	case <-f.done:
		return f.handle, f.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Wrapf(ctx.Err(), "waiting for %s", c.name)
	}
}

// Connected reports whether a handle is currently cached.
func (c *Connector[T]) Connected() bool {
	return c.handle.Load() != nil
}

// Close releases the cached handle. A later Acquire reconnects.
func (c *Connector[T]) Close() error {
	c.mu.Lock()
	h := c.handle.Swap(nil)
	c.pending = nil
	c.mu.Unlock()

	if h == nil {
		return nil
	}
	return c.release(*h)
}

// Invalidate drops the cached handle if stale reports it as the one the
// caller saw fail, so the next Acquire dials again. A handle that was
// already replaced is left alone.
func (c *Connector[T]) Invalidate(stale func(T) bool) error {
	c.mu.Lock()
	h := c.handle.Load()
	if h == nil || !stale(*h) {
		c.mu.Unlock()
		return nil
	}
	c.handle.Store(nil)
	c.mu.Unlock()

	log.Warn().Str("resource", c.name).Msg("Connection lost, will reconnect on next use")
	return c.release(*h)
}

func (c *Connector[T]) release(h T) error {
	if c.closeFn == nil {
		return nil
	}
	if err := c.closeFn(h); err != nil {
		return errors.Wrapf(err, "failed to close %s", c.name)
	}
	log.Info().Str("resource", c.name).Msg("Connection closed")
	return nil
}

func (c *Connector[T]) initialize(ctx context.Context, f *future[T]) {
	handle, err := c.connect(ctx)

	c.mu.Lock()
	current := c.pending == f
	if current {
		c.pending = nil
		if err == nil {
			c.handle.Store(&handle)
		}
	}
	c.mu.Unlock()

	// Close ran while dialing: nobody owns this handle any more.
	if err == nil && !current {
		c.release(handle)
		var zero T
		handle, err = zero, errors.Wrapf(ErrClosed, "%s closed during initialization", c.name)
	}

	f.handle, f.err = handle, err
	close(f.done)
}

func (c *Connector[T]) connect(ctx context.Context) (T, error) {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		start := time.Now()
		handle, err := c.dial(ctx)
		c.observe(err == nil, time.Since(start))
		if err == nil {
			log.Info().Str("resource", c.name).Int("attempt", attempt).Msg("Connected")
			return handle, nil
		}

		lastErr = err
		log.Warn().
			Err(err).
			Str("resource", c.name).
			Int("retry_attempt", attempt).
			Int("max_retries", c.attempts).
			Msg("Failed to connect, retrying")

		if attempt == c.attempts {
			break
		}
		if err := sleepContext(ctx, c.delay); err != nil {
			lastErr = err
			break
		}
	}

	log.Error().Err(lastErr).Str("resource", c.name).Msg("Could not connect after multiple attempts")
	var zero T
	return zero, &InitError{Resource: c.name, Attempts: c.attempts, Err: lastErr}
}

func (c *Connector[T]) observe(ok bool, d time.Duration) {
	if c.observer == nil {
		return
	}
	c.observer.RecordConnectAttempt(c.name, ok, d)
	c.observer.SetHealth(c.name, ok)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
