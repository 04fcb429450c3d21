package shared

import (
	"context"
	"fmt"
	"sync"
)

// Retryable wraps an operation that may fail, remembering its last outcome and exposing [Retryable.Retry] as the
// only way to run it again.
//
// The zero value is not usable; construct with [NewRetryable].
type Retryable[T any] struct {
	name string
	op   func(context.Context) (T, error)

	mu       sync.Mutex
	value    T
	err      error
	ok       bool
	attempts int
	running  bool
}

// NewRetryable creates a [Retryable] named name that executes op.
func NewRetryable[T any](name string, op func(context.Context) (T, error)) *Retryable[T] {
	return &Retryable[T]{name: name, op: op}
}

// Name returns the operation name used in logs and error messages.
func (r *Retryable[T]) Name() string { return r.name }

// Run executes the operation once and records its result.
//
// Returns [ErrInFlight] without running when an attempt is already in progress.
func (r *Retryable[T]) Run(ctx context.Context) (T, error) {
	return r.do(ctx)
}

// Retry re-executes the operation after a failure.
func (r *Retryable[T]) Retry(ctx context.Context) (T, error) {
	return r.do(ctx)
}

func (r *Retryable[T]) do(ctx context.Context) (T, error) {
	var zero T

	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return zero, fmt.Errorf("%w: %s", ErrInFlight, r.name)
	}
	r.running = true
	r.attempts++
	r.mu.Unlock()

	value, err := r.op(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.err = err
	r.ok = err == nil
	if err != nil {
		return zero, err
	}
	r.value = value
	return value, nil
}

// Err returns the error of the most recent attempt, or nil.
func (r *Retryable[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Attempts returns how many times the operation has been started.
func (r *Retryable[T]) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Value returns the result of the most recent attempt and whether it succeeded.
func (r *Retryable[T]) Value() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.ok {
		var zero T
		return zero, false
	}
	return r.value, true
}

// Failed reports whether the most recent attempt returned an error.
func (r *Retryable[T]) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err != nil
}
