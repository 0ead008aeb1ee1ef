package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/example/sharecrop/internal/geom"
)

// ErrCancelled is wrapped by every CancelError.
var ErrCancelled = errors.New("selection cancelled")

// CancelError rejects a session that ended without an accepted selection.
type CancelError struct {
	Reason string
	// External is set when the source ended or the host forced the end.
	External bool
}

func (e *CancelError) Error() string {
	if e.Reason == "" {
		return ErrCancelled.Error()
	}
	return fmt.Sprintf("%v: %s", ErrCancelled, e.Reason)
}

func (e *CancelError) Unwrap() error { return ErrCancelled }

// Result is what an accepted session produces.
type Result struct {
	CropRect geom.Rect
	// Overlay is the live overlay layer. It stays owned by the session.
	Overlay *image.RGBA
}

// Future resolves exactly once, with a Result or an error.
type Future struct {
	once sync.Once
	done chan struct{}
	res  Result
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) settle(res Result, err error) bool {
	settled := false
	f.once.Do(func() {
		f.res, f.err = res, err
		close(f.done)
		settled = true
	})
	return settled
}

// Done is closed once the future has settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the future settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (Result, error) {
	select {
	case <-f.done:
		return f.res, f.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Settled reports the outcome without blocking. ok is false while the
// future is pending.
func (f *Future) Settled() (res Result, ok bool, err error) {
	select {
	case <-f.done:
		return f.res, true, f.err
	default:
		return Result{}, false, nil
	}
}
