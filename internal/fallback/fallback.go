// Package fallback wraps calls to external collaborators. Each call runs with
// its own deadline; a failure, timeout or panic is logged and replaced by a
// declared fallback so the caller's primary work is never interrupted.
package fallback

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/mentor_match/internal/apperr"
	"go.uber.org/zap"
)

type result[T any] struct {
	value T
	err   error
}

// Value returns call's result, or fallback if call fails or outlives timeout.
// A non-positive timeout only inherits ctx's deadline.
func Value[T any](ctx context.Context, logger *zap.Logger, op string, timeout time.Duration, fallback T, call func(ctx context.Context) (T, error)) T {
	value, err := invoke(ctx, timeout, call)
	if err != nil {
		logger.Warn("External call failed, using fallback",
			zap.String("op", op),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return fallback
	}
	return value
}

// Run executes a best-effort side effect. The failure is logged and returned
// as ExternalCollaboratorFailure for callers that want to report it.
func Run(ctx context.Context, logger *zap.Logger, op string, timeout time.Duration, call func(ctx context.Context) error) error {
	_, err := invoke(ctx, timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, call(ctx)
	})
	if err != nil {
		logger.Warn("External call failed",
			zap.String("op", op),
			zap.Error(err),
		)
		return apperr.External(op, err)
	}
	return nil
}

// invoke runs call in its own goroutine so a collaborator that ignores ctx
// still cannot hold the caller past the deadline.
func invoke[T any](ctx context.Context, timeout time.Duration, call func(ctx context.Context) (T, error)) (T, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result[T]{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := call(ctx)
		done <- result[T]{value: v, err: err}
	}()

	select {
	case res := <-done:
		return res.value, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
