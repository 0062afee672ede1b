package util

import (
	"context"
)

// Sel runs f in its own goroutine and returns its error, or the
// context error if ctx is done first. f keeps running in the latter
// case and its result is dropped. f does not start at all if ctx is
// already done.
func Sel(ctx context.Context, f func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var d = make(chan error, 1)
	go func() {
		d <- f()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-d:
		return err
	}
}
