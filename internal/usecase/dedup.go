package usecase

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Deduper collapses concurrent calls that share a key into one in-flight call.
// Later callers with the same key wait for the first and receive its result.
// Once the call returns the key is free again.
type Deduper struct {
	group singleflight.Group
}

// NewDeduper creates a Deduper.
func NewDeduper() *Deduper {
	return &Deduper{}
}

// Do runs fn unless a call for key is already running, in which case it
// waits for that call. shared reports whether the result went to more than
// one caller. fn gets ctx without its cancellation, so the call outlives the
// caller that started it. Any caller whose ctx ends returns ctx.Err()
// without affecting the running call.
func (d *Deduper) Do(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (v any, shared bool, err error) {
	ch := d.group.DoChan(key, func() (any, error) {
		return fn(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Val, res.Shared, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}
