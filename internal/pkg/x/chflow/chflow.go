// Package chflow holds context-aware channel helpers. Every blocking
// operation gives up as soon as the context is done.
package chflow

import "context"

// Receive waits for a value from ch. ok is false when ctx is done first or
// ch is closed.
func Receive[T any](ctx context.Context, ch <-chan T) (T, bool) {
	var data T
	select {
	case <-ctx.Done():
		return data, false
	case data, ok := <-ch:
		return data, ok
	}
}

// Send delivers data on ch and reports whether it was delivered before ctx
// was done.
func Send[T any](ctx context.Context, ch chan<- T, data T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- data:
		return true
	}
}

// Each calls fn for every value received from ch until ch is closed or ctx
// is done.
func Each[T any](ctx context.Context, ch <-chan T, fn func(T)) {
	for {
		v, ok := Receive(ctx, ch)
		if !ok {
			return
		}
		fn(v)
	}
}
