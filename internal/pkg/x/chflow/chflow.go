// Package chflow holds small channel helpers shared by the watchers.
package chflow

import "context"

// Receive returns the next value of ch. ok is false once ctx is done or ch is
// closed.
func Receive[T any](ctx context.Context, ch <-chan T) (v T, ok bool) {
	select {
	case <-ctx.Done():
		return v, false
	case v, ok = <-ch:
		return v, ok
	}
}

// Offer sends v when ch has room and reports whether it did. It never blocks.
func Offer[T any](ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	default:
		return false
	}
}
