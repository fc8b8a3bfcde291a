// Package clock provides a testable time source.
//
// Components that schedule work (toast expiry, snapshot polling, backoff)
// take a Clock so tests can drive time deterministically instead of sleeping.
package clock

import "time"

// Clock is the time source used by the SDK.
type Clock interface {
	Now() time.Time
}

// Real is the production Clock backed by time.Now.
type Real struct{}

// Now implements Clock.
func (Real) Now() time.Time { return time.Now() }
