package apimarket

import (
	"context"
	"time"
)

// Clock supplies the ledger's notion of now. Every timestamp the ledger
// stores comes from it.
type Clock interface {
	Now(ctx context.Context) time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now(context.Context) time.Time {
	return time.Now().UTC()
}

// ClockFunc adapts a plain function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now(context.Context) time.Time { return f().UTC() }
