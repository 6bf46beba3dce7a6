// Package subscription defines the Subscription record: a consumer's
// prepaid grant of a fixed number of calls against one service, valid until
// an expiry timestamp.
package subscription

import (
	"time"

	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/types"
)

// Subscription is a prepaid, time-boxed, call-boxed grant.
//
// CallsRemaining only decreases. Once it reaches zero Active is forced to
// false and stays false. ExpiresAt is fixed at creation.
type Subscription struct {
	types.Entity
	ID             id.SubscriptionID `json:"id"`
	Consumer       types.Principal   `json:"consumer"`
	ServiceID      id.ServiceID      `json:"service_id"`
	CallsPurchased uint64            `json:"calls_purchased"`
	CallsRemaining uint64            `json:"calls_remaining"`
	ExpiresAt      time.Time         `json:"expires_at"`
	Active         bool              `json:"active"`
}

// Clone returns a copy that can be mutated without touching s.
func (s *Subscription) Clone() *Subscription {
	c := *s
	return &c
}

// Expired reports whether now is past the expiry. A call made exactly at
// ExpiresAt is still in the window.
func (s *Subscription) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Exhausted reports whether every purchased call has been consumed.
func (s *Subscription) Exhausted() bool {
	return s.CallsRemaining == 0
}

// Consume records one call and returns the calls left afterwards. The
// subscription deactivates when the last call is used. Callers check
// Exhausted first.
func (s *Subscription) Consume(now time.Time) uint64 {
	s.CallsRemaining--
	if s.CallsRemaining == 0 {
		s.Active = false
	}
	s.Touch(now)
	return s.CallsRemaining
}
