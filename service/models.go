// Package service defines the Service record: a priced API offering owned
// by one provider.
package service

import (
	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/types"
)

// Service is a registered, monetizable API.
//
// PricePerCall is fixed at registration. TotalCalls only grows. Active only
// ever moves from true to false; nothing reactivates a service.
type Service struct {
	types.Entity
	ID           id.ServiceID    `json:"id"`
	Provider     types.Principal `json:"provider"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	PricePerCall types.Amount    `json:"price_per_call"`
	TotalCalls   uint64          `json:"total_calls"`
	Active       bool            `json:"active"`
}

// Clone returns a copy that can be mutated without touching s.
func (s *Service) Clone() *Service {
	c := *s
	return &c
}
