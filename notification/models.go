// Package notification defines the append-only audit trail of the ledger.
//
// Exactly one Notification is appended per successful mutating operation,
// and only after the mutation is fully applied. Failed operations leave no
// trace here.
package notification

import (
	"time"

	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/types"
)

// Kind names the operation a notification reports.
type Kind string

const (
	KindServiceRegistered     Kind = "service.registered"
	KindServiceSubscribed     Kind = "service.subscribed"
	KindAPICallMade           Kind = "api_call.made"
	KindServiceDeactivated    Kind = "service.deactivated"
	KindPlatformFeeUpdated    Kind = "platform_fee.updated"
	KindPlatformFeesWithdrawn Kind = "platform_fees.withdrawn"
	KindOwnershipTransferred  Kind = "ownership.transferred"
)

// Notification is one entry of the audit trail. Which fields are set
// depends on Kind:
//
//	service.registered      ServiceID, Provider, Name, Price
//	service.subscribed      SubscriptionID, Consumer, ServiceID, CallCount
//	api_call.made           SubscriptionID, Consumer, ServiceID, CallsRemaining
//	service.deactivated     ServiceID
//	platform_fee.updated    PreviousFee, Fee
//	platform_fees.withdrawn Owner, Amount
//	ownership.transferred   PreviousOwner, Owner
type Notification struct {
	ID   id.ID     `json:"id"`
	Seq  uint64    `json:"seq"`
	Kind Kind      `json:"kind"`
	At   time.Time `json:"at"`

	ServiceID      id.ServiceID      `json:"service_id,omitempty"`
	SubscriptionID id.SubscriptionID `json:"subscription_id,omitempty"`
	Provider       types.Principal   `json:"provider,omitempty"`
	Consumer       types.Principal   `json:"consumer,omitempty"`
	Name           string            `json:"name,omitempty"`
	Price          types.Amount      `json:"price,omitempty"`
	CallCount      uint64            `json:"call_count,omitempty"`
	CallsRemaining uint64            `json:"calls_remaining"`
	PreviousFee    types.BasisPoints `json:"previous_fee,omitempty"`
	Fee            types.BasisPoints `json:"fee,omitempty"`
	Amount         types.Amount      `json:"amount,omitempty"`
	Owner          types.Principal   `json:"owner,omitempty"`
	PreviousOwner  types.Principal   `json:"previous_owner,omitempty"`
}
