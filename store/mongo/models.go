package mongo

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/store"
	"github.com/xraph/apimarket/subscription"
)

// ==================== Journal ====================

// commitModel keeps the changeset as its JSON encoding so the journal
// decodes the same way on every backend.
type commitModel struct {
	grove.BaseModel `grove:"table:apimarket_commits"`

	ID            string    `grove:"id,pk"          bson:"_id"`
	Seq           int64     `grove:"seq"            bson:"seq"`
	SchemaVersion int       `grove:"schema_version" bson:"schema_version"`
	Operation     string    `grove:"operation"      bson:"operation"`
	Payload       string    `grove:"payload"        bson:"payload"`
	CreatedAt     time.Time `grove:"created_at"     bson:"created_at"`
}

func toCommitModel(cs *store.Changeset) (*commitModel, error) {
	payload, err := json.Marshal(cs)
	if err != nil {
		return nil, err
	}
	return &commitModel{
		ID:            cs.ID.String(),
		Seq:           int64(cs.Seq),
		SchemaVersion: cs.SchemaVersion,
		Operation:     cs.Operation,
		Payload:       string(payload),
		CreatedAt:     cs.At,
	}, nil
}

func fromCommitModel(m *commitModel) (*store.Changeset, error) {
	cs := new(store.Changeset)
	if err := json.Unmarshal([]byte(m.Payload), cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// ==================== Projections ====================

type serviceModel struct {
	grove.BaseModel `grove:"table:apimarket_services"`

	ID           int64     `grove:"id,pk"          bson:"_id"`
	Provider     string    `grove:"provider"       bson:"provider"`
	Name         string    `grove:"name"           bson:"name"`
	Description  string    `grove:"description"    bson:"description"`
	PricePerCall int64     `grove:"price_per_call" bson:"price_per_call"`
	TotalCalls   int64     `grove:"total_calls"    bson:"total_calls"`
	Active       bool      `grove:"active"         bson:"active"`
	CreatedAt    time.Time `grove:"created_at"     bson:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"     bson:"updated_at"`
}

func toServiceModel(s *service.Service) *serviceModel {
	return &serviceModel{
		ID:           int64(s.ID),
		Provider:     s.Provider.String(),
		Name:         s.Name,
		Description:  s.Description,
		PricePerCall: int64(s.PricePerCall),
		TotalCalls:   int64(s.TotalCalls),
		Active:       s.Active,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type subscriptionModel struct {
	grove.BaseModel `grove:"table:apimarket_subscriptions"`

	ID             int64     `grove:"id,pk"           bson:"_id"`
	Consumer       string    `grove:"consumer"        bson:"consumer"`
	ServiceID      int64     `grove:"service_id"      bson:"service_id"`
	CallsPurchased int64     `grove:"calls_purchased" bson:"calls_purchased"`
	CallsRemaining int64     `grove:"calls_remaining" bson:"calls_remaining"`
	ExpiresAt      time.Time `grove:"expires_at"      bson:"expires_at"`
	Active         bool      `grove:"active"          bson:"active"`
	CreatedAt      time.Time `grove:"created_at"      bson:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"      bson:"updated_at"`
}

func toSubscriptionModel(s *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:             int64(s.ID),
		Consumer:       s.Consumer.String(),
		ServiceID:      int64(s.ServiceID),
		CallsPurchased: int64(s.CallsPurchased),
		CallsRemaining: int64(s.CallsRemaining),
		ExpiresAt:      s.ExpiresAt,
		Active:         s.Active,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type stateModel struct {
	grove.BaseModel `grove:"table:apimarket_state"`

	ID                 int       `grove:"id,pk"                bson:"_id"`
	Seq                int64     `grove:"seq"                  bson:"seq"`
	Owner              string    `grove:"owner"                bson:"owner"`
	PlatformFee        int       `grove:"platform_fee"         bson:"platform_fee"`
	Retained           int64     `grove:"retained"             bson:"retained"`
	NextServiceID      int64     `grove:"next_service_id"      bson:"next_service_id"`
	NextSubscriptionID int64     `grove:"next_subscription_id" bson:"next_subscription_id"`
	UpdatedAt          time.Time `grove:"updated_at"           bson:"updated_at"`
}

func toStateModel(cs *store.Changeset) *stateModel {
	return &stateModel{
		ID:                 1,
		Seq:                int64(cs.Seq),
		Owner:              cs.State.Owner.String(),
		PlatformFee:        int(cs.State.PlatformFee),
		Retained:           int64(cs.State.Retained),
		NextServiceID:      int64(cs.State.NextServiceID),
		NextSubscriptionID: int64(cs.State.NextSubscriptionID),
		UpdatedAt:          cs.At,
	}
}

type notificationModel struct {
	grove.BaseModel `grove:"table:apimarket_notifications"`

	Seq            int64     `grove:"seq,pk"          bson:"_id"`
	ID             string    `grove:"id"              bson:"event_id"`
	Kind           string    `grove:"kind"            bson:"kind"`
	ServiceID      int64     `grove:"service_id"      bson:"service_id"`
	SubscriptionID int64     `grove:"subscription_id" bson:"subscription_id"`
	Payload        string    `grove:"payload"         bson:"payload"`
	At             time.Time `grove:"at"              bson:"at"`
}

func toNotificationModel(n *notification.Notification) (*notificationModel, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return &notificationModel{
		Seq:            int64(n.Seq),
		ID:             n.ID.String(),
		Kind:           string(n.Kind),
		ServiceID:      int64(n.ServiceID),
		SubscriptionID: int64(n.SubscriptionID),
		Payload:        string(payload),
		At:             n.At,
	}, nil
}
