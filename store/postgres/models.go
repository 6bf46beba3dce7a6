package postgres

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

type commitModel struct {
	grove.BaseModel `grove:"table:apimarket_commits"`

	ID            string          `grove:"id,pk"`
	Seq           int64           `grove:"seq"`
	SchemaVersion int             `grove:"schema_version"`
	Operation     string          `grove:"operation"`
	Payload       json.RawMessage `grove:"payload,type:jsonb"`
	CreatedAt     time.Time       `grove:"created_at"`
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
		Payload:       payload,
		CreatedAt:     cs.At,
	}, nil
}

func fromCommitModel(m *commitModel) (*store.Changeset, error) {
	cs := new(store.Changeset)
	if err := json.Unmarshal(m.Payload, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// ==================== Projections ====================

type serviceModel struct {
	grove.BaseModel `grove:"table:apimarket_services"`

	ID           int64     `grove:"id,pk"`
	Provider     string    `grove:"provider"`
	Name         string    `grove:"name"`
	Description  string    `grove:"description"`
	PricePerCall int64     `grove:"price_per_call"`
	TotalCalls   int64     `grove:"total_calls"`
	Active       bool      `grove:"active"`
	CreatedAt    time.Time `grove:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"`
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

	ID             int64     `grove:"id,pk"`
	Consumer       string    `grove:"consumer"`
	ServiceID      int64     `grove:"service_id"`
	CallsPurchased int64     `grove:"calls_purchased"`
	CallsRemaining int64     `grove:"calls_remaining"`
	ExpiresAt      time.Time `grove:"expires_at"`
	Active         bool      `grove:"active"`
	CreatedAt      time.Time `grove:"created_at"`
	UpdatedAt      time.Time `grove:"updated_at"`
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

// stateModel is a single-row table holding the ledger scalars as of Seq.
type stateModel struct {
	grove.BaseModel `grove:"table:apimarket_state"`

	ID                 int       `grove:"id,pk"`
	Seq                int64     `grove:"seq"`
	Owner              string    `grove:"owner"`
	PlatformFee        int       `grove:"platform_fee"`
	Retained           int64     `grove:"retained"`
	NextServiceID      int64     `grove:"next_service_id"`
	NextSubscriptionID int64     `grove:"next_subscription_id"`
	UpdatedAt          time.Time `grove:"updated_at"`
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

	Seq            int64           `grove:"seq,pk"`
	ID             string          `grove:"id"`
	Kind           string          `grove:"kind"`
	ServiceID      int64           `grove:"service_id"`
	SubscriptionID int64           `grove:"subscription_id"`
	Payload        json.RawMessage `grove:"payload,type:jsonb"`
	At             time.Time       `grove:"at"`
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
		Payload:        payload,
		At:             n.At,
	}, nil
}
