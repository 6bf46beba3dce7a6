package apimarket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/apimarket/funds"
	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

// Operation names, as recorded on changesets and passed to plugins.
const (
	OpRegisterService      = "register_service"
	OpSubscribeToService   = "subscribe_to_service"
	OpMakeAPICall          = "make_api_call"
	OpDeactivateService    = "deactivate_service"
	OpUpdatePlatformFee    = "update_platform_fee"
	OpWithdrawPlatformFees = "withdraw_platform_fees"
	OpTransferOwnership    = "transfer_ownership"
)

// ──────────────────────────────────────────────────
// Services
// ──────────────────────────────────────────────────

// RegisterService lists a new service owned by caller and returns its id.
func (l *Ledger) RegisterService(ctx context.Context, caller types.Principal, name, description string, price types.Amount) (id.ServiceID, error) {
	l.mu.Lock()
	svc, note, err := l.registerService(ctx, caller, name, description, price)
	l.mu.Unlock()
	if err != nil {
		return 0, l.rejected(ctx, OpRegisterService, caller, err)
	}

	l.plugins.EmitServiceRegistered(ctx, svc)
	l.published(ctx, OpRegisterService, caller, note)
	return svc.ID, nil
}

func (l *Ledger) registerService(ctx context.Context, caller types.Principal, name, description string, price types.Amount) (*service.Service, notification.Notification, error) {
	var none notification.Notification

	t, err := l.begin(ctx, OpRegisterService)
	if err != nil {
		return nil, none, err
	}
	if caller.IsZero() {
		return nil, none, invalid("caller", ErrZeroPrincipal, "caller identity is empty")
	}
	if name == "" {
		return nil, none, invalid("name", ErrEmptyName, "must not be empty")
	}
	if !price.IsPositive() {
		return nil, none, invalid("price_per_call", ErrInvalidPrice, fmt.Sprintf("got %s", price))
	}

	svc := &service.Service{
		Entity:       types.NewEntity(t.now),
		ID:           t.state.NextServiceID,
		Provider:     caller,
		Name:         name,
		Description:  description,
		PricePerCall: price,
		Active:       true,
	}
	t.state.NextServiceID++
	t.addService(svc)
	t.emit(notification.Notification{
		Kind:      notification.KindServiceRegistered,
		ServiceID: svc.ID,
		Provider:  caller,
		Name:      name,
		Price:     price,
	})

	note, err := t.commit(ctx)
	if err != nil {
		return nil, none, err
	}
	return svc, note, nil
}

// DeactivateService delists a service. Only its provider may do so, and
// nothing reactivates it. Subscriptions already sold keep working.
func (l *Ledger) DeactivateService(ctx context.Context, caller types.Principal, serviceID id.ServiceID) error {
	l.mu.Lock()
	svc, note, err := l.deactivateService(ctx, caller, serviceID)
	l.mu.Unlock()
	if err != nil {
		return l.rejected(ctx, OpDeactivateService, caller, err)
	}

	l.plugins.EmitServiceDeactivated(ctx, svc)
	l.published(ctx, OpDeactivateService, caller, note)
	return nil
}

func (l *Ledger) deactivateService(ctx context.Context, caller types.Principal, serviceID id.ServiceID) (*service.Service, notification.Notification, error) {
	var none notification.Notification

	t, err := l.begin(ctx, OpDeactivateService)
	if err != nil {
		return nil, none, err
	}
	svc, err := t.service(serviceID)
	if err != nil {
		return nil, none, err
	}
	if svc.Provider != caller {
		return nil, none, ErrNotProvider
	}

	svc.Active = false
	svc.Touch(t.now)
	t.emit(notification.Notification{
		Kind:      notification.KindServiceDeactivated,
		ServiceID: svc.ID,
	})

	note, err := t.commit(ctx)
	if err != nil {
		return nil, none, err
	}
	return svc, note, nil
}

// ──────────────────────────────────────────────────
// Subscriptions
// ──────────────────────────────────────────────────

// Quote is the price breakdown of a subscription at the current fee rate.
type Quote struct {
	TotalCost       types.Amount      `json:"total_cost"`
	PlatformFee     types.Amount      `json:"platform_fee"`
	ProviderPayment types.Amount      `json:"provider_payment"`
	FeeRate         types.BasisPoints `json:"fee_rate"`
}

// maxExpiryYear is the last year a timestamp can be encoded in the journal.
const maxExpiryYear = 9999

func quote(price types.Amount, callCount uint64, rate types.BasisPoints) (Quote, error) {
	total, err := price.Mul(callCount)
	if err != nil {
		return Quote{}, invalid("call_count", ErrAmountOverflow, fmt.Sprintf("%s × %d overflows", price, callCount))
	}
	fee := rate.Of(total)
	return Quote{
		TotalCost:       total,
		PlatformFee:     fee,
		ProviderPayment: total - fee,
		FeeRate:         rate,
	}, nil
}

// SubscribeToService sells caller callCount calls on a service, valid for
// durationDays days. paid must cover price × callCount; the provider is
// paid the cost less the platform fee, the fee is retained by the ledger
// and any overpayment is refunded to caller. If any payout fails nothing
// changes.
func (l *Ledger) SubscribeToService(ctx context.Context, caller types.Principal, serviceID id.ServiceID, callCount uint64, durationDays uint32, paid types.Amount) (id.SubscriptionID, error) {
	l.mu.Lock()
	sub, q, note, err := l.subscribeToService(ctx, caller, serviceID, callCount, durationDays, paid)
	l.mu.Unlock()
	if err != nil {
		return 0, l.rejected(ctx, OpSubscribeToService, caller, err)
	}

	l.plugins.EmitServiceSubscribed(ctx, sub, q.TotalCost, q.PlatformFee)
	l.published(ctx, OpSubscribeToService, caller, note)
	return sub.ID, nil
}

func (l *Ledger) subscribeToService(ctx context.Context, caller types.Principal, serviceID id.ServiceID, callCount uint64, durationDays uint32, paid types.Amount) (*subscription.Subscription, Quote, notification.Notification, error) {
	var none notification.Notification

	t, err := l.begin(ctx, OpSubscribeToService)
	if err != nil {
		return nil, Quote{}, none, err
	}
	if caller.IsZero() {
		return nil, Quote{}, none, invalid("caller", ErrZeroPrincipal, "caller identity is empty")
	}
	svc, ok := l.services[serviceID]
	if !ok {
		return nil, Quote{}, none, ErrServiceNotFound
	}
	if !svc.Active {
		return nil, Quote{}, none, ErrServiceInactive
	}
	if callCount == 0 {
		return nil, Quote{}, none, invalid("call_count", ErrInvalidCallCount, "must be positive")
	}
	if durationDays == 0 {
		return nil, Quote{}, none, invalid("duration_days", ErrInvalidDuration, "must be positive")
	}
	expiresAt := t.now.AddDate(0, 0, int(durationDays))
	if expiresAt.Year() > maxExpiryYear {
		return nil, Quote{}, none, invalid("duration_days", ErrInvalidDuration,
			fmt.Sprintf("%d days ends after year %d", durationDays, maxExpiryYear))
	}

	q, err := quote(svc.PricePerCall, callCount, t.state.PlatformFee)
	if err != nil {
		return nil, Quote{}, none, err
	}
	refund, err := paid.Sub(q.TotalCost)
	if err != nil {
		return nil, Quote{}, none, fmt.Errorf("%w: paid %s, cost %s", ErrInsufficientPayment, paid, q.TotalCost)
	}
	retained, err := t.state.Retained.Add(q.PlatformFee)
	if err != nil {
		return nil, Quote{}, none, ErrAmountOverflow
	}

	sub := &subscription.Subscription{
		Entity:         types.NewEntity(t.now),
		ID:             t.state.NextSubscriptionID,
		Consumer:       caller,
		ServiceID:      svc.ID,
		CallsPurchased: callCount,
		CallsRemaining: callCount,
		ExpiresAt:      expiresAt,
		Active:         true,
	}
	t.state.NextSubscriptionID++
	t.state.Retained = retained
	t.addSubscription(sub)

	t.pay(svc.Provider, q.ProviderPayment, funds.ReasonProviderPayment)
	t.pay(caller, refund, funds.ReasonRefund)

	t.emit(notification.Notification{
		Kind:           notification.KindServiceSubscribed,
		SubscriptionID: sub.ID,
		Consumer:       caller,
		ServiceID:      svc.ID,
		CallCount:      callCount,
	})

	note, err := t.commit(ctx)
	if err != nil {
		return nil, Quote{}, none, err
	}
	return sub, q, note, nil
}

// MakeAPICall records one call against a subscription and returns the
// calls left. Only the subscription's consumer may call. The service's own
// active flag is not consulted: subscriptions sold before a service was
// deactivated can still be used up.
func (l *Ledger) MakeAPICall(ctx context.Context, caller types.Principal, subscriptionID id.SubscriptionID) (uint64, error) {
	l.mu.Lock()
	sub, note, err := l.makeAPICall(ctx, caller, subscriptionID)
	l.mu.Unlock()
	if err != nil {
		return 0, l.rejected(ctx, OpMakeAPICall, caller, err)
	}

	l.plugins.EmitAPICallMade(ctx, sub)
	l.published(ctx, OpMakeAPICall, caller, note)
	return sub.CallsRemaining, nil
}

func (l *Ledger) makeAPICall(ctx context.Context, caller types.Principal, subscriptionID id.SubscriptionID) (*subscription.Subscription, notification.Notification, error) {
	var none notification.Notification

	t, err := l.begin(ctx, OpMakeAPICall)
	if err != nil {
		return nil, none, err
	}
	sub, err := t.subscription(subscriptionID)
	if err != nil {
		return nil, none, err
	}
	if sub.Consumer != caller {
		return nil, none, ErrNotSubscriber
	}
	// Exhaustion is checked before the active flag: a used-up subscription
	// is also inactive, and callers need to know which happened.
	if sub.Exhausted() {
		return nil, none, ErrSubscriptionExhausted
	}
	if !sub.Active {
		return nil, none, ErrSubscriptionInactive
	}
	if sub.Expired(t.now) {
		return nil, none, fmt.Errorf("%w: at %s", ErrSubscriptionExpired, sub.ExpiresAt.Format(time.RFC3339))
	}

	svc, err := t.service(sub.ServiceID)
	if err != nil {
		return nil, none, err
	}

	remaining := sub.Consume(t.now)
	svc.TotalCalls++
	svc.Touch(t.now)

	t.emit(notification.Notification{
		Kind:           notification.KindAPICallMade,
		SubscriptionID: sub.ID,
		Consumer:       caller,
		ServiceID:      sub.ServiceID,
		CallsRemaining: remaining,
	})

	note, err := t.commit(ctx)
	if err != nil {
		return nil, none, err
	}
	return sub, note, nil
}

// ──────────────────────────────────────────────────
// Administration
// ──────────────────────────────────────────────────

// UpdatePlatformFee sets the fee rate for subscriptions sold from now on.
// Owner only; the rate may not exceed MaxPlatformFee.
func (l *Ledger) UpdatePlatformFee(ctx context.Context, caller types.Principal, bps types.BasisPoints) error {
	l.mu.Lock()
	previous, note, err := l.updatePlatformFee(ctx, caller, bps)
	l.mu.Unlock()
	if err != nil {
		return l.rejected(ctx, OpUpdatePlatformFee, caller, err)
	}

	l.plugins.EmitPlatformFeeUpdated(ctx, previous, bps)
	l.published(ctx, OpUpdatePlatformFee, caller, note)
	return nil
}

func (l *Ledger) updatePlatformFee(ctx context.Context, caller types.Principal, bps types.BasisPoints) (types.BasisPoints, notification.Notification, error) {
	var none notification.Notification

	t, err := l.begin(ctx, OpUpdatePlatformFee)
	if err != nil {
		return 0, none, err
	}
	if caller != t.state.Owner {
		return 0, none, ErrNotOwner
	}
	if bps > MaxPlatformFee {
		return 0, none, invalid("platform_fee", ErrFeeTooHigh, fmt.Sprintf("%s exceeds %s", bps, MaxPlatformFee))
	}

	previous := t.state.PlatformFee
	t.state.PlatformFee = bps
	t.emit(notification.Notification{
		Kind:        notification.KindPlatformFeeUpdated,
		PreviousFee: previous,
		Fee:         bps,
	})

	note, err := t.commit(ctx)
	if err != nil {
		return 0, none, err
	}
	return previous, note, nil
}

// WithdrawPlatformFees pays the whole retained balance to the owner and
// returns the amount paid.
func (l *Ledger) WithdrawPlatformFees(ctx context.Context, caller types.Principal) (types.Amount, error) {
	l.mu.Lock()
	amount, note, err := l.withdrawPlatformFees(ctx, caller)
	l.mu.Unlock()
	if err != nil {
		return 0, l.rejected(ctx, OpWithdrawPlatformFees, caller, err)
	}

	l.plugins.EmitFeesWithdrawn(ctx, caller, amount)
	l.published(ctx, OpWithdrawPlatformFees, caller, note)
	return amount, nil
}

func (l *Ledger) withdrawPlatformFees(ctx context.Context, caller types.Principal) (types.Amount, notification.Notification, error) {
	var none notification.Notification

	t, err := l.begin(ctx, OpWithdrawPlatformFees)
	if err != nil {
		return 0, none, err
	}
	if caller != t.state.Owner {
		return 0, none, ErrNotOwner
	}
	amount := t.state.Retained
	if amount.IsZero() {
		return 0, none, ErrNoFeesToWithdraw
	}

	t.state.Retained = 0
	t.pay(caller, amount, funds.ReasonFeeWithdrawal)
	t.emit(notification.Notification{
		Kind:   notification.KindPlatformFeesWithdrawn,
		Owner:  caller,
		Amount: amount,
	})

	note, err := t.commit(ctx)
	if err != nil {
		return 0, none, err
	}
	return amount, note, nil
}

// TransferOwnership hands the owner role to next.
func (l *Ledger) TransferOwnership(ctx context.Context, caller, next types.Principal) error {
	l.mu.Lock()
	note, err := l.transferOwnership(ctx, caller, next)
	l.mu.Unlock()
	if err != nil {
		return l.rejected(ctx, OpTransferOwnership, caller, err)
	}

	l.plugins.EmitOwnershipTransferred(ctx, caller, next)
	l.published(ctx, OpTransferOwnership, caller, note)
	return nil
}

func (l *Ledger) transferOwnership(ctx context.Context, caller, next types.Principal) (notification.Notification, error) {
	var none notification.Notification

	t, err := l.begin(ctx, OpTransferOwnership)
	if err != nil {
		return none, err
	}
	if caller != t.state.Owner {
		return none, ErrNotOwner
	}
	if next.IsZero() {
		return none, invalid("new_owner", ErrZeroPrincipal, "must not be empty")
	}

	t.state.Owner = next
	t.emit(notification.Notification{
		Kind:          notification.KindOwnershipTransferred,
		PreviousOwner: caller,
		Owner:         next,
	})

	return t.commit(ctx)
}

// ──────────────────────────────────────────────────
// Outcome reporting
// ──────────────────────────────────────────────────

func (l *Ledger) published(ctx context.Context, op string, caller types.Principal, note notification.Notification) {
	l.logger.Debug("apimarket: operation committed",
		"op", op,
		"caller", caller,
		"seq", note.Seq,
		"kind", note.Kind,
	)
	l.plugins.EmitNotification(ctx, note)
}

func (l *Ledger) rejected(ctx context.Context, op string, caller types.Principal, err error) error {
	level := slog.LevelDebug
	if isInfrastructure(err) {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "apimarket: operation rejected",
		"op", op,
		"caller", caller,
		"kind", KindOf(err),
		"error", err,
	)
	l.plugins.EmitOperationRejected(ctx, op, err)
	return err
}

// isInfrastructure reports failures that are not the caller's fault.
func isInfrastructure(err error) bool {
	return errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransferFailed)
}
