// Package audithook bridges marketplace ledger events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xraph/apimarket"
	"github.com/xraph/apimarket/plugin"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnServiceRegistered    = (*Extension)(nil)
	_ plugin.OnServiceDeactivated   = (*Extension)(nil)
	_ plugin.OnServiceSubscribed    = (*Extension)(nil)
	_ plugin.OnAPICallMade          = (*Extension)(nil)
	_ plugin.OnPlatformFeeUpdated   = (*Extension)(nil)
	_ plugin.OnFeesWithdrawn        = (*Extension)(nil)
	_ plugin.OnOwnershipTransferred = (*Extension)(nil)
	_ plugin.OnOperationRejected    = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges ledger events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	decimals int32           // 0 = amounts in smallest units only
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Service hooks
// ──────────────────────────────────────────────────

// OnServiceRegistered implements plugin.OnServiceRegistered.
func (e *Extension) OnServiceRegistered(ctx context.Context, svc *service.Service) error {
	return e.record(ctx, ActionServiceRegistered, SeverityInfo, OutcomeSuccess,
		ResourceService, svc.ID.String(), CategoryCatalog, nil,
		"provider", svc.Provider.String(),
		"name", svc.Name,
		"price_per_call", int64(svc.PricePerCall),
	)
}

// OnServiceDeactivated implements plugin.OnServiceDeactivated.
func (e *Extension) OnServiceDeactivated(ctx context.Context, svc *service.Service) error {
	return e.record(ctx, ActionServiceDeactivated, SeverityWarning, OutcomeSuccess,
		ResourceService, svc.ID.String(), CategoryCatalog, nil,
		"provider", svc.Provider.String(),
		"total_calls", svc.TotalCalls,
	)
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnServiceSubscribed implements plugin.OnServiceSubscribed.
func (e *Extension) OnServiceSubscribed(ctx context.Context, sub *subscription.Subscription, totalCost, platformFee types.Amount) error {
	kv := []any{
		"consumer", sub.Consumer.String(),
		"service_id", sub.ServiceID.String(),
		"call_count", sub.CallsPurchased,
		"total_cost", int64(totalCost),
		"platform_fee", int64(platformFee),
		"expires_at", sub.ExpiresAt,
	}
	kv = e.major(kv, "total_cost", totalCost)
	kv = e.major(kv, "platform_fee", platformFee)
	return e.record(ctx, ActionServiceSubscribed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategoryPayment, nil, kv...)
}

// OnAPICallMade implements plugin.OnAPICallMade.
func (e *Extension) OnAPICallMade(ctx context.Context, sub *subscription.Subscription) error {
	return e.record(ctx, ActionAPICallMade, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ID.String(), CategoryUsage, nil,
		"consumer", sub.Consumer.String(),
		"service_id", sub.ServiceID.String(),
		"calls_remaining", sub.CallsRemaining,
	)
}

// ──────────────────────────────────────────────────
// Administrative hooks
// ──────────────────────────────────────────────────

// OnPlatformFeeUpdated implements plugin.OnPlatformFeeUpdated.
func (e *Extension) OnPlatformFeeUpdated(ctx context.Context, previous, current types.BasisPoints) error {
	return e.record(ctx, ActionPlatformFeeUpdated, SeverityWarning, OutcomeSuccess,
		ResourceLedger, "", CategoryAdmin, nil,
		"previous_bps", uint32(previous),
		"current_bps", uint32(current),
		"previous_percent", previous.Percent().String(),
		"current_percent", current.Percent().String(),
	)
}

// OnFeesWithdrawn implements plugin.OnFeesWithdrawn.
func (e *Extension) OnFeesWithdrawn(ctx context.Context, owner types.Principal, amount types.Amount) error {
	kv := e.major([]any{
		"owner", owner.String(),
		"amount", int64(amount),
	}, "amount", amount)
	return e.record(ctx, ActionPlatformFeesWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceLedger, "", CategoryPayment, nil, kv...)
}

// OnOwnershipTransferred implements plugin.OnOwnershipTransferred.
func (e *Extension) OnOwnershipTransferred(ctx context.Context, previous, current types.Principal) error {
	return e.record(ctx, ActionOwnershipTransferred, SeverityCritical, OutcomeSuccess,
		ResourceLedger, "", CategoryAdmin, nil,
		"previous_owner", previous.String(),
		"owner", current.String(),
	)
}

// ──────────────────────────────────────────────────
// Failures
// ──────────────────────────────────────────────────

// OnOperationRejected implements plugin.OnOperationRejected. Authorization
// failures and infrastructure failures are raised in severity; plain input
// errors are recorded at info.
func (e *Extension) OnOperationRejected(ctx context.Context, op string, err error) error {
	kind := apimarket.KindOf(err)

	severity := SeverityInfo
	category := CategoryUsage
	switch {
	case kind == apimarket.KindUnauthorized:
		severity, category = SeverityWarning, CategoryAccess
	case kind == apimarket.KindTransferFailed, errors.Is(err, apimarket.ErrTransactionFailed):
		severity, category = SeverityError, CategoryPayment
	}

	return e.record(ctx, ActionOperationRejected, severity, OutcomeFailure,
		ResourceLedger, "", category, err,
		"operation", op,
		"kind", kind.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// major appends key+"_major", the amount in major units, when the extension
// was configured with a currency precision.
func (e *Extension) major(kv []any, key string, amount types.Amount) []any {
	if e.decimals <= 0 {
		return kv
	}
	return append(kv, key+"_major", amount.Major(e.decimals).String())
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
