package apimarket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/apimarket/funds"
	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/notification"
	"github.com/xraph/apimarket/service"
	"github.com/xraph/apimarket/store"
	"github.com/xraph/apimarket/subscription"
	"github.com/xraph/apimarket/types"
)

// txn stages the effect of one operation on top of the ledger. Nothing is
// visible to readers until commit succeeds; discarding a txn is a no-op.
// A txn is only used while the ledger's write lock is held.
type txn struct {
	l   *Ledger
	op  string
	now time.Time

	state         store.State
	services      map[id.ServiceID]*service.Service
	subscriptions map[id.SubscriptionID]*subscription.Subscription
	order         []any // staged records in first-touch order
	transfers     []funds.Transfer
	note          *notification.Notification
}

func (l *Ledger) begin(ctx context.Context, op string) (*txn, error) {
	if !l.started {
		return nil, ErrStoreNotReady
	}
	return &txn{
		l:             l,
		op:            op,
		now:           l.clock.Now(ctx),
		state:         l.state,
		services:      make(map[id.ServiceID]*service.Service),
		subscriptions: make(map[id.SubscriptionID]*subscription.Subscription),
	}, nil
}

// service returns the staged copy of a service, staging it on first use.
func (t *txn) service(sid id.ServiceID) (*service.Service, error) {
	if svc, ok := t.services[sid]; ok {
		return svc, nil
	}
	svc, ok := t.l.services[sid]
	if !ok {
		return nil, ErrServiceNotFound
	}
	c := svc.Clone()
	t.services[sid] = c
	t.order = append(t.order, c)
	return c, nil
}

// subscription returns the staged copy of a subscription, staging it on
// first use.
func (t *txn) subscription(sid id.SubscriptionID) (*subscription.Subscription, error) {
	if sub, ok := t.subscriptions[sid]; ok {
		return sub, nil
	}
	sub, ok := t.l.subscriptions[sid]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	c := sub.Clone()
	t.subscriptions[sid] = c
	t.order = append(t.order, c)
	return c, nil
}

func (t *txn) addService(svc *service.Service) {
	t.services[svc.ID] = svc
	t.order = append(t.order, svc)
}

func (t *txn) addSubscription(sub *subscription.Subscription) {
	t.subscriptions[sub.ID] = sub
	t.order = append(t.order, sub)
}

// pay plans a payout. Zero amounts are dropped.
func (t *txn) pay(to types.Principal, amount types.Amount, reason funds.Reason) {
	if amount.IsZero() {
		return
	}
	t.transfers = append(t.transfers, funds.NewTransfer(to, amount, reason))
}

// emit sets the operation's notification. ID, time and sequence are filled
// in here and at commit.
func (t *txn) emit(n notification.Notification) {
	n.ID = id.NewNotificationID()
	n.At = t.now
	t.note = &n
}

// commit settles the planned payouts, persists the changeset and applies
// it to the ledger. If persistence fails the payouts are reversed when the
// settler supports it and the ledger is left unchanged.
func (t *txn) commit(ctx context.Context) (notification.Notification, error) {
	l := t.l
	if t.note == nil {
		return notification.Notification{}, fmt.Errorf("%w: %s emitted no notification", ErrTransactionFailed, t.op)
	}

	note := *t.note
	note.Seq = l.notifications.NextSeq()

	if len(t.transfers) > 0 {
		if err := l.settler.Settle(ctx, t.transfers); err != nil {
			return notification.Notification{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
	}

	cs := &store.Changeset{
		ID:            id.NewCommitID(),
		Seq:           l.seq + 1,
		SchemaVersion: store.SchemaVersion,
		Operation:     t.op,
		At:            t.now,
		State:         t.state,
		Transfers:     t.transfers,
		Notification:  note,
	}
	for _, rec := range t.order {
		switch r := rec.(type) {
		case *service.Service:
			cs.Services = append(cs.Services, r)
		case *subscription.Subscription:
			cs.Subscriptions = append(cs.Subscriptions, r)
		}
	}

	if err := l.store.Commit(ctx, cs); err != nil {
		if !store.IsPartialCommit(err) {
			t.compensate(ctx, err)
			return notification.Notification{}, fmt.Errorf("%w: %s: %w", ErrTransactionFailed, t.op, err)
		}
		l.logger.Warn("apimarket: changeset journaled with stale projections",
			"op", t.op,
			"seq", cs.Seq,
			"error", err,
		)
	}

	t.apply(cs.Seq, note)
	return note, nil
}

func (t *txn) compensate(ctx context.Context, cause error) {
	if len(t.transfers) == 0 {
		return
	}
	l := t.l
	rev, ok := l.settler.(funds.Reverser)
	if !ok {
		l.logger.Error("apimarket: payouts settled but commit failed and settler cannot reverse",
			"op", t.op,
			"transfers", len(t.transfers),
			"error", cause,
		)
		return
	}
	if err := rev.Reverse(ctx, t.transfers); err != nil {
		l.logger.Error("apimarket: reversing payouts failed",
			"op", t.op,
			"error", errors.Join(cause, err),
		)
	}
}

func (t *txn) apply(seq uint64, note notification.Notification) {
	l := t.l
	l.seq = seq
	l.state = t.state
	for _, rec := range t.order {
		switch r := rec.(type) {
		case *service.Service:
			if _, ok := l.services[r.ID]; !ok {
				l.byProvider[r.Provider] = append(l.byProvider[r.Provider], r.ID)
			}
			l.services[r.ID] = r
		case *subscription.Subscription:
			if _, ok := l.subscriptions[r.ID]; !ok {
				l.byConsumer[r.Consumer] = append(l.byConsumer[r.Consumer], r.ID)
			}
			l.subscriptions[r.ID] = r
		}
	}
	l.notifications.Append(note)
}
