// Package funds moves value out of the ledger.
//
// The ledger never holds a transfer half-done: every operation hands the
// complete list of payouts it needs to a Settler in one call, and either
// all of them happen or none do.
package funds

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/apimarket/id"
	"github.com/xraph/apimarket/types"
)

// Reason says why a transfer is made.
type Reason string

const (
	ReasonProviderPayment Reason = "provider_payment"
	ReasonRefund          Reason = "refund"
	ReasonFeeWithdrawal   Reason = "fee_withdrawal"
)

// Transfer is one outbound payout.
type Transfer struct {
	ID     id.ID           `json:"id"`
	To     types.Principal `json:"to"`
	Amount types.Amount    `json:"amount"`
	Reason Reason          `json:"reason"`
}

// NewTransfer returns a transfer with a fresh id.
func NewTransfer(to types.Principal, amount types.Amount, reason Reason) Transfer {
	return Transfer{
		ID:     id.NewTransferID(),
		To:     to,
		Amount: amount,
		Reason: reason,
	}
}

// Settler executes a batch of transfers atomically: on a nil return every
// transfer in the batch has been delivered, on error none has.
type Settler interface {
	Settle(ctx context.Context, batch []Transfer) error
}

// Reverser undoes a batch a Settler previously delivered. The ledger calls
// it when a settled operation could not be persisted.
type Reverser interface {
	Reverse(ctx context.Context, batch []Transfer) error
}

// SettlerFunc adapts a plain function to Settler.
type SettlerFunc func(ctx context.Context, batch []Transfer) error

// Settle calls f.
func (f SettlerFunc) Settle(ctx context.Context, batch []Transfer) error { return f(ctx, batch) }

// ErrRejected is returned when a recipient refuses a transfer.
var ErrRejected = errors.New("funds: transfer rejected")

// RejectedError names the recipient whose transfer was refused.
type RejectedError struct {
	To     types.Principal
	Amount types.Amount
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("funds: transfer of %s to %s rejected", e.Amount, e.To)
}

// Unwrap lets errors.Is match ErrRejected.
func (e *RejectedError) Unwrap() error { return ErrRejected }

// Total sums a batch. It fails only on overflow.
func Total(batch []Transfer) (types.Amount, error) {
	var sum types.Amount
	for _, t := range batch {
		next, err := sum.Add(t.Amount)
		if err != nil {
			return 0, err
		}
		sum = next
	}
	return sum, nil
}
