package funds

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/apimarket/types"
)

func TestBookSettle(t *testing.T) {
	ctx := context.Background()
	b := NewBook()

	batch := []Transfer{
		NewTransfer("provider", 975, ReasonProviderPayment),
		NewTransfer("provider", 25, ReasonProviderPayment),
	}
	if err := b.Settle(ctx, batch); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	if got := b.Balance("provider"); got != 1000 {
		t.Errorf("Balance = %d, want 1000", got)
	}
	if b.Settled() != 1 {
		t.Errorf("Settled = %d, want 1", b.Settled())
	}
}

func TestBookRejectIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	b := NewBook()
	b.Reject("bob", true)

	err := b.Settle(ctx, []Transfer{
		NewTransfer("alice", 10, ReasonProviderPayment),
		NewTransfer("bob", 10, ReasonProviderPayment),
	})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}

	var rejected *RejectedError
	if !errors.As(err, &rejected) || rejected.To != "bob" {
		t.Errorf("expected RejectedError for bob, got %v", err)
	}
	if got := b.Balance("alice"); got != 0 {
		t.Errorf("alice must not be credited on a failed batch, got %d", got)
	}

	b.Reject("bob", false)
	if err := b.Settle(ctx, []Transfer{NewTransfer("bob", 10, ReasonFeeWithdrawal)}); err != nil {
		t.Fatalf("Settle after lifting rejection: %v", err)
	}
}

func TestBookOverflowIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	b := NewBook()

	err := b.Settle(ctx, []Transfer{
		NewTransfer("alice", 1, ReasonProviderPayment),
		NewTransfer("bob", types.MaxAmount, ReasonProviderPayment),
		NewTransfer("bob", 1, ReasonProviderPayment),
	})
	if !errors.Is(err, types.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if b.Balance("alice") != 0 || b.Balance("bob") != 0 {
		t.Error("no balance should move on overflow")
	}
}

func TestBookReverse(t *testing.T) {
	ctx := context.Background()
	b := NewBook()

	batch := []Transfer{NewTransfer("owner", 50, ReasonFeeWithdrawal)}
	if err := b.Settle(ctx, batch); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	if err := b.Reverse(ctx, batch); err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if got := b.Balance("owner"); got != 0 {
		t.Errorf("Balance after reverse = %d, want 0", got)
	}
	if b.Settled() != 0 {
		t.Errorf("Settled = %d, want 0", b.Settled())
	}
}

func TestBookCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBook()
	if err := b.Settle(ctx, []Transfer{NewTransfer("alice", 1, ReasonProviderPayment)}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTotal(t *testing.T) {
	got, err := Total([]Transfer{{Amount: 3}, {Amount: 4}})
	if err != nil || got != 7 {
		t.Errorf("Total = %d, %v; want 7, nil", got, err)
	}
	if _, err := Total([]Transfer{{Amount: types.MaxAmount}, {Amount: 1}}); !errors.Is(err, types.ErrOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}
