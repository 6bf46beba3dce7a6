package funds

import (
	"context"
	"sync"

	"github.com/xraph/apimarket/types"
)

// Book is an in-memory Settler that credits recipients' balances. It is the
// default settler of a ledger with no external payment rail, and doubles as
// a failure injector in tests through Reject.
type Book struct {
	mu       sync.RWMutex
	balances map[types.Principal]types.Amount
	rejected map[types.Principal]bool
	settled  int
}

// NewBook returns an empty book.
func NewBook() *Book {
	return &Book{
		balances: make(map[types.Principal]types.Amount),
		rejected: make(map[types.Principal]bool),
	}
}

var (
	_ Settler  = (*Book)(nil)
	_ Reverser = (*Book)(nil)
)

// Settle credits every recipient in batch, or none of them if any recipient
// is rejected or a balance would overflow.
func (b *Book) Settle(ctx context.Context, batch []Transfer) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	next := make(map[types.Principal]types.Amount, len(batch))
	for _, t := range batch {
		if b.rejected[t.To] {
			return &RejectedError{To: t.To, Amount: t.Amount}
		}
		cur, ok := next[t.To]
		if !ok {
			cur = b.balances[t.To]
		}
		sum, err := cur.Add(t.Amount)
		if err != nil {
			return err
		}
		next[t.To] = sum
	}

	for p, bal := range next {
		b.balances[p] = bal
	}
	b.settled++
	return nil
}

// Reverse debits every recipient in batch. Balances never go below zero.
func (b *Book) Reverse(_ context.Context, batch []Transfer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, t := range batch {
		bal, err := b.balances[t.To].Sub(t.Amount)
		if err != nil {
			bal = 0
		}
		b.balances[t.To] = bal
	}
	if b.settled > 0 {
		b.settled--
	}
	return nil
}

// Reject makes every future transfer to p fail. Passing false lifts it.
func (b *Book) Reject(p types.Principal, reject bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if reject {
		b.rejected[p] = true
		return
	}
	delete(b.rejected, p)
}

// Balance returns what p has received so far.
func (b *Book) Balance(p types.Principal) types.Amount {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.balances[p]
}

// Settled returns the number of batches currently standing.
func (b *Book) Settled() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.settled
}
