package ledger

import (
	"context"

	"github.com/shopspring/decimal"

	"zakatledger/internal/core"
)

// Break describes one place where an account's chain does not hold.
type Break struct {
	EntryID string          `json:"entry_id"`
	Index   int             `json:"index"`
	Reason  string          `json:"reason"`
	Want    decimal.Decimal `json:"want"`
	Got     decimal.Decimal `json:"got"`
}

const (
	ReasonArithmetic = "balance_after does not follow from balance_before and amount"
	ReasonLinkage    = "balance_before does not match previous balance_after"
)

// VerifyChain walks an account's entries oldest first and reports every
// arithmetic or linkage break. An empty result means the chain is intact.
func (s *Store) VerifyChain(ctx context.Context, accountID string) ([]Break, error) {
	entries, err := s.Entries(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return CheckChain(entries), nil
}

// CheckChain is the pure part of VerifyChain.
func CheckChain(entries []core.LedgerEntry) []Break {
	var breaks []Break
	prev := decimal.Zero
	for i, e := range entries {
		if !e.BalanceBefore.Equal(prev) {
			breaks = append(breaks, Break{
				EntryID: e.ID, Index: i, Reason: ReasonLinkage,
				Want: prev, Got: e.BalanceBefore,
			})
		}
		want := e.Type.Apply(e.BalanceBefore, e.Amount)
		if !e.BalanceAfter.Equal(want) {
			breaks = append(breaks, Break{
				EntryID: e.ID, Index: i, Reason: ReasonArithmetic,
				Want: want, Got: e.BalanceAfter,
			})
		}
		prev = e.BalanceAfter
	}
	return breaks
}
