// internal/domain/replay.go
package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReplayResult holds the state rebuilt from a transaction log.
type ReplayResult struct {
	CashBalance decimal.Decimal  `json:"cash_balance"`
	Holdings    map[string]int64 `json:"holdings"`
}

// Replay rebuilds cash balance and holdings from a chronologically ordered
// transaction log, starting from zero state. The ledger invariant is that
// the result matches the live account exactly; Matches checks that.
func Replay(transactions []Transaction) (*ReplayResult, error) {
	res := &ReplayResult{
		CashBalance: decimal.Zero,
		Holdings:    make(map[string]int64),
	}

	for i, tx := range transactions {
		switch tx.Type {
		case TransactionTypeDeposit, TransactionTypeWithdraw:
			res.CashBalance = res.CashBalance.Add(tx.Amount)
		case TransactionTypeBuy, TransactionTypeSell:
			if tx.Symbol == nil || tx.Quantity == nil {
				return nil, fmt.Errorf("replay: transaction %d (%s) is missing trade fields", i, tx.ID)
			}
			res.CashBalance = res.CashBalance.Add(tx.Amount)
			qty := res.Holdings[*tx.Symbol]
			if tx.Type == TransactionTypeBuy {
				qty += *tx.Quantity
			} else {
				qty -= *tx.Quantity
			}
			if qty < 0 {
				return nil, fmt.Errorf("replay: transaction %d (%s) sells more %s than held", i, tx.ID, *tx.Symbol)
			}
			if qty == 0 {
				delete(res.Holdings, *tx.Symbol)
			} else {
				res.Holdings[*tx.Symbol] = qty
			}
		default:
			return nil, fmt.Errorf("replay: transaction %d (%s) has unknown type %q", i, tx.ID, tx.Type)
		}
		if res.CashBalance.IsNegative() {
			return nil, fmt.Errorf("replay: transaction %d (%s) drives the balance negative", i, tx.ID)
		}
	}

	return res, nil
}

// Matches reports whether the replayed state equals the account's live state.
func (r *ReplayResult) Matches(account *Account) bool {
	if !r.CashBalance.Equal(account.CashBalance) {
		return false
	}
	if len(r.Holdings) != len(account.Holdings) {
		return false
	}
	for symbol, qty := range r.Holdings {
		if account.Holdings[symbol] != qty {
			return false
		}
	}
	return true
}
