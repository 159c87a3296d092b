// internal/domain/account.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// Account represents a single user's trading account: cash, holdings and
// the running deposit total used as the cost basis for profit/loss.
type Account struct {
	Username    string           `db:"username" json:"username"`         // Unique, immutable after creation
	CashBalance decimal.Decimal  `db:"cash_balance" json:"cash_balance"` // Invariant: never negative
	NetDeposits decimal.Decimal  `db:"net_deposits" json:"net_deposits"` // Deposits minus withdrawals
	Holdings    map[string]int64 `db:"-" json:"holdings"`                // Symbol -> quantity owned, entries always > 0
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// NewAccount creates a new Account with an empty portfolio.
func NewAccount(username string) *Account {
	now := time.Now().UTC()
	return &Account{
		Username:    username,
		CashBalance: decimal.Zero,
		NetDeposits: decimal.Zero,
		Holdings:    make(map[string]int64),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// HoldingQuantity returns the owned quantity for a symbol. A missing entry
// and a zero entry are both "not owned".
func (a *Account) HoldingQuantity(symbol string) int64 {
	return a.Holdings[symbol]
}

// SetHolding stores a quantity for a symbol, removing the entry when the
// quantity drops to zero so Holdings only ever contains owned positions.
func (a *Account) SetHolding(symbol string, quantity int64) {
	if quantity == 0 {
		delete(a.Holdings, symbol)
		return
	}
	a.Holdings[symbol] = quantity
}

// Clone returns a deep copy of the account, so callers can hand out
// snapshots without exposing internal state to mutation.
func (a *Account) Clone() *Account {
	cp := *a
	cp.Holdings = make(map[string]int64, len(a.Holdings))
	for symbol, qty := range a.Holdings {
		cp.Holdings[symbol] = qty
	}
	return &cp
}
