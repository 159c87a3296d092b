// internal/domain/transaction.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TransactionType defines the type of a ledger transaction.
type TransactionType string

const (
	TransactionTypeDeposit  TransactionType = "DEPOSIT"
	TransactionTypeWithdraw TransactionType = "WITHDRAW"
	TransactionTypeBuy      TransactionType = "BUY"
	TransactionTypeSell     TransactionType = "SELL"
)

// Transaction is an immutable record of one completed ledger-affecting
// operation. Amount is the signed effect on cash: positive for DEPOSIT and
// SELL, negative for WITHDRAW and BUY. BalanceAfter snapshots the cash
// balance immediately after the transaction, for audit.
type Transaction struct {
	ID           string           `db:"id" json:"id"`
	Username     string           `db:"username" json:"username"`
	Type         TransactionType  `db:"type" json:"type"`
	Symbol       *string          `db:"symbol" json:"symbol,omitempty"`                 // Trades only
	Quantity     *int64           `db:"quantity" json:"quantity,omitempty"`             // Trades only, positive
	PricePerUnit *decimal.Decimal `db:"price_per_unit" json:"price_per_unit,omitempty"` // Price captured at execution time
	Amount       decimal.Decimal  `db:"amount" json:"amount"`
	BalanceAfter decimal.Decimal  `db:"balance_after" json:"balance_after"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}

// NewCashTransaction creates a DEPOSIT or WITHDRAW transaction. amount is
// already signed by the caller.
func NewCashTransaction(username string, txType TransactionType, amount, balanceAfter decimal.Decimal, at time.Time) *Transaction {
	return &Transaction{
		ID:           uuid.NewString(),
		Username:     username,
		Type:         txType,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    at,
	}
}

// NewTradeTransaction creates a BUY or SELL transaction. amount is already
// signed by the caller; price is the per-unit price captured at execution.
func NewTradeTransaction(username string, txType TransactionType, symbol string, quantity int64, price, amount, balanceAfter decimal.Decimal, at time.Time) *Transaction {
	return &Transaction{
		ID:           uuid.NewString(),
		Username:     username,
		Type:         txType,
		Symbol:       &symbol,
		Quantity:     &quantity,
		PricePerUnit: &price,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		CreatedAt:    at,
	}
}
