// internal/repository/account_repo.go
package repository

import (
	"context"

	"tradesim-ledger/internal/domain"
)

// AccountRepository is the account registry: it maps usernames to accounts
// and owns their transaction logs. Implementations must make CreateAccount
// and ApplyTransaction atomic — either the account state and the appended
// transaction are both persisted, or neither is.
type AccountRepository interface {
	// CreateAccount registers a new account. initial may carry the opening
	// deposit transaction and is nil when the account starts empty.
	// Returns util.ErrDuplicateUsername if the username is taken.
	CreateAccount(ctx context.Context, account *domain.Account, initial *domain.Transaction) error
	// GetAccount retrieves an account snapshot by username.
	// Returns util.ErrAccountNotFound if it does not exist.
	GetAccount(ctx context.Context, username string) (*domain.Account, error)
	// ApplyTransaction persists the account's updated balances and holdings
	// together with the transaction that produced them.
	ApplyTransaction(ctx context.Context, account *domain.Account, transaction *domain.Transaction) error
	// ListTransactions returns the account's transactions newest first,
	// plus the total count. limit <= 0 returns the full log.
	ListTransactions(ctx context.Context, username string, limit, offset int) ([]domain.Transaction, int64, error)
}
