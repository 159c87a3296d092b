// internal/repository/memory/account_repo.go
package memory

import (
	"context"
	"fmt"
	"sync"

	"tradesim-ledger/internal/domain"
	"tradesim-ledger/internal/repository"
	"tradesim-ledger/internal/util"
)

// AccountRepository is the in-memory account registry, the default store for
// the single-process simulator. All maps are guarded by one RWMutex and all
// accounts cross the boundary as deep copies, so a caller can never mutate
// registry state except through the repository methods.
type AccountRepository struct {
	mu           sync.RWMutex
	accounts     map[string]*domain.Account
	transactions map[string][]domain.Transaction
}

// NewAccountRepository creates an empty in-memory registry.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string][]domain.Transaction),
	}
}

var _ repository.AccountRepository = (*AccountRepository)(nil)

// CreateAccount registers a new account, optionally with its opening deposit.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *domain.Account, initial *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Username]; exists {
		return fmt.Errorf("%w: %s", util.ErrDuplicateUsername, account.Username)
	}

	r.accounts[account.Username] = account.Clone()
	r.transactions[account.Username] = nil
	if initial != nil {
		r.transactions[account.Username] = append(r.transactions[account.Username], *initial)
	}
	return nil
}

// GetAccount returns a snapshot of the account.
func (r *AccountRepository) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, exists := r.accounts[username]
	if !exists {
		return nil, fmt.Errorf("%w: %s", util.ErrAccountNotFound, username)
	}
	return account.Clone(), nil
}

// ApplyTransaction stores the updated account state and appends the
// transaction in one critical section.
func (r *AccountRepository) ApplyTransaction(ctx context.Context, account *domain.Account, transaction *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.Username]; !exists {
		return fmt.Errorf("%w: %s", util.ErrAccountNotFound, account.Username)
	}

	r.accounts[account.Username] = account.Clone()
	r.transactions[account.Username] = append(r.transactions[account.Username], *transaction)
	return nil
}

// ListTransactions returns the account's transactions newest first.
func (r *AccountRepository) ListTransactions(ctx context.Context, username string, limit, offset int) ([]domain.Transaction, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.accounts[username]; !exists {
		return nil, 0, fmt.Errorf("%w: %s", util.ErrAccountNotFound, username)
	}

	log := r.transactions[username]
	total := int64(len(log))

	// The log is stored oldest first; walk it backwards.
	if offset < 0 {
		offset = 0
	}
	if offset >= len(log) {
		return []domain.Transaction{}, total, nil
	}
	end := len(log) - offset
	count := end
	if limit > 0 && limit < count {
		count = limit
	}

	result := make([]domain.Transaction, 0, count)
	for i := end - 1; i >= end-count; i-- {
		result = append(result, log[i])
	}
	return result, total, nil
}
