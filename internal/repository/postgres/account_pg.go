// internal/repository/postgres/account_pg.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tradesim-ledger/internal/domain"
	"tradesim-ledger/internal/repository"
	"tradesim-ledger/internal/util"
	"tradesim-ledger/pkg/db"
)

const uniqueViolation = "23505"

// AccountRepository implements repository.AccountRepository on PostgreSQL.
// Accounts, holdings and transactions live in three tables; every mutating
// method runs inside a database transaction so the account row, the holdings
// rows and the appended ledger entry change together or not at all.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new Postgres-backed registry.
func NewAccountRepository(database *sqlx.DB) repository.AccountRepository {
	return &AccountRepository{db: database}
}

// CreateAccount inserts the account row and, when present, its opening
// deposit transaction.
func (r *AccountRepository) CreateAccount(ctx context.Context, account *domain.Account, initial *domain.Transaction) error {
	tx, err := db.BeginTx(ctx, r.db)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	defer db.RollbackTx(tx)

	q := tx.(repository.DBExecutor)

	query := `INSERT INTO accounts (username, cash_balance, net_deposits, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5)`
	if _, err := q.ExecContext(ctx, query,
		account.Username, account.CashBalance, account.NetDeposits, account.CreatedAt, account.UpdatedAt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return fmt.Errorf("%w: %s", util.ErrDuplicateUsername, account.Username)
		}
		return fmt.Errorf("failed to create account %q: %w", account.Username, err)
	}

	if initial != nil {
		if err := insertTransaction(ctx, q, initial); err != nil {
			return fmt.Errorf("failed to record opening deposit for %q: %w", account.Username, err)
		}
	}

	if err := db.CommitTx(tx); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// GetAccount loads the account row and its holdings.
func (r *AccountRepository) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	return getAccount(ctx, r.db, username)
}

// ApplyTransaction updates balances, reconciles the traded holding and
// appends the ledger entry inside one database transaction.
func (r *AccountRepository) ApplyTransaction(ctx context.Context, account *domain.Account, transaction *domain.Transaction) error {
	tx, err := db.BeginTx(ctx, r.db)
	if err != nil {
		return fmt.Errorf("apply transaction: %w", err)
	}
	defer db.RollbackTx(tx)

	q := tx.(repository.DBExecutor)

	query := `UPDATE accounts SET cash_balance = $1, net_deposits = $2, updated_at = $3 WHERE username = $4`
	result, err := q.ExecContext(ctx, query,
		account.CashBalance, account.NetDeposits, time.Now().UTC(), account.Username)
	if err != nil {
		return fmt.Errorf("failed to update account %q: %w", account.Username, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for account %q: %w", account.Username, err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", util.ErrAccountNotFound, account.Username)
	}

	if transaction.Symbol != nil {
		if err := upsertHolding(ctx, q, account, *transaction.Symbol); err != nil {
			return err
		}
	}

	if err := insertTransaction(ctx, q, transaction); err != nil {
		return fmt.Errorf("failed to append transaction for %q: %w", account.Username, err)
	}

	if err := db.CommitTx(tx); err != nil {
		return fmt.Errorf("apply transaction: %w", err)
	}
	return nil
}

// ListTransactions retrieves the account's ledger newest first, plus the
// total count.
func (r *AccountRepository) ListTransactions(ctx context.Context, username string, limit, offset int) ([]domain.Transaction, int64, error) {
	if _, err := getAccount(ctx, r.db, username); err != nil {
		return nil, 0, err
	}

	transactions := []domain.Transaction{}
	var err error
	if limit > 0 {
		query := `SELECT id, username, type, symbol, quantity, price_per_unit, amount, balance_after, created_at
                  FROM transactions WHERE username = $1
                  ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
		err = r.db.SelectContext(ctx, &transactions, query, username, limit, offset)
	} else {
		query := `SELECT id, username, type, symbol, quantity, price_per_unit, amount, balance_after, created_at
                  FROM transactions WHERE username = $1
                  ORDER BY created_at DESC, id DESC OFFSET $2`
		err = r.db.SelectContext(ctx, &transactions, query, username, offset)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions for %q: %w", username, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE username = $1`
	if err := r.db.GetContext(ctx, &totalCount, countQuery, username); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions for %q: %w", username, err)
	}

	return transactions, totalCount, nil
}

func getAccount(ctx context.Context, q repository.DBExecutor, username string) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT username, cash_balance, net_deposits, created_at, updated_at FROM accounts WHERE username = $1`
	if err := q.GetContext(ctx, &account, query, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", util.ErrAccountNotFound, username)
		}
		return nil, fmt.Errorf("failed to get account %q: %w", username, err)
	}

	account.Holdings = make(map[string]int64)
	rows := []struct {
		Symbol   string `db:"symbol"`
		Quantity int64  `db:"quantity"`
	}{}
	holdingsQuery := `SELECT symbol, quantity FROM holdings WHERE username = $1 AND quantity > 0`
	if err := q.SelectContext(ctx, &rows, holdingsQuery, username); err != nil {
		return nil, fmt.Errorf("failed to get holdings for %q: %w", username, err)
	}
	for _, row := range rows {
		account.Holdings[row.Symbol] = row.Quantity
	}
	return &account, nil
}

func upsertHolding(ctx context.Context, q repository.DBExecutor, account *domain.Account, symbol string) error {
	quantity := account.Holdings[symbol]
	if quantity == 0 {
		query := `DELETE FROM holdings WHERE username = $1 AND symbol = $2`
		if _, err := q.ExecContext(ctx, query, account.Username, symbol); err != nil {
			return fmt.Errorf("failed to clear holding %s for %q: %w", symbol, account.Username, err)
		}
		return nil
	}
	query := `INSERT INTO holdings (username, symbol, quantity) VALUES ($1, $2, $3)
              ON CONFLICT (username, symbol) DO UPDATE SET quantity = EXCLUDED.quantity`
	if _, err := q.ExecContext(ctx, query, account.Username, symbol, quantity); err != nil {
		return fmt.Errorf("failed to upsert holding %s for %q: %w", symbol, account.Username, err)
	}
	return nil
}

func insertTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	query := `INSERT INTO transactions (id, username, type, symbol, quantity, price_per_unit, amount, balance_after, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := q.ExecContext(ctx, query,
		transaction.ID,
		transaction.Username,
		transaction.Type,
		transaction.Symbol,
		transaction.Quantity,
		transaction.PricePerUnit,
		transaction.Amount,
		transaction.BalanceAfter,
		transaction.CreatedAt,
	)
	return err
}
