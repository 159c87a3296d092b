// internal/service/ledger_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradesim-ledger/internal/domain"
	"tradesim-ledger/internal/pricing"
	"tradesim-ledger/internal/repository"
	"tradesim-ledger/internal/util"
	"tradesim-ledger/pkg/metrics"
)

// LedgerService defines the ledger's business logic: the five mutating
// operations plus the read-only views. Every mutating operation either
// applies its full effect (balance change, holdings change, one appended
// transaction) or leaves the account untouched.
type LedgerService interface {
	CreateAccount(ctx context.Context, username string, initialDeposit decimal.Decimal) (*domain.Account, error)
	Deposit(ctx context.Context, username string, amount decimal.Decimal) (*domain.Account, *domain.Transaction, error)
	Withdraw(ctx context.Context, username string, amount decimal.Decimal) (*domain.Account, *domain.Transaction, error)
	Buy(ctx context.Context, username, symbol string, quantity int64) (*domain.Account, *domain.Transaction, error)
	Sell(ctx context.Context, username, symbol string, quantity int64) (*domain.Account, *domain.Transaction, error)
	GetAccount(ctx context.Context, username string) (*domain.Account, error)
	GetPortfolioMetrics(ctx context.Context, username string) (*domain.PortfolioMetrics, error)
	GetTransactionHistory(ctx context.Context, username string, limit, offset int) ([]domain.Transaction, int64, error)
	Audit(ctx context.Context, username string) (*AuditReport, error)
	ListSymbols() ([]SymbolQuote, error)
}

// SymbolQuote pairs a supported symbol with its current price.
type SymbolQuote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
}

// AuditReport is the result of replaying an account's transaction log from
// zero state and comparing it to the live account.
type AuditReport struct {
	Consistent          bool             `json:"consistent"`
	CashBalance         decimal.Decimal  `json:"cash_balance"`
	ReplayedCashBalance decimal.Decimal  `json:"replayed_cash_balance"`
	Holdings            map[string]int64 `json:"holdings"`
	ReplayedHoldings    map[string]int64 `json:"replayed_holdings"`
	TransactionCount    int64            `json:"transaction_count"`
}

// Options configure optional ledger behavior.
type Options struct {
	// RequireInitialDeposit rejects account creation with a zero opening
	// deposit. The default allows zero.
	RequireInitialDeposit bool
}

// ledgerService implements the LedgerService interface.
type ledgerService struct {
	repo    repository.AccountRepository
	oracle  pricing.PriceOracle
	metrics *metrics.Collector
	logger  *slog.Logger
	opts    Options
	now     func() time.Time

	// Per-account mutexes so mutations against the same account never
	// interleave between their validation and their repository write.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewLedgerService creates a new instance of LedgerService.
func NewLedgerService(
	repo repository.AccountRepository,
	oracle pricing.PriceOracle,
	collector *metrics.Collector,
	logger *slog.Logger,
	opts Options,
) LedgerService {
	return &ledgerService{
		repo:    repo,
		oracle:  oracle,
		metrics: collector,
		logger:  logger,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *ledgerService) lockAccount(username string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[username]
	if !ok {
		l = &sync.Mutex{}
		s.locks[username] = l
	}
	s.locksMu.Unlock()
	l.Lock()
	return l.Unlock
}

// rejectionSentinels are failures caused by caller input, not by the system.
var rejectionSentinels = []error{
	util.ErrAccountNotFound,
	util.ErrDuplicateUsername,
	util.ErrInvalidInput,
	util.ErrInvalidAmount,
	util.ErrInvalidQuantity,
	util.ErrUnknownSymbol,
	util.ErrInsufficientFunds,
	util.ErrNotOwned,
	util.ErrInsufficientShares,
}

func (s *ledgerService) observe(operation string, start time.Time, err error) {
	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
		for _, sentinel := range rejectionSentinels {
			if util.IsError(err, sentinel) {
				status = metrics.StatusRejected
				break
			}
		}
	}
	s.metrics.RecordOperation(operation, status, time.Since(start))
}

// CreateAccount registers a new account with an opening deposit. A nonzero
// deposit is logged as the account's first DEPOSIT transaction; a zero
// deposit starts an empty log.
func (s *ledgerService) CreateAccount(ctx context.Context, username string, initialDeposit decimal.Decimal) (account *domain.Account, err error) {
	start := time.Now()
	defer func() { s.observe("create_account", start, err) }()

	if strings.TrimSpace(username) == "" {
		return nil, fmt.Errorf("%w: username must not be empty", util.ErrInvalidInput)
	}
	if initialDeposit.IsNegative() {
		return nil, fmt.Errorf("%w: initial deposit must not be negative", util.ErrInvalidInput)
	}
	if initialDeposit.IsZero() && s.opts.RequireInitialDeposit {
		return nil, fmt.Errorf("%w: initial deposit must be positive", util.ErrInvalidInput)
	}

	account = domain.NewAccount(username)
	account.CashBalance = initialDeposit
	account.NetDeposits = initialDeposit

	var initial *domain.Transaction
	if initialDeposit.IsPositive() {
		initial = domain.NewCashTransaction(username, domain.TransactionTypeDeposit, initialDeposit, account.CashBalance, s.now())
	}

	if err = s.repo.CreateAccount(ctx, account, initial); err != nil {
		return nil, err
	}

	s.metrics.SetCashBalance(username, account.CashBalance.InexactFloat64())
	s.logger.Info("account created", "username", username, "initial_deposit", initialDeposit.String())
	return account, nil
}

// Deposit adds cash to the account. It never fails for balance reasons.
func (s *ledgerService) Deposit(ctx context.Context, username string, amount decimal.Decimal) (account *domain.Account, transaction *domain.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe("deposit", start, err) }()

	if !amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: got %s", util.ErrInvalidAmount, amount)
	}

	unlock := s.lockAccount(username)
	defer unlock()

	account, err = s.repo.GetAccount(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	account.CashBalance = account.CashBalance.Add(amount)
	account.NetDeposits = account.NetDeposits.Add(amount)
	account.UpdatedAt = s.now()

	transaction = domain.NewCashTransaction(username, domain.TransactionTypeDeposit, amount, account.CashBalance, account.UpdatedAt)
	if err = s.repo.ApplyTransaction(ctx, account, transaction); err != nil {
		return nil, nil, fmt.Errorf("deposit: %w", err)
	}

	s.metrics.SetCashBalance(username, account.CashBalance.InexactFloat64())
	s.logger.Info("deposit", "username", username, "amount", amount.String(), "balance", account.CashBalance.String())
	return account, transaction, nil
}

// Withdraw removes cash from the account, rejecting amounts above the
// available balance before any state changes.
func (s *ledgerService) Withdraw(ctx context.Context, username string, amount decimal.Decimal) (account *domain.Account, transaction *domain.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe("withdraw", start, err) }()

	if !amount.IsPositive() {
		return nil, nil, fmt.Errorf("%w: got %s", util.ErrInvalidAmount, amount)
	}

	unlock := s.lockAccount(username)
	defer unlock()

	account, err = s.repo.GetAccount(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if amount.GreaterThan(account.CashBalance) {
		return nil, nil, &util.InsufficientFundsError{Requested: amount, Available: account.CashBalance}
	}

	account.CashBalance = account.CashBalance.Sub(amount)
	account.NetDeposits = account.NetDeposits.Sub(amount)
	account.UpdatedAt = s.now()

	transaction = domain.NewCashTransaction(username, domain.TransactionTypeWithdraw, amount.Neg(), account.CashBalance, account.UpdatedAt)
	if err = s.repo.ApplyTransaction(ctx, account, transaction); err != nil {
		return nil, nil, fmt.Errorf("withdraw: %w", err)
	}

	s.metrics.SetCashBalance(username, account.CashBalance.InexactFloat64())
	s.logger.Info("withdrawal", "username", username, "amount", amount.String(), "balance", account.CashBalance.String())
	return account, transaction, nil
}

// Buy purchases shares at the oracle price captured once for the operation.
func (s *ledgerService) Buy(ctx context.Context, username, symbol string, quantity int64) (account *domain.Account, transaction *domain.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe("buy", start, err) }()

	if quantity <= 0 {
		return nil, nil, fmt.Errorf("%w: got %d", util.ErrInvalidQuantity, quantity)
	}

	price, err := s.lookupPrice(symbol)
	if err != nil {
		return nil, nil, err
	}
	cost := price.Mul(decimal.NewFromInt(quantity))

	unlock := s.lockAccount(username)
	defer unlock()

	account, err = s.repo.GetAccount(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	if cost.GreaterThan(account.CashBalance) {
		return nil, nil, &util.InsufficientFundsError{Requested: cost, Available: account.CashBalance}
	}

	account.CashBalance = account.CashBalance.Sub(cost)
	account.SetHolding(symbol, account.HoldingQuantity(symbol)+quantity)
	account.UpdatedAt = s.now()

	transaction = domain.NewTradeTransaction(username, domain.TransactionTypeBuy, symbol, quantity, price, cost.Neg(), account.CashBalance, account.UpdatedAt)
	if err = s.repo.ApplyTransaction(ctx, account, transaction); err != nil {
		return nil, nil, fmt.Errorf("buy: %w", err)
	}

	s.metrics.SetCashBalance(username, account.CashBalance.InexactFloat64())
	s.logger.Info("buy", "username", username, "symbol", symbol, "quantity", quantity, "cost", cost.String())
	return account, transaction, nil
}

// Sell disposes shares the account owns. A zero position reports NotOwned;
// an undersized one reports InsufficientShares with the owned quantity.
func (s *ledgerService) Sell(ctx context.Context, username, symbol string, quantity int64) (account *domain.Account, transaction *domain.Transaction, err error) {
	start := time.Now()
	defer func() { s.observe("sell", start, err) }()

	if quantity <= 0 {
		return nil, nil, fmt.Errorf("%w: got %d", util.ErrInvalidQuantity, quantity)
	}

	unlock := s.lockAccount(username)
	defer unlock()

	account, err = s.repo.GetAccount(ctx, username)
	if err != nil {
		return nil, nil, err
	}
	owned := account.HoldingQuantity(symbol)
	if owned == 0 {
		return nil, nil, &util.NotOwnedError{Symbol: symbol}
	}
	if owned < quantity {
		return nil, nil, &util.InsufficientSharesError{Symbol: symbol, Requested: quantity, Owned: owned}
	}

	price, err := s.lookupPrice(symbol)
	if err != nil {
		return nil, nil, err
	}
	proceeds := price.Mul(decimal.NewFromInt(quantity))

	account.CashBalance = account.CashBalance.Add(proceeds)
	account.SetHolding(symbol, owned-quantity)
	account.UpdatedAt = s.now()

	transaction = domain.NewTradeTransaction(username, domain.TransactionTypeSell, symbol, quantity, price, proceeds, account.CashBalance, account.UpdatedAt)
	if err = s.repo.ApplyTransaction(ctx, account, transaction); err != nil {
		return nil, nil, fmt.Errorf("sell: %w", err)
	}

	s.metrics.SetCashBalance(username, account.CashBalance.InexactFloat64())
	s.logger.Info("sell", "username", username, "symbol", symbol, "quantity", quantity, "proceeds", proceeds.String())
	return account, transaction, nil
}

// GetAccount returns a snapshot of the account.
func (s *ledgerService) GetAccount(ctx context.Context, username string) (*domain.Account, error) {
	return s.repo.GetAccount(ctx, username)
}

// GetPortfolioMetrics values the portfolio at current oracle prices. Each
// symbol's price is looked up once and used for every derived figure. A
// failed lookup for an owned symbol propagates; values are never silently
// defaulted to zero.
func (s *ledgerService) GetPortfolioMetrics(ctx context.Context, username string) (*domain.PortfolioMetrics, error) {
	account, err := s.repo.GetAccount(ctx, username)
	if err != nil {
		return nil, err
	}

	portfolioValue := decimal.Zero
	for symbol, quantity := range account.Holdings {
		price, err := s.lookupPrice(symbol)
		if err != nil {
			return nil, err
		}
		portfolioValue = portfolioValue.Add(price.Mul(decimal.NewFromInt(quantity)))
	}

	totalValue := account.CashBalance.Add(portfolioValue)
	profitLoss := totalValue.Sub(account.NetDeposits)

	m := &domain.PortfolioMetrics{
		CashBalance:    account.CashBalance,
		PortfolioValue: portfolioValue,
		TotalValue:     totalValue,
		NetDeposits:    account.NetDeposits,
		ProfitLoss:     profitLoss,
	}
	if account.NetDeposits.IsPositive() {
		pct := profitLoss.Div(account.NetDeposits).Mul(decimal.NewFromInt(100)).Round(4)
		m.ProfitLossPct = &pct
	}
	return m, nil
}

// GetTransactionHistory returns the account's transactions newest first.
func (s *ledgerService) GetTransactionHistory(ctx context.Context, username string, limit, offset int) ([]domain.Transaction, int64, error) {
	return s.repo.ListTransactions(ctx, username, limit, offset)
}

// Audit replays the full transaction log from zero state and compares the
// result against the live account.
func (s *ledgerService) Audit(ctx context.Context, username string) (*AuditReport, error) {
	unlock := s.lockAccount(username)
	defer unlock()

	account, err := s.repo.GetAccount(ctx, username)
	if err != nil {
		return nil, err
	}
	transactions, total, err := s.repo.ListTransactions(ctx, username, 0, 0)
	if err != nil {
		return nil, err
	}

	// The repository returns newest first; replay needs chronological order.
	chronological := make([]domain.Transaction, len(transactions))
	for i, tx := range transactions {
		chronological[len(transactions)-1-i] = tx
	}

	replayed, err := domain.Replay(chronological)
	if err != nil {
		return nil, fmt.Errorf("audit of %q: %w", username, err)
	}

	return &AuditReport{
		Consistent:          replayed.Matches(account),
		CashBalance:         account.CashBalance,
		ReplayedCashBalance: replayed.CashBalance,
		Holdings:            account.Holdings,
		ReplayedHoldings:    replayed.Holdings,
		TransactionCount:    total,
	}, nil
}

// ListSymbols returns the supported universe with current prices.
func (s *ledgerService) ListSymbols() ([]SymbolQuote, error) {
	symbols := s.oracle.Symbols()
	quotes := make([]SymbolQuote, 0, len(symbols))
	for _, symbol := range symbols {
		price, err := s.lookupPrice(symbol)
		if err != nil {
			return nil, err
		}
		quotes = append(quotes, SymbolQuote{Symbol: symbol, Price: price})
	}
	return quotes, nil
}

// lookupPrice queries the oracle, normalizing non-universe failures into
// PriceUnavailable so callers always see one of the two documented kinds.
func (s *ledgerService) lookupPrice(symbol string) (decimal.Decimal, error) {
	price, err := s.oracle.Price(symbol)
	if err != nil {
		if util.IsError(err, util.ErrUnknownSymbol) {
			return decimal.Zero, err
		}
		return decimal.Zero, &util.PriceUnavailableError{Symbol: symbol, Err: err}
	}
	return price, nil
}
