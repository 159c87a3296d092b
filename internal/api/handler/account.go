// internal/api/handler/account.go
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"tradesim-ledger/internal/domain"
	"tradesim-ledger/internal/service"
	"tradesim-ledger/internal/util"
)

// DefaultTimeout bounds request handling time at the router level.
const DefaultTimeout = 30 * time.Second

// AccountHandler handles HTTP requests against the account ledger.
type AccountHandler struct {
	service service.LedgerService
	logger  *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc service.LedgerService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		service: svc,
		logger:  logger,
	}
}

func (h *AccountHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// respondWithError maps the ledger's failure kinds onto HTTP status codes.
// The typed errors already carry the data needed for a precise message, so
// their Error() output is returned as-is.
func (h *AccountHandler) respondWithError(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput),
		util.IsError(err, util.ErrInvalidAmount),
		util.IsError(err, util.ErrInvalidQuantity):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrAccountNotFound):
		statusCode = http.StatusNotFound
		message = err.Error()
	case util.IsError(err, util.ErrUnknownSymbol):
		statusCode = http.StatusNotFound
		message = err.Error()
	case util.IsError(err, util.ErrDuplicateUsername):
		statusCode = http.StatusConflict
		message = err.Error()
	case util.IsError(err, util.ErrInsufficientFunds):
		statusCode = http.StatusPaymentRequired
		message = err.Error()
	case util.IsError(err, util.ErrNotOwned), util.IsError(err, util.ErrInsufficientShares):
		statusCode = http.StatusUnprocessableEntity
		message = err.Error()
	case util.IsError(err, util.ErrPriceUnavailable):
		statusCode = http.StatusBadGateway
		message = err.Error()
	default:
		h.logger.Error("unhandled service error", "error", err)
	}

	h.respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// CreateAccountRequest represents the request body for account creation.
type CreateAccountRequest struct {
	Username       string          `json:"username"`
	InitialDeposit decimal.Decimal `json:"initial_deposit"`
}

// CreateAccount handles account creation.
// POST /accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	account, err := h.service.CreateAccount(r.Context(), req.Username, req.InitialDeposit)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusCreated, account)
}

// AmountRequest represents the request body for deposit and withdraw.
type AmountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// Deposit handles the deposit request.
// POST /accounts/{username}/deposit
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	account, transaction, err := h.service.Deposit(r.Context(), username, req.Amount)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Deposit successful",
		"username":       account.Username,
		"new_balance":    account.CashBalance,
		"transaction_id": transaction.ID,
	})
}

// Withdraw handles the withdraw request.
// POST /accounts/{username}/withdraw
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req AmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	account, transaction, err := h.service.Withdraw(r.Context(), username, req.Amount)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":        "Withdrawal successful",
		"username":       account.Username,
		"new_balance":    account.CashBalance,
		"transaction_id": transaction.ID,
	})
}

// TradeRequest represents the request body for buy and sell.
type TradeRequest struct {
	Symbol   string `json:"symbol"`
	Quantity int64  `json:"quantity"`
}

// Buy handles the buy request.
// POST /accounts/{username}/buy
func (h *AccountHandler) Buy(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.service.Buy, "Buy order executed")
}

// Sell handles the sell request.
// POST /accounts/{username}/sell
func (h *AccountHandler) Sell(w http.ResponseWriter, r *http.Request) {
	h.trade(w, r, h.service.Sell, "Sell order executed")
}

func (h *AccountHandler) trade(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, username, symbol string, quantity int64) (*domain.Account, *domain.Transaction, error),
	message string,
) {
	username := chi.URLParam(r, "username")

	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondWithError(w, util.ErrInvalidInput)
		return
	}

	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	account, transaction, err := op(r.Context(), username, symbol, req.Quantity)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"message":        message,
		"username":       account.Username,
		"new_balance":    account.CashBalance,
		"holding_qty":    account.HoldingQuantity(symbol),
		"transaction_id": transaction.ID,
	})
}

// GetBalance handles the balance request.
// GET /accounts/{username}/balance
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	account, err := h.service.GetAccount(r.Context(), username)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"username":     account.Username,
		"cash_balance": account.CashBalance,
		"holdings":     account.Holdings,
	})
}

// GetPortfolio handles the portfolio metrics request.
// GET /accounts/{username}/portfolio
func (h *AccountHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	metrics, err := h.service.GetPortfolioMetrics(r.Context(), username)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, metrics)
}

// HistoryResponse is the paginated transaction history payload.
type HistoryResponse struct {
	Data       []domain.Transaction `json:"data"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
	TotalCount int64                `json:"total_count"`
}

// GetTransactionHistory handles the history request, newest first.
// GET /accounts/{username}/transactions
func (h *AccountHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 10
	}
	offset, err := strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		offset = 0
	}

	transactions, total, err := h.service.GetTransactionHistory(r.Context(), username, limit, offset)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, HistoryResponse{
		Data:       transactions,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}

// Audit handles the ledger replay audit request.
// GET /accounts/{username}/audit
func (h *AccountHandler) Audit(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	report, err := h.service.Audit(r.Context(), username)
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, report)
}

// ListSymbols handles the supported-universe request.
// GET /symbols
func (h *AccountHandler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	quotes, err := h.service.ListSymbols()
	if err != nil {
		h.respondWithError(w, err)
		return
	}

	h.respondWithJSON(w, http.StatusOK, map[string]interface{}{"symbols": quotes})
}
