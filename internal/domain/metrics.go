// internal/domain/metrics.go
package domain

import "github.com/shopspring/decimal"

// PortfolioMetrics is a read-only valuation snapshot of an account. All
// values are computed from one set of prices captured at query time.
type PortfolioMetrics struct {
	CashBalance    decimal.Decimal  `json:"cash_balance"`
	PortfolioValue decimal.Decimal  `json:"portfolio_value"` // Market value of all holdings
	TotalValue     decimal.Decimal  `json:"total_value"`     // CashBalance + PortfolioValue
	NetDeposits    decimal.Decimal  `json:"net_deposits"`
	ProfitLoss     decimal.Decimal  `json:"profit_loss"` // TotalValue - NetDeposits
	ProfitLossPct  *decimal.Decimal `json:"profit_loss_pct,omitempty"` // Only when NetDeposits > 0
}
