// internal/util/errors.go
package util

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Common application-specific errors. Handlers and tests match on these with
// errors.Is; the typed structs below wrap them and carry the data needed to
// render a precise message.
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidInput       = errors.New("invalid input provided")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInvalidQuantity    = errors.New("quantity must be a positive integer")
	ErrUnknownSymbol      = errors.New("unknown or unsupported symbol")
	ErrPriceUnavailable   = errors.New("price unavailable")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrNotOwned           = errors.New("no shares of this symbol owned")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// IsError reports whether err matches the target sentinel.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// InsufficientFundsError reports a withdrawal or purchase that exceeds the
// available cash balance. Requested is the withdrawal amount or the total
// purchase cost.
type InsufficientFundsError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: requested %s, available %s", e.Requested, e.Available)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// UnknownSymbolError reports a symbol outside the supported universe.
type UnknownSymbolError struct {
	Symbol string
}

func (e *UnknownSymbolError) Error() string {
	return fmt.Sprintf("unknown or unsupported symbol %q", e.Symbol)
}

func (e *UnknownSymbolError) Unwrap() error { return ErrUnknownSymbol }

// PriceUnavailableError reports a failed price lookup for a supported symbol.
type PriceUnavailableError struct {
	Symbol string
	Err    error
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("price unavailable for %s: %v", e.Symbol, e.Err)
}

func (e *PriceUnavailableError) Unwrap() error { return ErrPriceUnavailable }

// NotOwnedError reports a sell of a symbol with zero owned quantity.
type NotOwnedError struct {
	Symbol string
}

func (e *NotOwnedError) Error() string {
	return fmt.Sprintf("no shares of %s owned", e.Symbol)
}

func (e *NotOwnedError) Unwrap() error { return ErrNotOwned }

// InsufficientSharesError reports a sell larger than the owned quantity
// (which is known to be greater than zero).
type InsufficientSharesError struct {
	Symbol    string
	Requested int64
	Owned     int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of %s: requested %d, owned %d", e.Symbol, e.Requested, e.Owned)
}

func (e *InsufficientSharesError) Unwrap() error { return ErrInsufficientShares }
