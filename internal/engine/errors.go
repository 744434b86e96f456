package engine

import (
	"errors"
	"fmt"
)

// Business-rule failures are all detected before any ledger write; the
// caller maps each kind to an HTTP status. ErrStorage is the one kind that
// can occur mid-settlement, in which case the store rolls the batch back.
var (
	// ErrMarketNotFound is returned when the requested market does not exist.
	ErrMarketNotFound = errors.New("engine: market not found")

	// ErrOrderNotFound is returned when the requested order does not exist.
	ErrOrderNotFound = errors.New("engine: order not found")

	// ErrBalanceNotFound is returned when the user has no cash balance.
	ErrBalanceNotFound = errors.New("engine: balance not found")

	// ErrMarketClosed is returned when the market is not active.
	ErrMarketClosed = errors.New("engine: market is not open for trading")

	// ErrInsufficientBalance is returned when a buy exceeds the user's cash.
	ErrInsufficientBalance = errors.New("engine: insufficient balance")

	// ErrInsufficientShares is returned when a sell exceeds the held shares.
	ErrInsufficientShares = errors.New("engine: insufficient shares")

	// ErrInvalidOrder is returned when required fields for the order type
	// are missing or malformed.
	ErrInvalidOrder = errors.New("engine: invalid order")

	// ErrPriceAboveMax is returned when a buy would execute above max_price.
	ErrPriceAboveMax = errors.New("engine: execution price above max price")

	// ErrPriceBelowMin is returned when a sell would execute below min_price.
	ErrPriceBelowMin = errors.New("engine: execution price below min price")

	// ErrSlippageExceeded is returned when the execution price breaches the
	// slippage bound derived from the quoted price.
	ErrSlippageExceeded = errors.New("engine: slippage tolerance exceeded")

	// ErrStorage wraps ledger gateway failures.
	ErrStorage = errors.New("engine: storage error")
)

// storageErr tags a gateway failure with ErrStorage while keeping the
// underlying chain inspectable.
func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
