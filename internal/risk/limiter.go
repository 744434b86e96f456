// Package risk enforces notional limits on order flow.
//
// Limits are deliberately coarse: a cap on single-order notional and a cap
// on a user's accumulated cost basis in one market. Both protect the
// constant-impact maker from a single account dominating a market's price path.
package risk

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderTooLarge is returned when a single order's notional exceeds
	// the per-order maximum.
	ErrOrderTooLarge = errors.New("risk: order notional exceeds per-order limit")

	// ErrExposureLimitExceeded is returned when a buy would push the user's
	// cost basis in one market beyond the per-market maximum.
	ErrExposureLimitExceeded = errors.New("risk: per-market exposure limit exceeded")
)

// Limiter enforces notional limits. A non-positive limit disables that check.
type Limiter struct {
	// MaxOrderNotional is the maximum notional of any single order.
	MaxOrderNotional decimal.Decimal

	// MaxMarketExposure is the maximum cost basis a user may accumulate in
	// one market's outcome.
	MaxMarketExposure decimal.Decimal
}

// NewLimiter creates a limiter with the given per-order and per-market caps.
func NewLimiter(maxOrderNotional, maxMarketExposure decimal.Decimal) *Limiter {
	return &Limiter{
		MaxOrderNotional:  maxOrderNotional,
		MaxMarketExposure: maxMarketExposure,
	}
}

// CheckBuy validates a buy of the given notional against the user's current
// cost basis in the target market. Sells only reduce exposure and are not
// limited.
func (l *Limiter) CheckBuy(notional, currentExposure decimal.Decimal) error {
	if l.MaxOrderNotional.IsPositive() && notional.GreaterThan(l.MaxOrderNotional) {
		return ErrOrderTooLarge
	}
	if l.MaxMarketExposure.IsPositive() &&
		currentExposure.Add(notional).GreaterThan(l.MaxMarketExposure) {
		return ErrExposureLimitExceeded
	}
	return nil
}
