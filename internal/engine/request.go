package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/foresight/trade-engine/internal/model"
)

// DefaultMaxSlippage is applied when a request omits max_slippage.
var DefaultMaxSlippage = decimal.NewFromFloat(0.05)

// OrderRequest is the typed order submission consumed by the engine. The
// transport layer decodes JSON into it; no field is trusted beyond what
// normalize checks. Shares is accepted for wire compatibility but ignored;
// fill size is always recomputed server-side from amount and price.
type OrderRequest struct {
	UserID      string           `json:"user_id"`
	MarketID    string           `json:"market_id"`
	Type        model.OrderType  `json:"type"`
	Side        model.Side       `json:"side"`
	Outcome     model.Outcome    `json:"outcome"`
	Amount      decimal.Decimal  `json:"amount"`
	LimitPrice  *decimal.Decimal `json:"limit_price,omitempty"`
	MinPrice    *decimal.Decimal `json:"min_price,omitempty"`
	MaxPrice    *decimal.Decimal `json:"max_price,omitempty"`
	MaxSlippage decimal.Decimal  `json:"max_slippage"`
	Shares      decimal.Decimal  `json:"shares"` // ignored, see above
}

// normalize validates the request and fills defaults. All failures are
// ErrInvalidOrder with a field-specific message.
func (r *OrderRequest) normalize() error {
	if r.UserID == "" {
		return fmt.Errorf("%w: user_id is required", ErrInvalidOrder)
	}
	if r.MarketID == "" {
		return fmt.Errorf("%w: market_id is required", ErrInvalidOrder)
	}
	if r.Type != model.OrderTypeMarket && r.Type != model.OrderTypeLimit {
		return fmt.Errorf("%w: type must be market or limit", ErrInvalidOrder)
	}
	if r.Side != model.SideBuy && r.Side != model.SideSell {
		return fmt.Errorf("%w: side must be buy or sell", ErrInvalidOrder)
	}
	if r.Outcome != model.OutcomeYes && r.Outcome != model.OutcomeNo {
		return fmt.Errorf("%w: outcome must be yes or no", ErrInvalidOrder)
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	}
	if r.Type == model.OrderTypeLimit {
		if r.LimitPrice == nil || r.LimitPrice.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: limit orders require a positive limit_price", ErrInvalidOrder)
		}
	}
	if r.MaxSlippage.IsNegative() {
		return fmt.Errorf("%w: max_slippage must be non-negative", ErrInvalidOrder)
	}
	if r.MaxSlippage.IsZero() {
		r.MaxSlippage = DefaultMaxSlippage
	}
	return nil
}
