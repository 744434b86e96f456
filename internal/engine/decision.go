package engine

import (
	"github.com/shopspring/decimal"

	"github.com/foresight/trade-engine/internal/model"
)

// decide is the one-shot execution decision for an order against the pinned
// quote. Market orders always execute at the quoted price. Limit buys
// execute when the quote is at or below the limit; limit sells when at or
// above. A false result means the order rests as pending and is never
// re-evaluated by this engine.
func decide(req *OrderRequest, quoted decimal.Decimal) (canExecute bool, executionPrice decimal.Decimal) {
	if req.Type == model.OrderTypeMarket {
		return true, quoted
	}

	limit := *req.LimitPrice
	if req.Side == model.SideBuy {
		if quoted.GreaterThan(limit) {
			return false, decimal.Decimal{}
		}
		return true, decimal.Min(quoted, limit)
	}

	if quoted.LessThan(limit) {
		return false, decimal.Decimal{}
	}
	return true, decimal.Max(quoted, limit)
}

// checkBounds enforces the absolute min/max price bounds and the slippage
// envelope around the quoted price. Called only when decide allowed
// execution, before any ledger write.
func checkBounds(req *OrderRequest, executionPrice, quoted decimal.Decimal) error {
	one := decimal.NewFromInt(1)

	if req.Side == model.SideBuy {
		if req.MaxPrice != nil && executionPrice.GreaterThan(*req.MaxPrice) {
			return ErrPriceAboveMax
		}
		bound := quoted.Mul(one.Add(req.MaxSlippage))
		if executionPrice.GreaterThan(bound) {
			return ErrSlippageExceeded
		}
		return nil
	}

	if req.MinPrice != nil && executionPrice.LessThan(*req.MinPrice) {
		return ErrPriceBelowMin
	}
	bound := quoted.Mul(one.Sub(req.MaxSlippage))
	if executionPrice.LessThan(bound) {
		return ErrSlippageExceeded
	}
	return nil
}
