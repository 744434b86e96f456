package engine

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foresight/trade-engine/internal/model"
)

// Position ledger: weighted-average-cost accounting for long-only positions.
//
// Buys fold the trade notional into the cost basis and recompute the
// average entry price. Sells reduce shares and cost basis at the old
// average price, leaving AvgPrice untouched; realized P&L is derivable by
// the caller from trade history and is not stored. TotalCost is floor
// clamped at zero, so after repeated partial sells it can diverge slightly
// from shares × avgPrice. That divergence is intentional and covered by
// tests.

// openPosition opens a position on the first buy for (user, market, outcome).
func openPosition(userID, marketID string, outcome model.Outcome, shares, price, amount decimal.Decimal, now time.Time) *model.Position {
	return &model.Position{
		ID:        uuid.New().String(),
		UserID:    userID,
		MarketID:  marketID,
		Outcome:   outcome,
		Shares:    shares,
		AvgPrice:  price,
		TotalCost: amount,
		UpdatedAt: now,
	}
}

// increasePosition applies a buy of tradeShares for tradeAmount notional.
func increasePosition(p *model.Position, tradeShares, tradeAmount decimal.Decimal, now time.Time) {
	p.Shares = p.Shares.Add(tradeShares)
	p.TotalCost = p.TotalCost.Add(tradeAmount)
	p.AvgPrice = p.TotalCost.Div(p.Shares)
	p.UpdatedAt = now
}

// decreasePosition applies a sell of tradeShares. A full (or over-rounded)
// close zeroes shares and cost basis but keeps AvgPrice for display.
func decreasePosition(p *model.Position, tradeShares decimal.Decimal, now time.Time) {
	newShares := p.Shares.Sub(tradeShares)
	if newShares.LessThanOrEqual(decimal.Zero) {
		p.Shares = decimal.Zero
		p.TotalCost = decimal.Zero
		p.UpdatedAt = now
		return
	}

	costReduction := tradeShares.Mul(p.AvgPrice)
	newCost := p.TotalCost.Sub(costReduction)
	if newCost.IsNegative() {
		newCost = decimal.Zero
	}
	p.Shares = newShares
	p.TotalCost = newCost
	p.UpdatedAt = now
}
