package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/foresight/trade-engine/internal/model"
)

func ptr(f float64) *decimal.Decimal {
	v := decimal.NewFromFloat(f)
	return &v
}

func TestDecide_MarketOrderAlwaysExecutes(t *testing.T) {
	req := &OrderRequest{Type: model.OrderTypeMarket, Side: model.SideBuy}
	can, price := decide(req, d(0.73))
	assert.True(t, can)
	assert.True(t, price.Equal(d(0.73)))
}

func TestDecide_LimitBuy(t *testing.T) {
	tests := []struct {
		name   string
		quoted float64
		limit  float64
		can    bool
		price  float64
	}{
		{"quoted below limit executes at quoted", 0.40, 0.50, true, 0.40},
		{"quoted at limit executes", 0.50, 0.50, true, 0.50},
		{"quoted above limit rests", 0.52, 0.40, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &OrderRequest{Type: model.OrderTypeLimit, Side: model.SideBuy, LimitPrice: ptr(tt.limit)}
			can, price := decide(req, d(tt.quoted))
			assert.Equal(t, tt.can, can)
			if tt.can {
				assert.True(t, price.Equal(d(tt.price)))
			}
		})
	}
}

func TestDecide_LimitSell(t *testing.T) {
	tests := []struct {
		name   string
		quoted float64
		limit  float64
		can    bool
		price  float64
	}{
		{"quoted above limit executes at quoted", 0.60, 0.50, true, 0.60},
		{"quoted at limit executes", 0.50, 0.50, true, 0.50},
		{"quoted below limit rests", 0.45, 0.50, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &OrderRequest{Type: model.OrderTypeLimit, Side: model.SideSell, LimitPrice: ptr(tt.limit)}
			can, price := decide(req, d(tt.quoted))
			assert.Equal(t, tt.can, can)
			if tt.can {
				assert.True(t, price.Equal(d(tt.price)))
			}
		})
	}
}

func TestCheckBounds_MaxPrice(t *testing.T) {
	req := &OrderRequest{Side: model.SideBuy, MaxPrice: ptr(0.45), MaxSlippage: d(0.05)}
	assert.ErrorIs(t, checkBounds(req, d(0.50), d(0.50)), ErrPriceAboveMax)
	assert.NoError(t, checkBounds(req, d(0.45), d(0.45)))
}

func TestCheckBounds_MinPrice(t *testing.T) {
	req := &OrderRequest{Side: model.SideSell, MinPrice: ptr(0.55), MaxSlippage: d(0.05)}
	assert.ErrorIs(t, checkBounds(req, d(0.50), d(0.50)), ErrPriceBelowMin)
	assert.NoError(t, checkBounds(req, d(0.55), d(0.55)))
}

func TestCheckBounds_SlippageBuy(t *testing.T) {
	req := &OrderRequest{Side: model.SideBuy, MaxSlippage: d(0.05)}
	// bound = 0.50 × 1.05 = 0.525
	assert.ErrorIs(t, checkBounds(req, d(0.53), d(0.50)), ErrSlippageExceeded)
	assert.NoError(t, checkBounds(req, d(0.52), d(0.50)))
}

func TestCheckBounds_SlippageSell(t *testing.T) {
	req := &OrderRequest{Side: model.SideSell, MaxSlippage: d(0.05)}
	// bound = 0.50 × 0.95 = 0.475
	assert.ErrorIs(t, checkBounds(req, d(0.47), d(0.50)), ErrSlippageExceeded)
	assert.NoError(t, checkBounds(req, d(0.48), d(0.50)))
}

func TestNormalize_Defaults(t *testing.T) {
	req := &OrderRequest{
		UserID:   "u1",
		MarketID: "m1",
		Type:     model.OrderTypeMarket,
		Side:     model.SideBuy,
		Outcome:  model.OutcomeYes,
		Amount:   d(100),
	}
	assert.NoError(t, req.normalize())
	assert.True(t, req.MaxSlippage.Equal(DefaultMaxSlippage))
}

func TestNormalize_Rejections(t *testing.T) {
	base := func() *OrderRequest {
		return &OrderRequest{
			UserID:   "u1",
			MarketID: "m1",
			Type:     model.OrderTypeMarket,
			Side:     model.SideBuy,
			Outcome:  model.OutcomeYes,
			Amount:   d(100),
		}
	}

	tests := []struct {
		name   string
		mutate func(*OrderRequest)
	}{
		{"missing user", func(r *OrderRequest) { r.UserID = "" }},
		{"missing market", func(r *OrderRequest) { r.MarketID = "" }},
		{"bad type", func(r *OrderRequest) { r.Type = "stop" }},
		{"bad side", func(r *OrderRequest) { r.Side = "short" }},
		{"bad outcome", func(r *OrderRequest) { r.Outcome = "maybe" }},
		{"zero amount", func(r *OrderRequest) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *OrderRequest) { r.Amount = d(-5) }},
		{"limit without price", func(r *OrderRequest) { r.Type = model.OrderTypeLimit }},
		{"negative slippage", func(r *OrderRequest) { r.MaxSlippage = d(-0.1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)
			assert.ErrorIs(t, req.normalize(), ErrInvalidOrder)
		})
	}
}
