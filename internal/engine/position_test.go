package engine

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foresight/trade-engine/internal/model"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestOpenPosition(t *testing.T) {
	now := time.Now().UTC()
	p := openPosition("u1", "m1", model.OutcomeYes, d(200), d(0.5), d(100), now)

	require.NotEmpty(t, p.ID)
	assert.True(t, p.Shares.Equal(d(200)))
	assert.True(t, p.AvgPrice.Equal(d(0.5)))
	assert.True(t, p.TotalCost.Equal(d(100)))
}

func TestIncreasePosition_WeightedAverage(t *testing.T) {
	now := time.Now().UTC()
	p := openPosition("u1", "m1", model.OutcomeYes, d(200), d(0.5), d(100), now)

	// Second buy at 0.6: 100 notional for 166.66... shares.
	shares := d(100).Div(d(0.6))
	increasePosition(p, shares, d(100), now)

	assert.True(t, p.Shares.Equal(d(200).Add(shares)))
	assert.True(t, p.TotalCost.Equal(d(200)))
	// avg = 200 / (200 + 166.66...) ≈ 0.5454
	assert.True(t, p.AvgPrice.Equal(d(200).Div(d(200).Add(shares))))
}

func TestDecreasePosition_Partial(t *testing.T) {
	now := time.Now().UTC()
	p := openPosition("u1", "m1", model.OutcomeYes, d(200), d(0.5), d(100), now)

	decreasePosition(p, d(100), now)

	assert.True(t, p.Shares.Equal(d(100)))
	// costReduction = 100 × 0.50 = 50
	assert.True(t, p.TotalCost.Equal(d(50)))
	assert.True(t, p.AvgPrice.Equal(d(0.5)), "avg price must not change on sells")
}

func TestDecreasePosition_FullClose(t *testing.T) {
	now := time.Now().UTC()
	p := openPosition("u1", "m1", model.OutcomeYes, d(200), d(0.5), d(100), now)

	decreasePosition(p, d(200), now)

	assert.True(t, p.Shares.IsZero())
	assert.True(t, p.TotalCost.IsZero())
	assert.True(t, p.AvgPrice.Equal(d(0.5)), "avg price survives a full close")
}

func TestDecreasePosition_OverCloseClampsToZero(t *testing.T) {
	now := time.Now().UTC()
	p := openPosition("u1", "m1", model.OutcomeYes, d(200), d(0.5), d(100), now)

	decreasePosition(p, d(250), now)

	assert.True(t, p.Shares.IsZero())
	assert.True(t, p.TotalCost.IsZero())
}

// Cost basis is floor-clamped at zero while avg price never moves on sells,
// so totalCost and shares × avgPrice may diverge once the clamp engages
// (e.g. after rounding drift from earlier partial sells). That approximation
// is deliberate; this test documents it rather than "fixing" it.
func TestDecreasePosition_CostBasisClampDivergence(t *testing.T) {
	now := time.Now().UTC()
	p := &model.Position{
		UserID:    "u1",
		MarketID:  "m1",
		Outcome:   model.OutcomeYes,
		Shares:    d(10),
		AvgPrice:  d(0.6),
		TotalCost: d(1), // drifted below shares × avgPrice
	}

	decreasePosition(p, d(5), now)

	require.True(t, p.Shares.Equal(d(5)))
	// costReduction = 5 × 0.6 = 3 > 1, clamped at zero.
	assert.True(t, p.TotalCost.IsZero())
	assert.True(t, p.AvgPrice.Equal(d(0.6)))
	assert.False(t, p.TotalCost.Equal(p.Shares.Mul(p.AvgPrice)))
}
