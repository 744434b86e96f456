package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foresight/trade-engine/internal/model"
)

func testMarket(id string) *model.Market {
	return &model.Market{
		ID:        id,
		Question:  "Test question?",
		YesPrice:  decimal.NewFromFloat(0.5),
		NoPrice:   decimal.NewFromFloat(0.5),
		Liquidity: decimal.NewFromInt(1000),
		Status:    model.MarketStatusActive,
		CreatedAt: time.Now().UTC(),
	}
}

func TestMemoryStore_MarketRoundtrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateMarket(ctx, testMarket("m1")))
	assert.Error(t, s.CreateMarket(ctx, testMarket("m1")), "duplicate IDs are rejected")

	got, err := s.GetMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)

	_, err = s.GetMarket(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	// Mutating the returned copy must not leak into the store.
	got.YesPrice = decimal.NewFromFloat(0.9)
	again, err := s.GetMarket(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, again.YesPrice.Equal(decimal.NewFromFloat(0.5)))

	markets, err := s.ListMarkets(ctx)
	require.NoError(t, err)
	assert.Len(t, markets, 1)
}

func TestMemoryStore_BalanceUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.GetBalance(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertBalance(ctx, &model.Balance{UserID: "u1", Amount: decimal.NewFromInt(100)}))
	require.NoError(t, s.UpsertBalance(ctx, &model.Balance{UserID: "u1", Amount: decimal.NewFromInt(250)}))

	b, err := s.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, b.Amount.Equal(decimal.NewFromInt(250)))
}

func TestMemoryStore_PositionsKeyedByOutcome(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	yes := &model.Position{
		ID: uuid.NewString(), UserID: "u1", MarketID: "m1",
		Outcome: model.OutcomeYes, Shares: decimal.NewFromInt(10),
	}
	no := &model.Position{
		ID: uuid.NewString(), UserID: "u1", MarketID: "m1",
		Outcome: model.OutcomeNo, Shares: decimal.NewFromInt(20),
	}
	s.mu.Lock()
	s.positions[positionKey(yes.UserID, yes.MarketID, yes.Outcome)] = yes
	s.positions[positionKey(no.UserID, no.MarketID, no.Outcome)] = no
	s.mu.Unlock()

	got, err := s.GetPosition(ctx, "u1", "m1", model.OutcomeYes)
	require.NoError(t, err)
	assert.True(t, got.Shares.Equal(decimal.NewFromInt(10)))

	got, err = s.GetPosition(ctx, "u1", "m1", model.OutcomeNo)
	require.NoError(t, err)
	assert.True(t, got.Shares.Equal(decimal.NewFromInt(20)))

	_, err = s.GetPosition(ctx, "u2", "m1", model.OutcomeYes)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := s.ListUserPositions(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemoryStore_OrderStatus(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	order := &model.Order{
		ID: uuid.NewString(), UserID: "u1", MarketID: "m1",
		Status: model.OrderStatusPending,
	}
	require.NoError(t, s.CreateOrder(ctx, order))
	assert.Equal(t, 1, s.OrderCount())

	require.NoError(t, s.UpdateOrderStatus(ctx, order.ID, model.OrderStatusCancelled))
	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, got.Status)

	assert.ErrorIs(t, s.UpdateOrderStatus(ctx, "missing", model.OrderStatusFilled), ErrNotFound)
}

func TestMemoryStore_CommitSettlement(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.CreateMarket(ctx, testMarket("m1")))
	order := &model.Order{
		ID: uuid.NewString(), UserID: "u1", MarketID: "m1",
		Status: model.OrderStatusPending,
	}
	require.NoError(t, s.CreateOrder(ctx, order))

	filled := *order
	filled.Status = model.OrderStatusFilled
	batch := &model.SettlementBatch{
		Trade: &model.Trade{
			ID: uuid.NewString(), MarketID: "m1", OrderID: order.ID,
			BuyerID: "u1", Shares: decimal.NewFromInt(200),
			Price: decimal.NewFromFloat(0.5),
		},
		Order:   &filled,
		Balance: &model.Balance{UserID: "u1", Amount: decimal.NewFromInt(900)},
		Position: &model.Position{
			ID: uuid.NewString(), UserID: "u1", MarketID: "m1",
			Outcome: model.OutcomeYes, Shares: decimal.NewFromInt(200),
		},
		PositionCreated: true,
		Market:          testMarket("m1"),
	}
	batch.Market.YesPrice = decimal.NewFromFloat(0.52)
	batch.Market.NoPrice = decimal.NewFromFloat(0.48)
	batch.Market.Volume = decimal.NewFromInt(100)

	require.NoError(t, s.CommitSettlement(ctx, batch))

	gotOrder, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusFilled, gotOrder.Status)

	gotBalance, err := s.GetBalance(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, gotBalance.Amount.Equal(decimal.NewFromInt(900)))

	gotPosition, err := s.GetPosition(ctx, "u1", "m1", model.OutcomeYes)
	require.NoError(t, err)
	assert.True(t, gotPosition.Shares.Equal(decimal.NewFromInt(200)))

	gotMarket, err := s.GetMarket(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, gotMarket.YesPrice.Equal(decimal.NewFromFloat(0.52)))

	trades, err := s.ListTradesByMarket(ctx, "m1")
	require.NoError(t, err)
	assert.Len(t, trades, 1)
}

func TestMemoryStore_CommitSettlementValidatesUpFront(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.CreateMarket(ctx, testMarket("m1")))

	batch := &model.SettlementBatch{
		Trade:    &model.Trade{ID: uuid.NewString(), MarketID: "m1", BuyerID: "u1"},
		Order:    &model.Order{ID: "never-created", Status: model.OrderStatusFilled},
		Balance:  &model.Balance{UserID: "u1", Amount: decimal.NewFromInt(900)},
		Position: &model.Position{ID: uuid.NewString(), UserID: "u1", MarketID: "m1", Outcome: model.OutcomeYes},
		Market:   testMarket("m1"),
	}

	err := s.CommitSettlement(ctx, batch)
	assert.ErrorIs(t, err, ErrNotFound)

	// Nothing was applied.
	trades, _ := s.ListTradesByMarket(ctx, "m1")
	assert.Empty(t, trades)
	_, err = s.GetBalance(ctx, "u1")
	assert.ErrorIs(t, err, ErrNotFound)
}
