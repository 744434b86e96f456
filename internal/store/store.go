// Package store defines the ledger gateway for the trade engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/foresight/trade-engine/internal/model"
)

// ErrNotFound is wrapped by implementations when a keyed record is absent.
// Any other error means a connectivity or constraint failure.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. Every operation is keyed and returns
// durable state; no atomicity is guaranteed across calls except through
// CommitSettlement, which applies a whole settlement batch or nothing.
type Store interface {
	// --- Markets ---

	// CreateMarket persists a new market.
	CreateMarket(ctx context.Context, m *model.Market) error

	// GetMarket retrieves a market by ID.
	GetMarket(ctx context.Context, id string) (*model.Market, error)

	// ListMarkets returns all markets.
	ListMarkets(ctx context.Context) ([]model.Market, error)

	// --- Balances ---

	// GetBalance retrieves a user's cash balance.
	GetBalance(ctx context.Context, userID string) (*model.Balance, error)

	// UpsertBalance creates or replaces a user's cash balance.
	UpsertBalance(ctx context.Context, b *model.Balance) error

	// --- Positions ---

	// GetPosition retrieves the position for (user, market, outcome).
	GetPosition(ctx context.Context, userID, marketID string, outcome model.Outcome) (*model.Position, error)

	// ListUserPositions returns all of a user's positions.
	ListUserPositions(ctx context.Context, userID string) ([]model.Position, error)

	// --- Orders ---

	// CreateOrder persists a new order in pending state.
	CreateOrder(ctx context.Context, o *model.Order) error

	// GetOrder retrieves an order by ID.
	GetOrder(ctx context.Context, id string) (*model.Order, error)

	// UpdateOrderStatus transitions an order to a terminal status.
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error

	// --- Trades (immutable) ---

	// ListTradesByMarket returns all trades for a market, oldest first.
	ListTradesByMarket(ctx context.Context, marketID string) ([]model.Trade, error)

	// ListTradesByUser returns all trades for a user, oldest first.
	ListTradesByUser(ctx context.Context, userID string) ([]model.Trade, error)

	// --- Settlement ---

	// CommitSettlement applies the trade insert, order fill, balance write,
	// position write, and market quote update as one all-or-nothing unit.
	CommitSettlement(ctx context.Context, batch *model.SettlementBatch) error
}
