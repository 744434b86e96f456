// Package model defines the core domain types shared across the trade engine.
// All monetary values use shopspring/decimal rather than float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Outcome is the side of a binary market a position or order references.
type Outcome string

const (
	OutcomeYes Outcome = "yes"
	OutcomeNo  Outcome = "no"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderType distinguishes immediate execution from price-conditional orders.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus is the lifecycle state of an order. An order transitions out
// of pending at most once; this engine never revisits a resting order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// MarketStatus is the trading state of a market. Only active markets
// accept orders.
type MarketStatus string

const (
	MarketStatusActive    MarketStatus = "active"
	MarketStatusResolved  MarketStatus = "resolved"
	MarketStatusDisputed  MarketStatus = "disputed"
	MarketStatusCancelled MarketStatus = "cancelled"
)

// Market represents the state of a binary-outcome prediction market.
// Invariant: YesPrice + NoPrice == 1 at all times.
type Market struct {
	ID         string          `json:"id" db:"id"`
	Question   string          `json:"question" db:"question"`
	YesPrice   decimal.Decimal `json:"yes_price" db:"yes_price"`
	NoPrice    decimal.Decimal `json:"no_price" db:"no_price"`
	Volume     decimal.Decimal `json:"volume" db:"volume"` // cumulative notional
	Liquidity  decimal.Decimal `json:"liquidity" db:"liquidity"`
	TradingFee decimal.Decimal `json:"trading_fee" db:"trading_fee"`
	Status     MarketStatus    `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// Price returns the current quote for one outcome.
func (m *Market) Price(outcome Outcome) decimal.Decimal {
	if outcome == OutcomeYes {
		return m.YesPrice
	}
	return m.NoPrice
}

// Position is a trader's holding in one outcome of one market, keyed by
// (UserID, MarketID, Outcome). Never deleted; zeroed out when fully closed.
type Position struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	MarketID  string          `json:"market_id" db:"market_id"`
	Outcome   Outcome         `json:"outcome" db:"outcome"`
	Shares    decimal.Decimal `json:"shares" db:"shares"`
	AvgPrice  decimal.Decimal `json:"avg_price" db:"avg_price"`   // weighted average entry
	TotalCost decimal.Decimal `json:"total_cost" db:"total_cost"` // remaining cost basis
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// Order is a single request to trade against the market maker.
// Shares, FilledShares and AvgFillPrice are always server-computed.
type Order struct {
	ID           string           `json:"id" db:"id"`
	UserID       string           `json:"user_id" db:"user_id"`
	MarketID     string           `json:"market_id" db:"market_id"`
	Type         OrderType        `json:"type" db:"type"`
	Side         Side             `json:"side" db:"side"`
	Outcome      Outcome          `json:"outcome" db:"outcome"`
	Amount       decimal.Decimal  `json:"amount" db:"amount"` // requested notional
	LimitPrice   *decimal.Decimal `json:"limit_price,omitempty" db:"limit_price"`
	MinPrice     *decimal.Decimal `json:"min_price,omitempty" db:"min_price"`
	MaxPrice     *decimal.Decimal `json:"max_price,omitempty" db:"max_price"`
	MaxSlippage  decimal.Decimal  `json:"max_slippage" db:"max_slippage"`
	Shares       decimal.Decimal  `json:"shares" db:"shares"`
	FilledShares decimal.Decimal  `json:"filled_shares" db:"filled_shares"`
	AvgFillPrice decimal.Decimal  `json:"avg_fill_price" db:"avg_fill_price"`
	Status       OrderStatus      `json:"status" db:"status"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

// Trade is an immutable record of an executed order against the AMM.
// Exactly one of BuyerID/SellerID is populated, per the order side.
type Trade struct {
	ID        string          `json:"id" db:"id"`
	MarketID  string          `json:"market_id" db:"market_id"`
	OrderID   string          `json:"order_id" db:"order_id"`
	BuyerID   string          `json:"buyer_id,omitempty" db:"buyer_id"`
	SellerID  string          `json:"seller_id,omitempty" db:"seller_id"`
	Outcome   Outcome         `json:"outcome" db:"outcome"`
	Shares    decimal.Decimal `json:"shares" db:"shares"`
	Price     decimal.Decimal `json:"price" db:"price"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Balance is a user's cash balance. Invariant: Amount >= 0.
type Balance struct {
	UserID    string          `json:"user_id" db:"user_id"`
	Amount    decimal.Decimal `json:"amount" db:"amount"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// SettlementBatch stages every write produced by one executed order. The
// store commits the whole batch atomically: either all records land or none.
type SettlementBatch struct {
	Trade           *Trade
	Order           *Order // transitioned to filled
	Balance         *Balance
	Position        *Position
	PositionCreated bool    // true on the first buy for (user, market, outcome)
	Market          *Market // updated quote and volume
}
