// Package engine is the order admission, pricing, and settlement core.
//
// One call to PlaceOrder runs the whole pipeline: request validation, fund
// and share checks, the one-shot execution decision, price-bound and
// slippage enforcement, and, when the order executes, the atomic
// settlement of trade, order, balance, position, and market quote through
// the ledger gateway.
//
// All monetary values use shopspring/decimal rather than float64.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foresight/trade-engine/internal/amm"
	"github.com/foresight/trade-engine/internal/model"
	"github.com/foresight/trade-engine/internal/risk"
	"github.com/foresight/trade-engine/internal/store"
)

// Engine owns order admission and settlement. Per-market and per-user
// keyed mutexes serialize the read-check-write sequences; locks are always
// acquired market first, user second, so concurrent orders cannot deadlock.
type Engine struct {
	store   store.Store
	pricer  *amm.Engine
	limiter *risk.Limiter

	marketLocks *keyedMutex
	userLocks   *keyedMutex
}

// New creates an engine over the given ledger gateway.
func New(st store.Store, pricer *amm.Engine, limiter *risk.Limiter) *Engine {
	return &Engine{
		store:       st,
		pricer:      pricer,
		limiter:     limiter,
		marketLocks: newKeyedMutex(),
		userLocks:   newKeyedMutex(),
	}
}

// Result is the outcome of a successfully admitted order. Executed is false
// when a limit order rested as pending: the order is persisted but no trade,
// balance, position, or quote change occurred.
type Result struct {
	Order          *model.Order
	Trade          *model.Trade
	Executed       bool
	ExecutionPrice decimal.Decimal
	Market         *model.Market
}

// PlaceOrder admits, prices, and settles one order. Business-rule failures
// return a typed error from the package taxonomy and leave all ledgers
// untouched, with one deliberate exception: bound/slippage failures after
// the order record is created leave that order persisted as pending.
func (e *Engine) PlaceOrder(ctx context.Context, req *OrderRequest) (*Result, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}

	unlockMarket := e.marketLocks.Lock(req.MarketID)
	defer unlockMarket()
	unlockUser := e.userLocks.Lock(req.UserID)
	defer unlockUser()

	market, err := e.store.GetMarket(ctx, req.MarketID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMarketNotFound
		}
		return nil, storageErr("get market", err)
	}
	if market.Status != model.MarketStatusActive {
		return nil, ErrMarketClosed
	}

	// One price snapshot is pinned for the whole request. The market lock
	// is held from here through commit, so the settlement-time share
	// re-check sees the same quote as the admission check.
	quoted := market.Price(req.Outcome)

	balance, err := e.store.GetBalance(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBalanceNotFound
		}
		return nil, storageErr("get balance", err)
	}

	position, err := e.store.GetPosition(ctx, req.UserID, req.MarketID, req.Outcome)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storageErr("get position", err)
	}

	if req.Side == model.SideBuy {
		if balance.Amount.LessThan(req.Amount) {
			return nil, ErrInsufficientBalance
		}
		exposure := decimal.Zero
		if position != nil {
			exposure = position.TotalCost
		}
		if err := e.limiter.CheckBuy(req.Amount, exposure); err != nil {
			return nil, err
		}
	} else {
		required := req.Amount.Div(quoted)
		if position == nil || position.Shares.LessThan(required) {
			return nil, ErrInsufficientShares
		}
	}

	now := time.Now().UTC()
	order := newOrder(req, now)
	canExecute, executionPrice := decide(req, quoted)

	if err := e.store.CreateOrder(ctx, order); err != nil {
		return nil, storageErr("create order", err)
	}

	if !canExecute {
		slog.Info("order resting",
			"order_id", order.ID,
			"market", req.MarketID,
			"user", req.UserID,
			"limit_price", req.LimitPrice.String(),
			"quoted", quoted.String(),
		)
		return &Result{Order: order, Executed: false, Market: market}, nil
	}

	if err := checkBounds(req, executionPrice, quoted); err != nil {
		// The order stays persisted as pending, a degenerate rejected
		// terminal state. The error response is authoritative for the
		// caller; the engine never retries it.
		return nil, err
	}

	// Fill size is always recomputed here; caller-supplied share counts
	// never influence it.
	shares := req.Amount.Div(executionPrice)

	if req.Side == model.SideSell {
		// Settlement-time re-check against the pinned quote.
		if position == nil || position.Shares.LessThan(shares) {
			return nil, ErrInsufficientShares
		}
	}

	batch, err := e.stageSettlement(req, order, market, balance, position, executionPrice, shares, now)
	if err != nil {
		return nil, err
	}

	if err := e.store.CommitSettlement(ctx, batch); err != nil {
		return nil, storageErr("commit settlement", err)
	}

	slog.Info("order settled",
		"order_id", order.ID,
		"trade_id", batch.Trade.ID,
		"market", req.MarketID,
		"user", req.UserID,
		"side", string(req.Side),
		"outcome", string(req.Outcome),
		"amount", req.Amount.String(),
		"shares", shares.String(),
		"price", executionPrice.String(),
		"new_yes_price", batch.Market.YesPrice.String(),
	)

	return &Result{
		Order:          batch.Order,
		Trade:          batch.Trade,
		Executed:       true,
		ExecutionPrice: executionPrice,
		Market:         batch.Market,
	}, nil
}

// stageSettlement builds the five staged writes for an executed order.
// Nothing is persisted here.
func (e *Engine) stageSettlement(
	req *OrderRequest,
	order *model.Order,
	market *model.Market,
	balance *model.Balance,
	position *model.Position,
	executionPrice, shares decimal.Decimal,
	now time.Time,
) (*model.SettlementBatch, error) {
	trade := &model.Trade{
		ID:        uuid.New().String(),
		MarketID:  market.ID,
		OrderID:   order.ID,
		Outcome:   req.Outcome,
		Shares:    shares,
		Price:     executionPrice,
		Amount:    req.Amount,
		CreatedAt: now,
	}

	newBalance := *balance
	newBalance.UpdatedAt = now

	var newPosition *model.Position
	positionCreated := false

	if req.Side == model.SideBuy {
		trade.BuyerID = req.UserID
		newBalance.Amount = balance.Amount.Sub(req.Amount)
		if newBalance.Amount.IsNegative() {
			return nil, ErrInsufficientBalance
		}
		if position == nil {
			newPosition = openPosition(req.UserID, req.MarketID, req.Outcome, shares, executionPrice, req.Amount, now)
			positionCreated = true
		} else {
			cp := *position
			increasePosition(&cp, shares, req.Amount, now)
			newPosition = &cp
		}
	} else {
		trade.SellerID = req.UserID
		newBalance.Amount = balance.Amount.Add(req.Amount)
		cp := *position
		decreasePosition(&cp, shares, now)
		newPosition = &cp
	}

	filled := *order
	filled.Shares = shares
	filled.FilledShares = shares
	filled.AvgFillPrice = executionPrice
	filled.Status = model.OrderStatusFilled
	filled.UpdatedAt = now

	quote := e.pricer.NextQuote(
		amm.Quote{Yes: market.YesPrice, No: market.NoPrice},
		req.Outcome, req.Side, req.Amount,
	)
	newMarket := *market
	newMarket.YesPrice = quote.Yes
	newMarket.NoPrice = quote.No
	newMarket.Volume = market.Volume.Add(req.Amount)

	return &model.SettlementBatch{
		Trade:           trade,
		Order:           &filled,
		Balance:         &newBalance,
		Position:        newPosition,
		PositionCreated: positionCreated,
		Market:          &newMarket,
	}, nil
}

// Deposit credits a user's cash balance, creating it on first deposit.
// Runs under the per-user lock so it cannot interleave with a settlement
// touching the same balance.
func (e *Engine) Deposit(ctx context.Context, userID string, amount decimal.Decimal) (*model.Balance, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidOrder)
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidOrder)
	}

	unlockUser := e.userLocks.Lock(userID)
	defer unlockUser()

	now := time.Now().UTC()
	balance, err := e.store.GetBalance(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		balance = &model.Balance{UserID: userID, Amount: decimal.Zero}
	} else if err != nil {
		return nil, storageErr("get balance", err)
	}

	balance.Amount = balance.Amount.Add(amount)
	balance.UpdatedAt = now

	if err := e.store.UpsertBalance(ctx, balance); err != nil {
		return nil, storageErr("upsert balance", err)
	}

	slog.Info("balance credited", "user", userID, "amount", amount.String(), "balance", balance.Amount.String())
	return balance, nil
}

// CancelOrder transitions a resting pending order to cancelled. Only the
// owner may cancel; settled orders are immutable.
func (e *Engine) CancelOrder(ctx context.Context, orderID, userID string) (*model.Order, error) {
	unlockUser := e.userLocks.Lock(userID)
	defer unlockUser()

	order, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, storageErr("get order", err)
	}
	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}
	if order.Status != model.OrderStatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", ErrInvalidOrder, orderID, order.Status)
	}

	if err := e.store.UpdateOrderStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
		return nil, storageErr("update order status", err)
	}

	order.Status = model.OrderStatusCancelled
	order.UpdatedAt = time.Now().UTC()

	slog.Info("order cancelled", "order_id", orderID, "user", userID)
	return order, nil
}

// newOrder builds the pending order record from a normalized request.
func newOrder(req *OrderRequest, now time.Time) *model.Order {
	return &model.Order{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		MarketID:    req.MarketID,
		Type:        req.Type,
		Side:        req.Side,
		Outcome:     req.Outcome,
		Amount:      req.Amount,
		LimitPrice:  req.LimitPrice,
		MinPrice:    req.MinPrice,
		MaxPrice:    req.MaxPrice,
		MaxSlippage: req.MaxSlippage,
		Status:      model.OrderStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
