package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/foresight/trade-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing and
// development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu        sync.RWMutex
	markets   map[string]*model.Market
	balances  map[string]*model.Balance
	positions map[string]*model.Position // key: userID|marketID|outcome
	orders    map[string]*model.Order
	trades    []model.Trade
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		markets:   make(map[string]*model.Market),
		balances:  make(map[string]*model.Balance),
		positions: make(map[string]*model.Position),
		orders:    make(map[string]*model.Order),
	}
}

func positionKey(userID, marketID string, outcome model.Outcome) string {
	return userID + "|" + marketID + "|" + string(outcome)
}

func (s *MemoryStore) CreateMarket(_ context.Context, m *model.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.markets[m.ID]; exists {
		return fmt.Errorf("market %s already exists", m.ID)
	}
	cp := *m
	s.markets[m.ID] = &cp
	return nil
}

func (s *MemoryStore) GetMarket(_ context.Context, id string) (*model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.markets[id]
	if !ok {
		return nil, fmt.Errorf("market %s: %w", id, ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (s *MemoryStore) ListMarkets(_ context.Context) ([]model.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markets := make([]model.Market, 0, len(s.markets))
	for _, m := range s.markets {
		markets = append(markets, *m)
	}
	return markets, nil
}

func (s *MemoryStore) GetBalance(_ context.Context, userID string) (*model.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.balances[userID]
	if !ok {
		return nil, fmt.Errorf("balance for user %s: %w", userID, ErrNotFound)
	}
	cp := *b
	return &cp, nil
}

func (s *MemoryStore) UpsertBalance(_ context.Context, b *model.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *b
	s.balances[b.UserID] = &cp
	return nil
}

func (s *MemoryStore) GetPosition(_ context.Context, userID, marketID string, outcome model.Outcome) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.positions[positionKey(userID, marketID, outcome)]
	if !ok {
		return nil, fmt.Errorf("position %s/%s/%s: %w", userID, marketID, outcome, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) ListUserPositions(_ context.Context, userID string) ([]model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var positions []model.Position
	for _, p := range s.positions {
		if p.UserID == userID {
			positions = append(positions, *p)
		}
	}
	return positions, nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, o *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists", o.ID)
	}
	cp := *o
	s.orders[o.ID] = &cp
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id string) (*model.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (s *MemoryStore) UpdateOrderStatus(_ context.Context, id string, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	o.Status = status
	return nil
}

// OrderCount reports how many orders are persisted. Development helper.
func (s *MemoryStore) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *MemoryStore) ListTradesByMarket(_ context.Context, marketID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.MarketID == marketID {
			result = append(result, t)
		}
	}
	return result, nil
}

func (s *MemoryStore) ListTradesByUser(_ context.Context, userID string) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.Trade
	for _, t := range s.trades {
		if t.BuyerID == userID || t.SellerID == userID {
			result = append(result, t)
		}
	}
	return result, nil
}

// CommitSettlement applies the whole batch under one lock. Validation
// happens up front so no partial state is ever visible.
func (s *MemoryStore) CommitSettlement(_ context.Context, batch *model.SettlementBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markets[batch.Market.ID]; !ok {
		return fmt.Errorf("market %s: %w", batch.Market.ID, ErrNotFound)
	}
	if _, ok := s.orders[batch.Order.ID]; !ok {
		return fmt.Errorf("order %s: %w", batch.Order.ID, ErrNotFound)
	}

	trade := *batch.Trade
	order := *batch.Order
	balance := *batch.Balance
	position := *batch.Position
	market := *batch.Market

	s.trades = append(s.trades, trade)
	s.orders[order.ID] = &order
	s.balances[balance.UserID] = &balance
	s.positions[positionKey(position.UserID, position.MarketID, position.Outcome)] = &position
	s.markets[market.ID] = &market
	return nil
}
