package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/foresight/trade-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (s *PostgresStore) CreateMarket(ctx context.Context, m *model.Market) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO markets (id, question, yes_price, no_price, volume, liquidity, trading_fee, status, created_at)
		 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8, $9)`,
		m.ID, m.Question,
		m.YesPrice.String(), m.NoPrice.String(), m.Volume.String(),
		m.Liquidity.String(), m.TradingFee.String(),
		string(m.Status), m.CreatedAt,
	)
	return err
}

const marketColumns = `id, question,
	yes_price::TEXT, no_price::TEXT, volume::TEXT,
	liquidity::TEXT, trading_fee::TEXT,
	status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(row rowScanner) (*model.Market, error) {
	var m model.Market
	var yesPrice, noPrice, volume, liquidity, fee, status string

	if err := row.Scan(&m.ID, &m.Question,
		&yesPrice, &noPrice, &volume,
		&liquidity, &fee,
		&status, &m.CreatedAt); err != nil {
		return nil, err
	}

	m.YesPrice, _ = decimal.NewFromString(yesPrice)
	m.NoPrice, _ = decimal.NewFromString(noPrice)
	m.Volume, _ = decimal.NewFromString(volume)
	m.Liquidity, _ = decimal.NewFromString(liquidity)
	m.TradingFee, _ = decimal.NewFromString(fee)
	m.Status = model.MarketStatus(status)
	return &m, nil
}

func (s *PostgresStore) GetMarket(ctx context.Context, id string) (*model.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketColumns+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		return nil, notFoundOr("get market "+id, err)
	}
	return m, nil
}

func (s *PostgresStore) ListMarkets(ctx context.Context) ([]model.Market, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+marketColumns+` FROM markets ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markets []model.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		markets = append(markets, *m)
	}
	return markets, rows.Err()
}

func (s *PostgresStore) GetBalance(ctx context.Context, userID string) (*model.Balance, error) {
	var b model.Balance
	var amount string

	err := s.pool.QueryRow(ctx,
		`SELECT user_id, amount::TEXT, updated_at FROM balances WHERE user_id = $1`, userID).
		Scan(&b.UserID, &amount, &b.UpdatedAt)
	if err != nil {
		return nil, notFoundOr("get balance "+userID, err)
	}
	b.Amount, _ = decimal.NewFromString(amount)
	return &b, nil
}

func (s *PostgresStore) UpsertBalance(ctx context.Context, b *model.Balance) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO balances (user_id, amount, updated_at)
		 VALUES ($1, $2::NUMERIC, $3)
		 ON CONFLICT (user_id) DO UPDATE SET amount = $2::NUMERIC, updated_at = $3`,
		b.UserID, b.Amount.String(), b.UpdatedAt,
	)
	return err
}

const positionColumns = `id, user_id, market_id, outcome,
	shares::TEXT, avg_price::TEXT, total_cost::TEXT, updated_at`

func scanPosition(row rowScanner) (*model.Position, error) {
	var p model.Position
	var outcome, shares, avgPrice, totalCost string

	if err := row.Scan(&p.ID, &p.UserID, &p.MarketID, &outcome,
		&shares, &avgPrice, &totalCost, &p.UpdatedAt); err != nil {
		return nil, err
	}

	p.Outcome = model.Outcome(outcome)
	p.Shares, _ = decimal.NewFromString(shares)
	p.AvgPrice, _ = decimal.NewFromString(avgPrice)
	p.TotalCost, _ = decimal.NewFromString(totalCost)
	return &p, nil
}

func (s *PostgresStore) GetPosition(ctx context.Context, userID, marketID string, outcome model.Outcome) (*model.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionColumns+` FROM positions
		 WHERE user_id = $1 AND market_id = $2 AND outcome = $3`,
		userID, marketID, string(outcome))
	p, err := scanPosition(row)
	if err != nil {
		return nil, notFoundOr(fmt.Sprintf("get position %s/%s/%s", userID, marketID, outcome), err)
	}
	return p, nil
}

func (s *PostgresStore) ListUserPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionColumns+` FROM positions WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []model.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *p)
	}
	return positions, rows.Err()
}

const orderColumns = `id, user_id, market_id, type, side, outcome,
	amount::TEXT, limit_price::TEXT, min_price::TEXT, max_price::TEXT,
	max_slippage::TEXT, shares::TEXT, filled_shares::TEXT, avg_fill_price::TEXT,
	status, created_at, updated_at`

func scanOrder(row rowScanner) (*model.Order, error) {
	var o model.Order
	var typ, side, outcome, status string
	var amount, maxSlippage, shares, filledShares, avgFillPrice string
	var limitPrice, minPrice, maxPrice *string

	if err := row.Scan(&o.ID, &o.UserID, &o.MarketID, &typ, &side, &outcome,
		&amount, &limitPrice, &minPrice, &maxPrice,
		&maxSlippage, &shares, &filledShares, &avgFillPrice,
		&status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}

	o.Type = model.OrderType(typ)
	o.Side = model.Side(side)
	o.Outcome = model.Outcome(outcome)
	o.Status = model.OrderStatus(status)
	o.Amount, _ = decimal.NewFromString(amount)
	o.MaxSlippage, _ = decimal.NewFromString(maxSlippage)
	o.Shares, _ = decimal.NewFromString(shares)
	o.FilledShares, _ = decimal.NewFromString(filledShares)
	o.AvgFillPrice, _ = decimal.NewFromString(avgFillPrice)
	o.LimitPrice = parseNullableDecimal(limitPrice)
	o.MinPrice = parseNullableDecimal(minPrice)
	o.MaxPrice = parseNullableDecimal(maxPrice)
	return &o, nil
}

func parseNullableDecimal(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil
	}
	return &d
}

func nullableDecimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func (s *PostgresStore) CreateOrder(ctx context.Context, o *model.Order) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO orders (id, user_id, market_id, type, side, outcome,
		   amount, limit_price, min_price, max_price,
		   max_slippage, shares, filled_shares, avg_fill_price,
		   status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6,
		   $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10::NUMERIC,
		   $11::NUMERIC, $12::NUMERIC, $13::NUMERIC, $14::NUMERIC,
		   $15, $16, $17)`,
		o.ID, o.UserID, o.MarketID, string(o.Type), string(o.Side), string(o.Outcome),
		o.Amount.String(),
		nullableDecimalString(o.LimitPrice),
		nullableDecimalString(o.MinPrice),
		nullableDecimalString(o.MaxPrice),
		o.MaxSlippage.String(), o.Shares.String(),
		o.FilledShares.String(), o.AvgFillPrice.String(),
		string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*model.Order, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return nil, notFoundOr("get order "+id, err)
	}
	return o, nil
}

func (s *PostgresStore) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

const tradeColumns = `id, market_id, order_id, buyer_id, seller_id, outcome,
	shares::TEXT, price::TEXT, amount::TEXT, created_at`

func scanTrades(rows pgx.Rows) ([]model.Trade, error) {
	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var outcome, shares, price, amount string

		if err := rows.Scan(&t.ID, &t.MarketID, &t.OrderID, &t.BuyerID, &t.SellerID, &outcome,
			&shares, &price, &amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Outcome = model.Outcome(outcome)
		t.Shares, _ = decimal.NewFromString(shares)
		t.Price, _ = decimal.NewFromString(price)
		t.Amount, _ = decimal.NewFromString(amount)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

func (s *PostgresStore) ListTradesByMarket(ctx context.Context, marketID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE market_id = $1 ORDER BY created_at`, marketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

func (s *PostgresStore) ListTradesByUser(ctx context.Context, userID string) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeColumns+` FROM trades WHERE buyer_id = $1 OR seller_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

// CommitSettlement applies the whole batch inside one transaction. Any
// failure rolls back every write, so a half-settled order is never durable.
func (s *PostgresStore) CommitSettlement(ctx context.Context, batch *model.SettlementBatch) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	t := batch.Trade
	if _, err := tx.Exec(ctx,
		`INSERT INTO trades (id, market_id, order_id, buyer_id, seller_id, outcome, shares, price, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9::NUMERIC, $10)`,
		t.ID, t.MarketID, t.OrderID, t.BuyerID, t.SellerID, string(t.Outcome),
		t.Shares.String(), t.Price.String(), t.Amount.String(), t.CreatedAt,
	); err != nil {
		return fmt.Errorf("settlement trade insert: %w", err)
	}

	o := batch.Order
	if _, err := tx.Exec(ctx,
		`UPDATE orders
		 SET status = $2, shares = $3::NUMERIC, filled_shares = $4::NUMERIC,
		     avg_fill_price = $5::NUMERIC, updated_at = $6
		 WHERE id = $1`,
		o.ID, string(o.Status), o.Shares.String(), o.FilledShares.String(),
		o.AvgFillPrice.String(), o.UpdatedAt,
	); err != nil {
		return fmt.Errorf("settlement order update: %w", err)
	}

	b := batch.Balance
	if _, err := tx.Exec(ctx,
		`INSERT INTO balances (user_id, amount, updated_at)
		 VALUES ($1, $2::NUMERIC, $3)
		 ON CONFLICT (user_id) DO UPDATE SET amount = $2::NUMERIC, updated_at = $3`,
		b.UserID, b.Amount.String(), b.UpdatedAt,
	); err != nil {
		return fmt.Errorf("settlement balance update: %w", err)
	}

	p := batch.Position
	if batch.PositionCreated {
		if _, err := tx.Exec(ctx,
			`INSERT INTO positions (id, user_id, market_id, outcome, shares, avg_price, total_cost, updated_at)
			 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8)`,
			p.ID, p.UserID, p.MarketID, string(p.Outcome),
			p.Shares.String(), p.AvgPrice.String(), p.TotalCost.String(), p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("settlement position insert: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx,
			`UPDATE positions
			 SET shares = $2::NUMERIC, avg_price = $3::NUMERIC, total_cost = $4::NUMERIC, updated_at = $5
			 WHERE id = $1`,
			p.ID, p.Shares.String(), p.AvgPrice.String(), p.TotalCost.String(), p.UpdatedAt,
		); err != nil {
			return fmt.Errorf("settlement position update: %w", err)
		}
	}

	m := batch.Market
	if _, err := tx.Exec(ctx,
		`UPDATE markets
		 SET yes_price = $2::NUMERIC, no_price = $3::NUMERIC, volume = $4::NUMERIC
		 WHERE id = $1`,
		m.ID, m.YesPrice.String(), m.NoPrice.String(), m.Volume.String(),
	); err != nil {
		return fmt.Errorf("settlement market update: %w", err)
	}

	return tx.Commit(ctx)
}
