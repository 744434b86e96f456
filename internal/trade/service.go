// Package trade provides the HTTP handlers for creating markets, submitting
// orders against the AMM, and querying positions, trades, and balances.
//
// All monetary values use shopspring/decimal rather than float64.
package trade

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/foresight/trade-engine/internal/engine"
	"github.com/foresight/trade-engine/internal/metrics"
	"github.com/foresight/trade-engine/internal/model"
	"github.com/foresight/trade-engine/internal/risk"
	"github.com/foresight/trade-engine/internal/store"
)

// Service exposes the engine over HTTP. Serialization of settlement is the
// engine's job; handlers only decode, delegate, and encode.
type Service struct {
	store  store.Store
	engine *engine.Engine
	wsHub  *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewService creates a new trade service.
// Pass nil for hub if WebSocket broadcasting is not needed.
func NewService(st store.Store, eng *engine.Engine, hub *WSHub) *Service {
	return &Service{
		store:  st,
		engine: eng,
		wsHub:  hub,
	}
}

// --- Request/Response types ---

// CreateMarketRequest is the JSON body for market creation.
type CreateMarketRequest struct {
	Question   string          `json:"question"`
	Liquidity  decimal.Decimal `json:"liquidity"`
	TradingFee decimal.Decimal `json:"trading_fee"`
}

// OrderResponse is the JSON body returned from POST /orders.
type OrderResponse struct {
	Order          *model.Order     `json:"order"`
	Trade          *model.Trade     `json:"trade,omitempty"`
	Executed       bool             `json:"executed"`
	ExecutionPrice *decimal.Decimal `json:"execution_price,omitempty"`
	Message        string           `json:"message"`
}

// DepositRequest is the JSON body for POST /users/{userID}/deposit.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// --- HTTP Handlers ---

// CreateMarket handles POST /api/v1/markets
func (s *Service) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req CreateMarketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Question == "" {
		writeError(w, "question is required", http.StatusBadRequest)
		return
	}
	if req.TradingFee.IsNegative() || req.Liquidity.IsNegative() {
		writeError(w, "liquidity and trading_fee must be non-negative", http.StatusBadRequest)
		return
	}

	half := decimal.NewFromFloat(0.5)
	market := &model.Market{
		ID:         uuid.New().String(),
		Question:   req.Question,
		YesPrice:   half,
		NoPrice:    half,
		Volume:     decimal.Zero,
		Liquidity:  req.Liquidity,
		TradingFee: req.TradingFee,
		Status:     model.MarketStatusActive,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.store.CreateMarket(r.Context(), market); err != nil {
		writeError(w, err.Error(), http.StatusConflict)
		return
	}

	metrics.ActiveMarkets.Inc()
	slog.Info("market created", "id", market.ID, "question", req.Question)

	writeJSON(w, http.StatusCreated, market)
}

// ListMarkets handles GET /api/v1/markets
func (s *Service) ListMarkets(w http.ResponseWriter, r *http.Request) {
	markets, err := s.store.ListMarkets(r.Context())
	if err != nil {
		writeError(w, "failed to list markets", http.StatusInternalServerError)
		return
	}
	if markets == nil {
		markets = []model.Market{}
	}
	writeJSON(w, http.StatusOK, markets)
}

// GetMarket handles GET /api/v1/markets/{marketID}
func (s *Service) GetMarket(w http.ResponseWriter, r *http.Request) {
	market, err := s.store.GetMarket(r.Context(), chi.URLParam(r, "marketID"))
	if err != nil {
		writeError(w, "market not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, market)
}

// GetPrice handles GET /api/v1/markets/{marketID}/price
// The latest committed quote is served without locking; only order
// settlement needs the serialized view.
func (s *Service) GetPrice(w http.ResponseWriter, r *http.Request) {
	market, err := s.store.GetMarket(r.Context(), chi.URLParam(r, "marketID"))
	if err != nil {
		writeError(w, "market not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{
		"yes": market.YesPrice,
		"no":  market.NoPrice,
	})
}

// GetMarketTrades handles GET /api/v1/markets/{marketID}/trades
func (s *Service) GetMarketTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.ListTradesByMarket(r.Context(), chi.URLParam(r, "marketID"))
	if err != nil {
		writeError(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// PlaceOrder handles POST /api/v1/orders
// Admits the order, executes it against the AMM when eligible, and returns
// the persisted order plus the trade when one settled.
func (s *Service) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req engine.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	result, err := s.engine.PlaceOrder(r.Context(), &req)
	if err != nil {
		kind, status := classify(err)
		metrics.OrderRejections.WithLabelValues(kind).Inc()
		writeErrorKind(w, kind, err, status)
		return
	}

	metrics.OrdersTotal.WithLabelValues(string(req.Side), string(req.Type)).Inc()

	resp := OrderResponse{
		Order:    result.Order,
		Executed: result.Executed,
		Message:  "order accepted, awaiting price",
	}

	if result.Executed {
		metrics.TradesTotal.WithLabelValues(string(req.Side)).Inc()
		metrics.SettlementLatency.WithLabelValues(string(req.Side)).Observe(time.Since(start).Seconds())
		metrics.MarketVolume.WithLabelValues(req.MarketID, string(req.Side)).Add(result.Trade.Amount.InexactFloat64())

		price := result.ExecutionPrice
		resp.Trade = result.Trade
		resp.ExecutionPrice = &price
		resp.Message = "order filled"

		if s.wsHub != nil {
			s.wsHub.Broadcast(WSMessage{
				Type:     "trade_executed",
				MarketID: result.Market.ID,
				YesPrice: result.Market.YesPrice.String(),
				NoPrice:  result.Market.NoPrice.String(),
				Side:     string(req.Side),
				Outcome:  string(req.Outcome),
				Shares:   result.Trade.Shares.String(),
				Price:    result.ExecutionPrice.String(),
			})
		}
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetOrder handles GET /api/v1/orders/{orderID}
func (s *Service) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.store.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, "order not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// CancelOrder handles POST /api/v1/orders/{orderID}/cancel
// Body: {"user_id": "..."}. Only the owner may cancel a resting order.
func (s *Service) CancelOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	order, err := s.engine.CancelOrder(r.Context(), chi.URLParam(r, "orderID"), body.UserID)
	if err != nil {
		kind, status := classify(err)
		writeErrorKind(w, kind, err, status)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// GetUserPositions handles GET /api/v1/users/{userID}/positions
func (s *Service) GetUserPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := s.store.ListUserPositions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, "failed to load positions", http.StatusInternalServerError)
		return
	}
	if positions == nil {
		positions = []model.Position{}
	}
	writeJSON(w, http.StatusOK, positions)
}

// GetUserTrades handles GET /api/v1/users/{userID}/trades
func (s *Service) GetUserTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := s.store.ListTradesByUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, "failed to load trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// GetUserBalance handles GET /api/v1/users/{userID}/balance
func (s *Service) GetUserBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := s.store.GetBalance(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, "balance not found", http.StatusNotFound)
			return
		}
		writeError(w, "failed to load balance", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Deposit handles POST /api/v1/users/{userID}/deposit
func (s *Service) Deposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	balance, err := s.engine.Deposit(r.Context(), chi.URLParam(r, "userID"), req.Amount)
	if err != nil {
		kind, status := classify(err)
		writeErrorKind(w, kind, err, status)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// --- Error mapping ---

// classify maps an engine error to its machine-readable kind and HTTP
// status. Not-found kinds map to 404 and storage failures to 500; every
// business-rule failure is 400.
func classify(err error) (kind string, status int) {
	switch {
	case errors.Is(err, engine.ErrMarketNotFound):
		return "market_not_found", http.StatusNotFound
	case errors.Is(err, engine.ErrBalanceNotFound):
		return "balance_not_found", http.StatusNotFound
	case errors.Is(err, engine.ErrOrderNotFound):
		return "order_not_found", http.StatusNotFound
	case errors.Is(err, engine.ErrInsufficientBalance):
		return "insufficient_balance", http.StatusBadRequest
	case errors.Is(err, engine.ErrInsufficientShares):
		return "insufficient_shares", http.StatusBadRequest
	case errors.Is(err, engine.ErrInvalidOrder):
		return "invalid_order", http.StatusBadRequest
	case errors.Is(err, engine.ErrMarketClosed):
		return "market_closed", http.StatusBadRequest
	case errors.Is(err, engine.ErrPriceAboveMax):
		return "price_above_max", http.StatusBadRequest
	case errors.Is(err, engine.ErrPriceBelowMin):
		return "price_below_min", http.StatusBadRequest
	case errors.Is(err, engine.ErrSlippageExceeded):
		return "slippage_exceeded", http.StatusBadRequest
	case errors.Is(err, risk.ErrOrderTooLarge):
		return "order_too_large", http.StatusBadRequest
	case errors.Is(err, risk.ErrExposureLimitExceeded):
		return "exposure_limit_exceeded", http.StatusBadRequest
	case errors.Is(err, engine.ErrStorage):
		return "storage_error", http.StatusInternalServerError
	default:
		return "internal_error", http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeErrorKind writes a JSON error with a machine-readable kind.
func writeErrorKind(w http.ResponseWriter, kind string, err error, status int) {
	writeJSON(w, status, map[string]string{
		"error":   kind,
		"message": err.Error(),
	})
}
