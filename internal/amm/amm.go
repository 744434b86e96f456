// Package amm implements the constant-impact automated market maker for
// binary-outcome markets.
//
// Unlike a bonded-curve maker (constant-product, LMSR), the model here moves
// the quote by a fixed base impact plus a component proportional to trade
// notional, saturating for large trades. It is deterministic and stateless
// given the market's current quote and the trade notional.
//
// All monetary values use shopspring/decimal rather than float64.
package amm

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/foresight/trade-engine/internal/model"
)

var (
	// ErrInvalidQuote is returned when the supplied quote does not sum to one.
	ErrInvalidQuote = errors.New("amm: yes and no prices must sum to one")

	// MinPrice is the lowest allowed YES price (probability floor).
	// Prevents degenerate markets where shares become worthless.
	MinPrice = decimal.NewFromFloat(0.05)

	// MaxPrice is the highest allowed YES price (probability ceiling).
	// Prevents degenerate markets where the outcome appears "certain".
	MaxPrice = decimal.NewFromFloat(0.95)
)

// Quote is a consistent (yes, no) price pair. No is always derived as
// 1 - Yes, never clamped independently, so the sum invariant holds exactly.
type Quote struct {
	Yes decimal.Decimal
	No  decimal.Decimal
}

// NewQuote builds a quote from a YES price.
func NewQuote(yes decimal.Decimal) Quote {
	return Quote{Yes: yes, No: decimal.NewFromInt(1).Sub(yes)}
}

// Engine computes post-trade quotes. It is stateless; the market's current
// quote is passed as an argument, not stored.
type Engine struct {
	baseImpact    decimal.Decimal
	impactDivisor decimal.Decimal
	maxVolImpact  decimal.Decimal
}

// New creates an engine with explicit impact parameters:
//
//	priceImpact = baseImpact + min(notional/impactDivisor, maxVolImpact)
func New(baseImpact, impactDivisor, maxVolImpact decimal.Decimal) (*Engine, error) {
	if impactDivisor.LessThanOrEqual(decimal.Zero) {
		return nil, errors.New("amm: impact divisor must be positive")
	}
	if baseImpact.IsNegative() || maxVolImpact.IsNegative() {
		return nil, errors.New("amm: impact parameters must be non-negative")
	}
	return &Engine{
		baseImpact:    baseImpact,
		impactDivisor: impactDivisor,
		maxVolImpact:  maxVolImpact,
	}, nil
}

// NewDefault creates an engine with the production impact parameters:
// 1% base impact, notional-proportional impact saturating at 5%.
func NewDefault() *Engine {
	return &Engine{
		baseImpact:    decimal.NewFromFloat(0.01),
		impactDivisor: decimal.NewFromInt(10000),
		maxVolImpact:  decimal.NewFromFloat(0.05),
	}
}

// Impact returns the total price impact for a trade of the given notional.
func (e *Engine) Impact(notional decimal.Decimal) decimal.Decimal {
	volumeMultiplier := notional.Abs().Div(e.impactDivisor)
	if volumeMultiplier.GreaterThan(e.maxVolImpact) {
		volumeMultiplier = e.maxVolImpact
	}
	return e.baseImpact.Add(volumeMultiplier)
}

// movesYesUp derives the direction of the quote move from outcome and side
// jointly. Buying YES and selling NO both express YES demand; the other two
// combinations express NO demand. Using only one of the two fields flips the
// sign for half of all valid orders.
func movesYesUp(outcome model.Outcome, side model.Side) bool {
	if outcome == model.OutcomeYes {
		return side == model.SideBuy
	}
	return side == model.SideSell
}

// NextQuote computes the post-trade quote for a trade of the given outcome,
// side and notional against the current quote. The YES price is clamped to
// [MinPrice, MaxPrice]; NO is derived as its exact complement.
func (e *Engine) NextQuote(current Quote, outcome model.Outcome, side model.Side, notional decimal.Decimal) Quote {
	impact := e.Impact(notional)

	yes := current.Yes
	if movesYesUp(outcome, side) {
		yes = yes.Add(impact)
	} else {
		yes = yes.Sub(impact)
	}

	if yes.LessThan(MinPrice) {
		yes = MinPrice
	}
	if yes.GreaterThan(MaxPrice) {
		yes = MaxPrice
	}

	return NewQuote(yes)
}

// Validate checks a quote satisfies the sum-to-one invariant.
func Validate(q Quote) error {
	if !q.Yes.Add(q.No).Equal(decimal.NewFromInt(1)) {
		return ErrInvalidQuote
	}
	return nil
}
