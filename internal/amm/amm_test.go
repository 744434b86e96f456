package amm

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/foresight/trade-engine/internal/model"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// --- Constructor tests ---

func TestNew_InvalidDivisor(t *testing.T) {
	if _, err := New(d(0.01), d(0), d(0.05)); err == nil {
		t.Error("expected error for zero divisor")
	}
	if _, err := New(d(0.01), d(-1), d(0.05)); err == nil {
		t.Error("expected error for negative divisor")
	}
}

func TestNew_NegativeImpact(t *testing.T) {
	if _, err := New(d(-0.01), d(10000), d(0.05)); err == nil {
		t.Error("expected error for negative base impact")
	}
}

// --- Impact tests ---

func TestImpact_SmallTrade(t *testing.T) {
	e := NewDefault()
	// 100 notional: 0.01 base + 100/10000 volume component.
	if got := e.Impact(d(100)); !got.Equal(d(0.02)) {
		t.Errorf("expected impact 0.02 for notional 100, got %s", got)
	}
}

func TestImpact_SaturatesForLargeTrades(t *testing.T) {
	e := NewDefault()
	// Volume component caps at 0.05 regardless of notional.
	for _, notional := range []float64{500, 1000, 100000} {
		got := e.Impact(d(notional))
		if got.GreaterThan(d(0.06)) {
			t.Errorf("impact should saturate at 0.06, got %s for notional %.0f", got, notional)
		}
	}
	if got := e.Impact(d(1000000)); !got.Equal(d(0.06)) {
		t.Errorf("expected saturated impact 0.06, got %s", got)
	}
}

// --- Direction tests ---

func TestNextQuote_Direction(t *testing.T) {
	e := NewDefault()
	start := NewQuote(d(0.5))

	tests := []struct {
		outcome model.Outcome
		side    model.Side
		up      bool
	}{
		{model.OutcomeYes, model.SideBuy, true},
		{model.OutcomeNo, model.SideSell, true},
		{model.OutcomeYes, model.SideSell, false},
		{model.OutcomeNo, model.SideBuy, false},
	}
	for _, tt := range tests {
		q := e.NextQuote(start, tt.outcome, tt.side, d(100))
		moved := q.Yes.GreaterThan(start.Yes)
		if moved != tt.up {
			t.Errorf("outcome=%s side=%s: expected up=%v, got yes=%s",
				tt.outcome, tt.side, tt.up, q.Yes)
		}
	}
}

func TestNextQuote_ExactMove(t *testing.T) {
	e := NewDefault()
	q := e.NextQuote(NewQuote(d(0.5)), model.OutcomeYes, model.SideBuy, d(100))
	if !q.Yes.Equal(d(0.52)) {
		t.Errorf("expected yes price 0.52, got %s", q.Yes)
	}
	if !q.No.Equal(d(0.48)) {
		t.Errorf("expected no price 0.48, got %s", q.No)
	}
}

// --- Invariant tests ---

func TestNextQuote_SumsToOneExactly(t *testing.T) {
	e := NewDefault()
	one := decimal.NewFromInt(1)

	tests := []struct {
		yes      float64
		outcome  model.Outcome
		side     model.Side
		notional float64
	}{
		{0.5, model.OutcomeYes, model.SideBuy, 100},
		{0.5, model.OutcomeNo, model.SideBuy, 2500},
		{0.93, model.OutcomeYes, model.SideBuy, 100000},
		{0.07, model.OutcomeYes, model.SideSell, 100000},
		{0.12, model.OutcomeNo, model.SideSell, 42},
	}
	for _, tt := range tests {
		q := e.NextQuote(NewQuote(d(tt.yes)), tt.outcome, tt.side, d(tt.notional))
		if !q.Yes.Add(q.No).Equal(one) {
			t.Errorf("quote must sum to exactly 1: yes=%s no=%s", q.Yes, q.No)
		}
		if err := Validate(q); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	}
}

func TestNextQuote_ClampsAtCeiling(t *testing.T) {
	e := NewDefault()
	q := e.NextQuote(NewQuote(d(0.94)), model.OutcomeYes, model.SideBuy, d(100000))
	if !q.Yes.Equal(MaxPrice) {
		t.Errorf("expected yes clamped to %s, got %s", MaxPrice, q.Yes)
	}
	if !q.No.Equal(d(0.05)) {
		t.Errorf("no must be the exact complement of the clamped yes, got %s", q.No)
	}
}

func TestNextQuote_ClampsAtFloor(t *testing.T) {
	e := NewDefault()
	q := e.NextQuote(NewQuote(d(0.06)), model.OutcomeYes, model.SideSell, d(100000))
	if !q.Yes.Equal(MinPrice) {
		t.Errorf("expected yes clamped to %s, got %s", MinPrice, q.Yes)
	}
}

func TestNextQuote_Deterministic(t *testing.T) {
	e := NewDefault()
	a := e.NextQuote(NewQuote(d(0.37)), model.OutcomeNo, model.SideBuy, d(321))
	b := e.NextQuote(NewQuote(d(0.37)), model.OutcomeNo, model.SideBuy, d(321))
	if !a.Yes.Equal(b.Yes) || !a.No.Equal(b.No) {
		t.Errorf("quote must be deterministic: %v vs %v", a, b)
	}
}

func TestValidate_RejectsBrokenQuote(t *testing.T) {
	if err := Validate(Quote{Yes: d(0.5), No: d(0.49)}); err != ErrInvalidQuote {
		t.Errorf("expected ErrInvalidQuote, got %v", err)
	}
}
