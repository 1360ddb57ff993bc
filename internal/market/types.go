// Package market holds the two immutable view types the core reads from on
// every cycle: the technical-analysis snapshot and the account/position
// snapshot. Both are built once per tick and never mutated afterward —
// readers take a pointer and never need a lock.
package market

import (
	"sort"
	"time"
)

// TrendDirection classifies the market analyzer's short-term trend call.
type TrendDirection string

const (
	TrendUp       TrendDirection = "Up"
	TrendDown     TrendDirection = "Down"
	TrendSideways TrendDirection = "Sideways"
)

// VolatilityLevel buckets VolatilityFactor for display and rule thresholds.
type VolatilityLevel string

const (
	VolVeryLow  VolatilityLevel = "VeryLow"
	VolLow      VolatilityLevel = "Low"
	VolNormal   VolatilityLevel = "Normal"
	VolHigh     VolatilityLevel = "High"
	VolVeryHigh VolatilityLevel = "VeryHigh"
)

// Session is the trading session active at snapshot time.
type Session string

const (
	SessionAsian   Session = "Asian"
	SessionLondon  Session = "London"
	SessionOverlap Session = "Overlap"
	SessionNewYork Session = "NewYork"
	SessionQuiet   Session = "Quiet"
)

// FreshnessBudget is the maximum snapshot age a rule may act on.
const FreshnessBudget = 30 * time.Second

// Level is a support or resistance price level with a strength score.
type Level struct {
	Price    float64
	Strength float64 // 0..1
}

// Snapshot is the immutable, per-tick view of market state consumed by the
// rule engine, spacing manager, and order manager. It is never mutated
// after construction; a new tick produces a new Snapshot.
type Snapshot struct {
	Mid, Bid, Ask float64
	Spread        float64

	RSI              float64
	BollingerPos     float64 // 0..1, position inside the band
	MADirection      float64 // sign/slope of the moving-average
	MACDHistogram    float64
	Stochastic       float64

	TrendDirection TrendDirection
	TrendStrength  float64 // 0..1
	Momentum       float64 // -1..1

	VolatilityFactor float64 // 0..inf, 1.0 = typical
	VolatilityLevel  VolatilityLevel
	ATR              float64

	SupportLevels    []Level
	ResistanceLevels []Level

	Session       Session
	SessionFactor float64 // 0.5..1.5
	LiquidityLevel float64

	// Opaque 4-dimension scores from the market analyzer; consumed as-is,
	// derivation is out of scope.
	ScoreDimensions [4]float64

	QualityScore   float64 // 0..1, the analyzer's confidence in this read
	DataFreshness  time.Duration
	Timestamp      time.Time
}

// Age reports how long ago the snapshot was taken.
func (s *Snapshot) Age() time.Duration {
	if s == nil {
		return time.Duration(1<<63 - 1)
	}
	return time.Since(s.Timestamp)
}

// Fresh reports whether the snapshot is still within the freshness budget.
func (s *Snapshot) Fresh() bool {
	return s != nil && s.Age() <= FreshnessBudget
}

// Finite reports whether every numeric field is a finite value. The
// analyzer is an external collaborator; the core never trusts its output
// blindly.
func (s *Snapshot) Finite() bool {
	if s == nil {
		return false
	}
	vals := []float64{
		s.Mid, s.Bid, s.Ask, s.Spread, s.RSI, s.BollingerPos, s.MADirection,
		s.MACDHistogram, s.Stochastic, s.TrendStrength, s.Momentum,
		s.VolatilityFactor, s.ATR, s.SessionFactor, s.LiquidityLevel,
		s.QualityScore,
	}
	for _, v := range vals {
		if isNaNOrInf(v) {
			return false
		}
	}
	for _, l := range s.SupportLevels {
		if isNaNOrInf(l.Price) || isNaNOrInf(l.Strength) {
			return false
		}
	}
	for _, l := range s.ResistanceLevels {
		if isNaNOrInf(l.Price) || isNaNOrInf(l.Strength) {
			return false
		}
	}
	for _, d := range s.ScoreDimensions {
		if isNaNOrInf(d) {
			return false
		}
	}
	return true
}

func isNaNOrInf(v float64) bool {
	return v != v || v > 1e308 || v < -1e308
}

// PositionSide mirrors the two sides a filled position can hold.
type PositionSide string

const (
	PositionBuy  PositionSide = "Buy"
	PositionSell PositionSide = "Sell"
)

// PendingOrderType mirrors the order types a broker gateway accepts.
type PendingOrderType string

const (
	OrderBuyLimit  PendingOrderType = "BuyLimit"
	OrderSellLimit PendingOrderType = "SellLimit"
	OrderBuyStop   PendingOrderType = "BuyStop"
	OrderSellStop  PendingOrderType = "SellStop"
)

// Position is one open, filled position as mirrored from the gateway.
type Position struct {
	Ticket        int64
	Side          PositionSide
	Volume        float64
	OpenPrice     float64
	CurrentPrice  float64
	Swap          float64
	Commission    float64
	OpenTime      time.Time
	Magic         int64
}

// UnrealizedPnL is the position's floating profit including swap and
// commission.
func (p Position) UnrealizedPnL() float64 {
	var priceDelta float64
	switch p.Side {
	case PositionBuy:
		priceDelta = p.CurrentPrice - p.OpenPrice
	case PositionSell:
		priceDelta = p.OpenPrice - p.CurrentPrice
	}
	return priceDelta*p.Volume + p.Swap + p.Commission
}

// PendingOrder is one resting order as mirrored from the gateway.
type PendingOrder struct {
	Ticket int64
	Type   PendingOrderType
	Price  float64
	Volume float64
}

// Side reports the book side (Buy/Sell) a pending order rests on, used by
// the spacing manager's same-side collision checks.
func (o PendingOrder) Side() PositionSide {
	switch o.Type {
	case OrderBuyLimit, OrderBuyStop:
		return PositionBuy
	default:
		return PositionSell
	}
}

// AccountInfo is the account-level figures read from the gateway.
type AccountInfo struct {
	Balance     float64
	Equity      float64
	FreeMargin  float64
	MarginLevel float64
	Margin      float64
	Leverage    float64
	Currency    string
	Company     string
	Login       int64
}

// PortfolioSnapshot is the immutable, per-tick view of the account's open
// positions, resting orders, and account figures.
type PortfolioSnapshot struct {
	Positions     []Position
	PendingOrders []PendingOrder
	Account       AccountInfo
	Timestamp     time.Time
}

// Disjoint reports whether no ticket appears in both Positions and
// PendingOrders, the invariant the broker gateway is expected to uphold.
func (p *PortfolioSnapshot) Disjoint() bool {
	seen := make(map[int64]struct{}, len(p.Positions))
	for _, pos := range p.Positions {
		seen[pos.Ticket] = struct{}{}
	}
	for _, o := range p.PendingOrders {
		if _, ok := seen[o.Ticket]; ok {
			return false
		}
	}
	return true
}

// SameSide returns the pending orders resting on the given side, sorted by
// ascending price.
func (p *PortfolioSnapshot) SameSide(side PositionSide) []PendingOrder {
	out := make([]PendingOrder, 0, len(p.PendingOrders))
	for _, o := range p.PendingOrders {
		if o.Side() == side {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out
}

// Profitable returns the open positions with positive unrealized PnL.
func (p *PortfolioSnapshot) Profitable() []Position {
	out := make([]Position, 0, len(p.Positions))
	for _, pos := range p.Positions {
		if pos.UnrealizedPnL() > 0 {
			out = append(out, pos)
		}
	}
	return out
}

// Losing returns the open positions with non-positive unrealized PnL.
func (p *PortfolioSnapshot) Losing() []Position {
	out := make([]Position, 0, len(p.Positions))
	for _, pos := range p.Positions {
		if pos.UnrealizedPnL() <= 0 {
			out = append(out, pos)
		}
	}
	return out
}
