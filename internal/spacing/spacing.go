// Package spacing computes the minimum distance between same-side pending
// orders, detects collisions against that distance, and proposes an
// alternative price when a proposed order collides with an existing one.
//
// The multiplier driving spacing is a weighted confluence of five market
// dimension factors plus a sixth, order-density factor — the same
// convex-combination-of-normalized-factors shape the confluence scorer
// uses for signal strength, retargeted here at price-ladder spacing.
package spacing

import (
	"fmt"
	"math"
	"sort"

	"xauengine/internal/market"
)

// Floor on the final spacing value and default collision buffer, in points.
const (
	MinSpacingPoints = 50.0
	DefaultCollisionBufferPoints = 30.0
)

// Result is calculate_spacing's output.
type Result struct {
	SpacingPoints     float64
	PlacementAllowed  bool
	CollisionDetected bool
	Reasoning         string
}

// CollisionResult is check_collision's output.
type CollisionResult struct {
	HasCollision      bool
	NearestOrderPrice float64
	Distance          float64
}

// Manager computes spacing and resolves collisions on the price ladder.
// Weights mirror the confluence scorer's pattern: five dimension factors
// weighted together, each normalized to roughly [0.5, 2.5].
type Manager struct {
	dimensionWeight      float64 // weight applied to the five-factor blend
	distributionWeight   float64 // weight applied to order-density
	maxSpacingPoints     float64
	collisionBufferPts   float64
	pointValue           float64
}

// NewManager creates a Manager with the spec's fixed weighting: 70%
// dimension blend, 30% order-density distribution factor.
func NewManager(maxSpacingPoints, collisionBufferPoints, pointValue float64) *Manager {
	return &Manager{
		dimensionWeight:    0.70,
		distributionWeight: 0.30,
		maxSpacingPoints:   maxSpacingPoints,
		collisionBufferPts: collisionBufferPoints,
		pointValue:         pointValue,
	}
}

// trendFactor maps trend strength onto roughly [0.5, 2.5]: a strong trend
// widens spacing so fewer orders cluster against the move.
func trendFactor(snap *market.Snapshot) float64 {
	return clamp(0.5+2.0*snap.TrendStrength, 0.5, 2.5)
}

// volumeFactor uses liquidity level as a proxy for traded volume: thin
// liquidity widens spacing.
func volumeFactor(snap *market.Snapshot) float64 {
	return clamp(2.5-2.0*snap.LiquidityLevel, 0.5, 2.5)
}

// sessionFactor maps the snapshot's session factor (0.5..1.5) onto the
// dimension range.
func sessionFactor(snap *market.Snapshot) float64 {
	return clamp(snap.SessionFactor*2.0-0.5, 0.5, 2.5)
}

// volatilityFactor widens spacing as volatility rises above the 1.0
// baseline.
func volatilityFactor(snap *market.Snapshot) float64 {
	return clamp(0.5+snap.VolatilityFactor, 0.5, 2.5)
}

// opportunityFactor narrows spacing near strong support/resistance levels,
// where tighter grids are worth the collision risk.
func opportunityFactor(snap *market.Snapshot, current float64) float64 {
	best := 0.0
	for _, lvls := range [][]market.Level{snap.SupportLevels, snap.ResistanceLevels} {
		for _, l := range lvls {
			dist := math.Abs(current-l.Price) / math.Max(current, 1e-9)
			if dist < 0.01 && l.Strength > best {
				best = l.Strength
			}
		}
	}
	return clamp(2.0-1.5*best, 0.5, 2.5)
}

// densityFactor returns the distribution factor derived from same-side
// order density per 100 points.
func densityFactor(density float64) float64 {
	switch {
	case density > 0.5:
		return 1.8
	case density > 0.3:
		return 1.4
	case density < 0.1:
		return 0.8
	default:
		return 1.0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v != v { // NaN
		return (lo + hi) / 2
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// sameSideDensity computes orders per 100 points across the active range
// of same-side orders (or 0 if fewer than two). The span is in price units
// and must be converted to points via pointValue before dividing into
// 100-point buckets, same as every other distance in this file.
func sameSideDensity(prices []float64, pointValue float64) float64 {
	if len(prices) < 2 || pointValue <= 0 {
		return 0
	}
	span := prices[len(prices)-1] - prices[0]
	if span <= 0 {
		return 0
	}
	spanPoints := span / pointValue
	return float64(len(prices)) / (spanPoints / 100.0)
}

// CalculateSpacing implements calculate_spacing. It never fails: any
// numerical difficulty downgrades to base spacing with placement allowed
// and a reasoning string explaining the downgrade.
func (m *Manager) CalculateSpacing(current float64, snap *market.Snapshot, side market.PositionSide, activeOrders []market.PendingOrder) Result {
	base := MinSpacingPoints
	if snap == nil || !snap.Finite() {
		return Result{SpacingPoints: base, PlacementAllowed: true, CollisionDetected: false,
			Reasoning: "snapshot unavailable, using base spacing"}
	}

	dimBlend := (trendFactor(snap) + volumeFactor(snap) + sessionFactor(snap) +
		volatilityFactor(snap) + opportunityFactor(snap, current)) / 5.0

	prices := sameSidePrices(activeOrders, side)
	dist := densityFactor(sameSideDensity(prices, m.pointValue))

	multiplier := dimBlend*m.dimensionWeight + dist*m.distributionWeight
	if multiplier != multiplier || math.IsInf(multiplier, 0) {
		return Result{SpacingPoints: base, PlacementAllowed: true, CollisionDetected: false,
			Reasoning: "non-finite multiplier, using base spacing"}
	}

	spacing := clamp(base*multiplier, MinSpacingPoints, m.maxSpacingPoints)
	return Result{
		SpacingPoints:    spacing,
		PlacementAllowed: true,
		Reasoning:        fmt.Sprintf("spacing=%.1f (dim=%.2f dist=%.2f)", spacing, dimBlend, dist),
	}
}

func sameSidePrices(orders []market.PendingOrder, side market.PositionSide) []float64 {
	out := make([]float64, 0, len(orders))
	for _, o := range orders {
		if o.Side() == side {
			out = append(out, o.Price)
		}
	}
	sort.Float64s(out)
	return out
}

// CheckCollision implements check_collision: a collision exists iff the
// target price is within collision_buffer*point_value of some pending
// order on the same side. Referentially transparent in its inputs.
func (m *Manager) CheckCollision(targetPrice float64, activeOrders []market.PendingOrder, side market.PositionSide) CollisionResult {
	buffer := m.collisionBufferPts * m.pointValue
	nearest := 0.0
	nearestDist := math.Inf(1)
	for _, o := range activeOrders {
		if o.Side() != side {
			continue
		}
		d := math.Abs(targetPrice - o.Price)
		if d < nearestDist {
			nearestDist = d
			nearest = o.Price
		}
	}
	if math.IsInf(nearestDist, 1) {
		return CollisionResult{HasCollision: false}
	}
	return CollisionResult{
		HasCollision:      nearestDist < buffer,
		NearestOrderPrice: nearest,
		Distance:          nearestDist,
	}
}

// FindAlternative implements find_alternative: it sorts same-side order
// prices, enumerates gaps wide enough to hold spacing*point_value, and
// places at the midpoint of the largest qualifying gap. If none qualifies
// it places one spacing beyond the extremum on the proposing side.
func (m *Manager) FindAlternative(targetPrice, current float64, activeOrders []market.PendingOrder, spacingPoints float64, side market.PositionSide) (float64, bool) {
	minGap := spacingPoints * m.pointValue
	prices := sameSidePrices(activeOrders, side)

	if len(prices) >= 2 {
		bestGapStart, bestGapEnd, bestWidth := 0.0, 0.0, 0.0
		for i := 0; i+1 < len(prices); i++ {
			width := prices[i+1] - prices[i]
			if width >= minGap && width > bestWidth {
				bestWidth, bestGapStart, bestGapEnd = width, prices[i], prices[i+1]
			}
		}
		if bestWidth > 0 {
			mid := (bestGapStart + bestGapEnd) / 2
			return m.finalizeAlternative(mid, current, activeOrders, spacingPoints, side)
		}
	}

	// No qualifying gap: place one spacing beyond the extremum on the
	// proposing side.
	var candidate float64
	switch side {
	case market.PositionBuy:
		low := current
		if len(prices) > 0 {
			low = math.Min(low, prices[0])
		}
		candidate = low - minGap
	default:
		high := current
		if len(prices) > 0 {
			high = math.Max(high, prices[len(prices)-1])
		}
		candidate = high + minGap
	}
	return m.finalizeAlternative(candidate, current, activeOrders, spacingPoints, side)
}

func (m *Manager) finalizeAlternative(candidate, current float64, activeOrders []market.PendingOrder, spacingPoints float64, side market.PositionSide) (float64, bool) {
	if candidate != candidate || math.IsInf(candidate, 0) || candidate <= 0 {
		return fallbackPrice(current, spacingPoints, m.pointValue, side), false
	}
	if c := m.CheckCollision(candidate, activeOrders, side); c.HasCollision {
		return fallbackPrice(current, spacingPoints, m.pointValue, side), false
	}
	return candidate, true
}

func fallbackPrice(current, spacingPoints, pointValue float64, side market.PositionSide) float64 {
	offset := spacingPoints * pointValue
	if side == market.PositionBuy {
		return current - offset
	}
	return current + offset
}
