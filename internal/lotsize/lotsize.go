// Package lotsize picks an order volume from confidence, market condition,
// and account state. The calculation method dispatch (Fixed /
// ConfidenceBased / VolatilityAdjusted / Hybrid) follows the same
// method-switch shape the risk manager uses for position sizing; Hybrid
// blends four tentative lot components the way that manager's percent/
// Kelly/ATR methods each derive one.
package lotsize

import (
	"math"

	"xauengine/internal/market"
)

// Method selects which lot-sizing algorithm to use.
type Method string

const (
	Fixed              Method = "Fixed"
	ConfidenceBased    Method = "ConfidenceBased"
	VolatilityAdjusted Method = "VolatilityAdjusted"
	Hybrid             Method = "Hybrid"
)

// MarketCondition tags the market regime used by the Hybrid method's
// market component.
type MarketCondition string

const (
	ConditionHighVolatility MarketCondition = "HighVolatility"
	ConditionLowVolatility  MarketCondition = "LowVolatility"
	ConditionTrending       MarketCondition = "Trending"
	ConditionRanging        MarketCondition = "Ranging"
)

// Config holds the fixed parameters the calculator is constructed with.
type Config struct {
	Method     Method
	BaseLot    float64
	MinLot     float64
	MaxLot     float64
	LotStep    float64
	MaxRiskPct float64 // max_risk_pct, Hybrid's risk component input
}

// Calculator maps inputs to an order volume deterministically: same
// inputs always yield the same output, no hidden state.
type Calculator struct {
	cfg Config
}

// NewCalculator creates a Calculator bound to cfg.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// Calculate picks a volume for the given confidence, market condition,
// reasoning tag, and account figures.
func (c *Calculator) Calculate(confidence float64, condition MarketCondition, volatilityFactor float64, reasoningTag string, account market.AccountInfo) float64 {
	var lots float64
	switch c.cfg.Method {
	case Fixed:
		lots = c.cfg.BaseLot
	case ConfidenceBased:
		lots = c.confidenceComponent(confidence)
	case VolatilityAdjusted:
		lots = c.volatilityComponent(volatilityFactor)
	default: // Hybrid
		lots = c.hybrid(confidence, condition, volatilityFactor, reasoningTag, account)
	}
	return c.finalize(lots, account)
}

func (c *Calculator) riskComponent(account market.AccountInfo) float64 {
	if account.Balance <= 0 {
		return c.cfg.BaseLot
	}
	return account.FreeMargin * c.cfg.MaxRiskPct / (account.Balance * 0.001)
}

func (c *Calculator) confidenceComponent(confidence float64) float64 {
	return c.cfg.BaseLot * (0.5 + confidence)
}

func (c *Calculator) volatilityComponent(volatilityFactor float64) float64 {
	var f float64
	switch {
	case volatilityFactor > 2:
		f = 0.5
	case volatilityFactor > 1.5:
		f = 0.7
	case volatilityFactor < 0.5:
		f = 1.3
	default:
		f = 1.0
	}
	return c.cfg.BaseLot * f
}

func (c *Calculator) marketComponent(condition MarketCondition) float64 {
	switch condition {
	case ConditionHighVolatility:
		return c.cfg.BaseLot * 0.6
	case ConditionLowVolatility:
		return c.cfg.BaseLot * 1.2
	case ConditionTrending:
		return c.cfg.BaseLot * 0.9
	case ConditionRanging:
		return c.cfg.BaseLot * 1.1
	default:
		return c.cfg.BaseLot
	}
}

// reasoningAdjustment scales the combined lot by the decision's stated
// intent: foundation/emergency/rebalance trades size up, maintenance
// trades size down.
func reasoningAdjustment(reasoningTag string) float64 {
	switch reasoningTag {
	case "foundation":
		return 1.3
	case "emergency":
		return 1.2
	case "rebalance":
		return 1.1
	case "maintenance":
		return 0.8
	default:
		return 1.0
	}
}

func (c *Calculator) hybrid(confidence float64, condition MarketCondition, volatilityFactor float64, reasoningTag string, account market.AccountInfo) float64 {
	risk := c.riskComponent(account)
	conf := c.confidenceComponent(confidence)
	vol := c.volatilityComponent(volatilityFactor)
	mkt := c.marketComponent(condition)

	combined := risk*0.30 + conf*0.25 + vol*0.25 + mkt*0.20
	return combined * reasoningAdjustment(reasoningTag)
}

// finalize clamps to [min_lot, max_lot], rounds to lot_step, and caps so
// the estimated margin does not exceed 80% of free margin. The min_lot
// floor is applied last, so the result is min_lot even where that exceeds
// the margin cap.
func (c *Calculator) finalize(lots float64, account market.AccountInfo) float64 {
	if lots != lots || math.IsInf(lots, 0) || lots <= 0 {
		lots = c.cfg.MinLot
	}
	if lots < c.cfg.MinLot {
		lots = c.cfg.MinLot
	}
	if lots > c.cfg.MaxLot {
		lots = c.cfg.MaxLot
	}
	if c.cfg.LotStep > 0 {
		lots = math.Round(lots/c.cfg.LotStep) * c.cfg.LotStep
	}

	// estimated_margin is approximated by volume * a notional unit margin;
	// the Hybrid calculator only has balance/free-margin, so estimate
	// proportionally against the account's current margin usage.
	if account.Balance > 0 && lots > 0 {
		estimatedMargin := lots * (account.Margin + 1e-9)
		capMargin := 0.8 * account.FreeMargin
		if estimatedMargin > capMargin && estimatedMargin > 0 {
			lots *= capMargin / estimatedMargin
			if c.cfg.LotStep > 0 {
				lots = math.Floor(lots/c.cfg.LotStep) * c.cfg.LotStep
			}
		}
	}
	if lots < c.cfg.MinLot {
		lots = c.cfg.MinLot
	}
	return lots
}
