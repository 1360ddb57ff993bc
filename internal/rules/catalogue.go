package rules

import (
	"fmt"
	"math"
	"time"

	"xauengine/internal/market"
)

// TrendFollowing buys a strong uptrend with an oversold RSI and sells the
// symmetric case.
type TrendFollowing struct {
	StrengthThreshold float64
	RSILow, RSIHigh   float64
}

func (r *TrendFollowing) Name() string { return "trend_following" }

func (r *TrendFollowing) Evaluate(snap *market.Snapshot, _ *market.PortfolioSnapshot) (Result, bool) {
	conf := math.Min(0.9, 0.5+0.4*snap.TrendStrength)
	switch {
	case snap.TrendDirection == market.TrendUp && snap.TrendStrength > r.StrengthThreshold && snap.RSI < r.RSILow:
		return Result{RuleName: r.Name(), Kind: Buy, Confidence: conf,
			Reasoning: fmt.Sprintf("uptrend strength=%.2f RSI=%.1f below %.1f", snap.TrendStrength, snap.RSI, r.RSILow),
			Timestamp: time.Now()}, true
	case snap.TrendDirection == market.TrendDown && snap.TrendStrength > r.StrengthThreshold && snap.RSI > r.RSIHigh:
		return Result{RuleName: r.Name(), Kind: Sell, Confidence: conf,
			Reasoning: fmt.Sprintf("downtrend strength=%.2f RSI=%.1f above %.1f", snap.TrendStrength, snap.RSI, r.RSIHigh),
			Timestamp: time.Now()}, true
	}
	return Result{}, false
}

// MeanReversion buys at the bottom of the Bollinger band and sells at the
// top, damping confidence when volatility is elevated.
type MeanReversion struct {
	LowBand, HighBand float64
}

func (r *MeanReversion) Name() string { return "mean_reversion" }

func (r *MeanReversion) Evaluate(snap *market.Snapshot, _ *market.PortfolioSnapshot) (Result, bool) {
	conf := 0.75
	if snap.VolatilityFactor > 2 {
		conf *= 0.7
	}
	switch {
	case snap.BollingerPos < r.LowBand:
		return Result{RuleName: r.Name(), Kind: Buy, Confidence: conf,
			Reasoning: fmt.Sprintf("bollinger position %.2f below %.2f", snap.BollingerPos, r.LowBand),
			Timestamp: time.Now()}, true
	case snap.BollingerPos > r.HighBand:
		return Result{RuleName: r.Name(), Kind: Sell, Confidence: conf,
			Reasoning: fmt.Sprintf("bollinger position %.2f above %.2f", snap.BollingerPos, r.HighBand),
			Timestamp: time.Now()}, true
	}
	return Result{}, false
}

// SupportResistance buys near a strong support level and sells near a
// strong resistance level.
type SupportResistance struct {
	ToleranceFraction float64 // price tolerance as a fraction of price
	MinStrength       float64 // tau
}

func (r *SupportResistance) Name() string { return "support_resistance" }

func (r *SupportResistance) Evaluate(snap *market.Snapshot, _ *market.PortfolioSnapshot) (Result, bool) {
	tol := snap.Mid * r.ToleranceFraction
	for _, l := range snap.SupportLevels {
		if l.Strength >= r.MinStrength && math.Abs(snap.Mid-l.Price) <= tol {
			return Result{RuleName: r.Name(), Kind: Buy, Confidence: 0.5 + 0.4*l.Strength,
				Reasoning: fmt.Sprintf("near support %.2f strength=%.2f", l.Price, l.Strength),
				Timestamp: time.Now()}, true
		}
	}
	for _, l := range snap.ResistanceLevels {
		if l.Strength >= r.MinStrength && math.Abs(snap.Mid-l.Price) <= tol {
			return Result{RuleName: r.Name(), Kind: Sell, Confidence: 0.5 + 0.4*l.Strength,
				Reasoning: fmt.Sprintf("near resistance %.2f strength=%.2f", l.Price, l.Strength),
				Timestamp: time.Now()}, true
		}
	}
	return Result{}, false
}

// VolatilityBreakout buys an upside breakout (elevated relative volatility
// with a strong positive move) and sells the symmetric case. The
// snapshot's VolatilityFactor already expresses ATR relative to its
// average, so it stands in directly for the ATR > k*avgATR test.
type VolatilityBreakout struct {
	VolatilityMultiple float64 // k
	MinMomentum        float64
}

func (r *VolatilityBreakout) Name() string { return "volatility_breakout" }

func (r *VolatilityBreakout) Evaluate(snap *market.Snapshot, _ *market.PortfolioSnapshot) (Result, bool) {
	if snap.VolatilityFactor <= r.VolatilityMultiple {
		return Result{}, false
	}
	conf := math.Min(0.9, 0.5+0.3*snap.VolatilityFactor)
	switch {
	case snap.Momentum > r.MinMomentum:
		return Result{RuleName: r.Name(), Kind: Buy, Confidence: conf,
			Reasoning: fmt.Sprintf("volatility %.2fx avg, momentum %.2f", snap.VolatilityFactor, snap.Momentum),
			Timestamp: time.Now()}, true
	case snap.Momentum < -r.MinMomentum:
		return Result{RuleName: r.Name(), Kind: Sell, Confidence: conf,
			Reasoning: fmt.Sprintf("volatility %.2fx avg, momentum %.2f", snap.VolatilityFactor, snap.Momentum),
			Timestamp: time.Now()}, true
	}
	return Result{}, false
}

// PortfolioBalance rebalances exposure: it buys when the sell-side share
// of open volume exceeds max_exposure, sells when the buy-side share does,
// and additionally proposes CloseProfitable when total floating PnL
// exceeds a threshold.
type PortfolioBalance struct {
	MaxExposure   float64
	ProfitThreshold float64
}

func (r *PortfolioBalance) Name() string { return "portfolio_balance" }

func (r *PortfolioBalance) Evaluate(_ *market.Snapshot, portfolio *market.PortfolioSnapshot) (Result, bool) {
	if portfolio == nil || len(portfolio.Positions) == 0 {
		return Result{}, false
	}
	var buyVol, sellVol, totalPnL float64
	for _, p := range portfolio.Positions {
		if p.Side == market.PositionBuy {
			buyVol += p.Volume
		} else {
			sellVol += p.Volume
		}
		totalPnL += p.UnrealizedPnL()
	}
	total := buyVol + sellVol
	if total == 0 {
		return Result{}, false
	}

	if totalPnL > r.ProfitThreshold {
		return Result{RuleName: r.Name(), Kind: CloseProfitable, Confidence: 0.7,
			Reasoning: fmt.Sprintf("portfolio PnL %.2f exceeds threshold %.2f", totalPnL, r.ProfitThreshold),
			Timestamp: time.Now()}, true
	}

	sellShare := sellVol / total
	buyShare := buyVol / total
	switch {
	case sellShare > r.MaxExposure:
		return Result{RuleName: r.Name(), Kind: Buy, Confidence: 0.6,
			Reasoning: fmt.Sprintf("sell-side exposure %.0f%% exceeds %.0f%%", sellShare*100, r.MaxExposure*100),
			Timestamp: time.Now()}, true
	case buyShare > r.MaxExposure:
		return Result{RuleName: r.Name(), Kind: Sell, Confidence: 0.6,
			Reasoning: fmt.Sprintf("buy-side exposure %.0f%% exceeds %.0f%%", buyShare*100, r.MaxExposure*100),
			Timestamp: time.Now()}, true
	}
	return Result{}, false
}

// DefaultCatalogue returns the five required rules with the spec's
// suggested default thresholds.
func DefaultCatalogue() []Rule {
	return []Rule{
		&TrendFollowing{StrengthThreshold: 0.5, RSILow: 35, RSIHigh: 65},
		&MeanReversion{LowBand: 0.1, HighBand: 0.9},
		&SupportResistance{ToleranceFraction: 0.002, MinStrength: 0.6},
		&VolatilityBreakout{VolatilityMultiple: 1.5, MinMomentum: 0.3},
		&PortfolioBalance{MaxExposure: 0.7, ProfitThreshold: 100},
	}
}
