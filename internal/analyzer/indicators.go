package analyzer

import (
	"math"
	"sort"

	"xauengine/internal/market"
)

func calcSMA(closes []float64, period int) float64 {
	if len(closes) < period {
		return 0
	}
	sum := 0.0
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		sum += closes[i]
	}
	return sum / float64(period)
}

func calcEMA(closes []float64, period int) float64 {
	if len(closes) < period {
		return 0
	}
	ema := calcSMA(closes[:period], period)
	multiplier := 2.0 / float64(period+1)
	for i := period; i < len(closes); i++ {
		ema = (closes[i] * multiplier) + (ema * (1 - multiplier))
	}
	return ema
}

func calcRSI(closes []float64, period int) float64 {
	if len(closes) < period+1 {
		return 50.0
	}
	gains, losses := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func calcBollinger(closes []float64, period int, stdDevMultiplier float64) (upper, middle, lower float64) {
	if len(closes) < period {
		return 0, 0, 0
	}
	middle = calcSMA(closes, period)
	variance := 0.0
	start := len(closes) - period
	for i := start; i < len(closes); i++ {
		diff := closes[i] - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))
	upper = middle + stdDev*stdDevMultiplier
	lower = middle - stdDev*stdDevMultiplier
	return upper, middle, lower
}

func bollingerPosition(mid, upper, lower float64) float64 {
	if upper <= lower {
		return 0.5
	}
	pos := (mid - lower) / (upper - lower)
	return clamp01(pos)
}

// calcMACDHistogram mirrors the teacher's simplified signal-line
// approximation (0.8x the MACD line) rather than maintaining a full MACD
// history series.
func calcMACDHistogram(closes []float64, fast, slow, signal int) float64 {
	if len(closes) < slow+signal {
		return 0
	}
	fastEMA := calcEMA(closes, fast)
	slowEMA := calcEMA(closes, slow)
	macdLine := fastEMA - slowEMA
	signalLine := macdLine * 0.8
	return macdLine - signalLine
}

func calcATR(history []Candle, period int) float64 {
	if len(history) < period+1 {
		return 0
	}
	trSum := 0.0
	start := len(history) - period
	for i := start; i < len(history); i++ {
		high, low, prevClose := history[i].High, history[i].Low, history[i-1].Close
		tr := math.Max(high-low, math.Max(math.Abs(high-prevClose), math.Abs(low-prevClose)))
		trSum += tr
	}
	return trSum / float64(period)
}

func calcStochastic(history []Candle, kPeriod int) float64 {
	if len(history) < kPeriod {
		return 50
	}
	start := len(history) - kPeriod
	highestHigh, lowestLow := history[start].High, history[start].Low
	for i := start; i < len(history); i++ {
		if history[i].High > highestHigh {
			highestHigh = history[i].High
		}
		if history[i].Low < lowestLow {
			lowestLow = history[i].Low
		}
	}
	if highestHigh == lowestLow {
		return 50
	}
	return (history[len(history)-1].Close - lowestLow) / (highestHigh - lowestLow) * 100
}

func calcMomentum(closes []float64, period int) float64 {
	if len(closes) <= period {
		return 0
	}
	past := closes[len(closes)-1-period]
	if past == 0 {
		return 0
	}
	m := (closes[len(closes)-1] - past) / past
	if m > 1 {
		m = 1
	}
	if m < -1 {
		m = -1
	}
	return m
}

func maDirection(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}
	short := calcSMA(closes, minInt(10, len(closes)))
	prevCloses := closes[:len(closes)-1]
	prevShort := calcSMA(prevCloses, minInt(10, len(prevCloses)))
	if prevShort == 0 {
		return 0
	}
	return (short - prevShort) / prevShort
}

func trendFromMA(closes []float64, bollingerMiddle float64) (market.TrendDirection, float64) {
	short := calcSMA(closes, minInt(10, len(closes)))
	long := calcSMA(closes, minInt(50, len(closes)))
	if long == 0 {
		return market.TrendSideways, 0
	}
	diff := (short - long) / long
	strength := clamp01(math.Abs(diff) * 20)
	switch {
	case diff > 0.001:
		return market.TrendUp, strength
	case diff < -0.001:
		return market.TrendDown, strength
	default:
		return market.TrendSideways, strength
	}
}

func volatilityLevelFor(factor float64) market.VolatilityLevel {
	switch {
	case factor > 2:
		return market.VolVeryHigh
	case factor > 1.5:
		return market.VolHigh
	case factor < 0.5:
		return market.VolVeryLow
	case factor < 0.8:
		return market.VolLow
	default:
		return market.VolNormal
	}
}

// swingLevels finds local extrema over a lookback window and reports them
// as support/resistance levels, strength scaled by how many times price
// has respected the level (touch count), mirroring the teacher's swing
// detection in analysis/trend.go.
func swingLevels(history []Candle, lookback int) (support, resistance []market.Level) {
	if len(history) < lookback*2+1 {
		return nil, nil
	}
	var lows, highs []priceTouch

	for i := lookback; i < len(history)-lookback; i++ {
		isLow, isHigh := true, true
		for j := i - lookback; j <= i+lookback; j++ {
			if j == i {
				continue
			}
			if history[j].Low < history[i].Low {
				isLow = false
			}
			if history[j].High > history[i].High {
				isHigh = false
			}
		}
		if isLow {
			lows = appendNearTouch(lows, history[i].Low)
		}
		if isHigh {
			highs = appendNearTouch(highs, history[i].High)
		}
	}

	maxCount := 1
	for _, t := range lows {
		if t.count > maxCount {
			maxCount = t.count
		}
	}
	for _, t := range highs {
		if t.count > maxCount {
			maxCount = t.count
		}
	}

	for _, t := range lows {
		support = append(support, market.Level{Price: t.price, Strength: clamp01(float64(t.count) / float64(maxCount))})
	}
	for _, t := range highs {
		resistance = append(resistance, market.Level{Price: t.price, Strength: clamp01(float64(t.count) / float64(maxCount))})
	}
	sort.Slice(support, func(i, j int) bool { return support[i].Price < support[j].Price })
	sort.Slice(resistance, func(i, j int) bool { return resistance[i].Price < resistance[j].Price })
	return support, resistance
}

type priceTouch struct {
	price float64
	count int
}

func appendNearTouch(touches []priceTouch, price float64) []priceTouch {
	const tolerance = 0.0015
	for i := range touches {
		if math.Abs(touches[i].price-price)/price < tolerance {
			touches[i].count++
			return touches
		}
	}
	return append(touches, priceTouch{price: price, count: 1})
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
