// Package analyzer turns a stream of broker ticks into the immutable
// MarketSnapshot the core consumes each cycle. The indicator formulas
// (SMA/EMA, RSI, MACD, Bollinger Bands, ATR, Stochastic, swing-based
// support/resistance) mirror the teacher's strategy/indicators.go and
// analysis/trend.go, retargeted from a []Kline slice to a bounded candle
// ring buffer built from tick data for a single instrument.
package analyzer

import (
	"context"
	"math"
	"sync"
	"time"

	"xauengine/internal/gateway"
	"xauengine/internal/market"
	"xauengine/internal/ringbuf"
)

// Candle is one OHLC bucket built from ticks.
type Candle struct {
	Open, High, Low, Close float64
	Volume                 float64
	OpenTime               time.Time
}

// Config tunes the indicator lookback periods. Zero values fall back to
// the defaults below.
type Config struct {
	CandleInterval  time.Duration
	RSIPeriod       int
	BollingerPeriod int
	BollingerStdDev float64
	ATRPeriod       int
	StochKPeriod    int
	StochDPeriod    int
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	SwingLookback   int
	HistoryCapacity int
}

func (c Config) withDefaults() Config {
	if c.CandleInterval <= 0 {
		c.CandleInterval = time.Minute
	}
	if c.RSIPeriod <= 0 {
		c.RSIPeriod = 14
	}
	if c.BollingerPeriod <= 0 {
		c.BollingerPeriod = 20
	}
	if c.BollingerStdDev <= 0 {
		c.BollingerStdDev = 2.0
	}
	if c.ATRPeriod <= 0 {
		c.ATRPeriod = 14
	}
	if c.StochKPeriod <= 0 {
		c.StochKPeriod = 14
	}
	if c.StochDPeriod <= 0 {
		c.StochDPeriod = 3
	}
	if c.MACDFast <= 0 {
		c.MACDFast = 12
	}
	if c.MACDSlow <= 0 {
		c.MACDSlow = 26
	}
	if c.MACDSignal <= 0 {
		c.MACDSignal = 9
	}
	if c.SwingLookback <= 0 {
		c.SwingLookback = 5
	}
	if c.HistoryCapacity <= 0 {
		c.HistoryCapacity = 500
	}
	return c
}

// Analyzer builds MarketSnapshots from a rolling window of candles
// assembled from the broker's tick feed.
type Analyzer struct {
	cfg     Config
	symbol  string
	gw      gateway.BrokerGateway
	pointValue float64

	mu      sync.Mutex
	candles *ringbuf.Buffer[Candle]
	current Candle
	haveCur bool
	lastTick gateway.Tick
}

// New constructs an Analyzer reading ticks for symbol from gw.
func New(symbol string, pointValue float64, gw gateway.BrokerGateway, cfg Config) *Analyzer {
	cfg = cfg.withDefaults()
	return &Analyzer{
		cfg:        cfg,
		symbol:     symbol,
		gw:         gw,
		pointValue: pointValue,
		candles:    ringbuf.New[Candle](cfg.HistoryCapacity),
	}
}

// Ingest folds one tick into the in-progress candle, rolling it into
// history when the candle interval elapses.
func (a *Analyzer) Ingest(tick gateway.Tick) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastTick = tick
	mid := (tick.Bid + tick.Ask) / 2
	bucket := tick.Time.Truncate(a.cfg.CandleInterval)

	if !a.haveCur {
		a.current = Candle{Open: mid, High: mid, Low: mid, Close: mid, OpenTime: bucket}
		a.haveCur = true
		return
	}
	if bucket.After(a.current.OpenTime) {
		a.candles.Push(a.current)
		a.current = Candle{Open: mid, High: mid, Low: mid, Close: mid, OpenTime: bucket}
		return
	}
	if mid > a.current.High {
		a.current.High = mid
	}
	if mid < a.current.Low {
		a.current.Low = mid
	}
	a.current.Close = mid
	a.current.Volume++
}

// ComprehensiveAnalysis fetches the current tick, folds it into the
// candle history, and derives a full MarketSnapshot.
func (a *Analyzer) ComprehensiveAnalysis(ctx context.Context) (*market.Snapshot, error) {
	tick, ok, err := a.gw.Tick(ctx, a.symbol)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	a.Ingest(tick)

	a.mu.Lock()
	history := a.candles.Items()
	if a.haveCur {
		history = append(history, a.current)
	}
	cfg := a.cfg
	a.mu.Unlock()

	closes := make([]float64, len(history))
	for i, c := range history {
		closes[i] = c.Close
	}

	mid := (tick.Bid + tick.Ask) / 2
	snap := &market.Snapshot{
		Mid: mid, Bid: tick.Bid, Ask: tick.Ask, Spread: tick.Ask - tick.Bid,
		Timestamp: time.Now(),
	}

	warmup := cfg.BollingerPeriod
	if cfg.MACDSlow+cfg.MACDSignal > warmup {
		warmup = cfg.MACDSlow + cfg.MACDSignal
	}
	if len(history) < warmup {
		snap.QualityScore = float64(len(history)) / float64(warmup)
		snap.RSI = 50
		snap.MADirection = 0
		snap.Stochastic = 50
		snap.TrendDirection = market.TrendSideways
		snap.Session = sessionFor(snap.Timestamp)
		snap.SessionFactor = sessionFactorFor(snap.Session)
		snap.VolatilityFactor = 1.0
		snap.VolatilityLevel = market.VolNormal
		snap.DataFreshness = time.Since(tick.Time)
		return snap, nil
	}

	snap.RSI = calcRSI(closes, cfg.RSIPeriod)
	upper, middle, lower := calcBollinger(closes, cfg.BollingerPeriod, cfg.BollingerStdDev)
	snap.BollingerPos = bollingerPosition(mid, upper, lower)
	snap.MADirection = maDirection(closes)
	snap.MACDHistogram = calcMACDHistogram(closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	snap.Stochastic = calcStochastic(history, cfg.StochKPeriod)
	snap.Momentum = calcMomentum(closes, 10)

	trend, strength := trendFromMA(closes, middle)
	snap.TrendDirection = trend
	snap.TrendStrength = strength

	atr := calcATR(history, cfg.ATRPeriod)
	avgATR := calcATR(history, cfg.ATRPeriod*2)
	snap.ATR = atr
	if avgATR > 0 {
		snap.VolatilityFactor = atr / avgATR
	} else {
		snap.VolatilityFactor = 1.0
	}
	snap.VolatilityLevel = volatilityLevelFor(snap.VolatilityFactor)

	snap.SupportLevels, snap.ResistanceLevels = swingLevels(history, cfg.SwingLookback)

	snap.Session = sessionFor(snap.Timestamp)
	snap.SessionFactor = sessionFactorFor(snap.Session)
	snap.LiquidityLevel = liquidityLevelFor(snap.Spread, a.pointValue)

	snap.ScoreDimensions = [4]float64{
		clamp01(strength),
		clamp01(1 - math.Abs(snap.RSI-50)/50),
		clamp01(snap.SessionFactor),
		clamp01(2 - snap.VolatilityFactor),
	}
	snap.QualityScore = 1.0
	snap.DataFreshness = time.Since(tick.Time)

	return snap, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
