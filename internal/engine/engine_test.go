package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauengine/internal/analyzer"
	"xauengine/internal/circuit"
	"xauengine/internal/events"
	"xauengine/internal/gateway"
	"xauengine/internal/lotsize"
	"xauengine/internal/market"
	"xauengine/internal/order"
	"xauengine/internal/performance"
	"xauengine/internal/position"
	"xauengine/internal/rules"
	"xauengine/internal/spacing"
)

func testCatalogue() []rules.Rule {
	return []rules.Rule{
		&rules.TrendFollowing{StrengthThreshold: 0.3, RSILow: 40, RSIHigh: 60},
		&rules.MeanReversion{LowBand: 0.2, HighBand: 0.8},
		&rules.SupportResistance{ToleranceFraction: 0.002, MinStrength: 0.3},
		&rules.VolatilityBreakout{VolatilityMultiple: 1.2, MinMomentum: 0.1},
		&rules.PortfolioBalance{MaxExposure: 0.7, ProfitThreshold: 100},
	}
}

func newTestEngine(t *testing.T) (*Engine, *gateway.Mock) {
	t.Helper()
	gw := gateway.NewMock(2000, market.AccountInfo{Balance: 10000, Equity: 10000, FreeMargin: 9000}, 7)
	az := analyzer.New("XAUUSD", 0.01, gw, analyzer.Config{
		CandleInterval: time.Millisecond, BollingerPeriod: 5, MACDSlow: 3, MACDSignal: 2, ATRPeriod: 3, StochKPeriod: 3, SwingLookback: 1,
	})

	re := rules.NewEngine(testCatalogue(), rules.Balanced)
	sp := spacing.NewManager(500, 20, 0.01)
	lots := lotsize.NewCalculator(lotsize.Config{Method: lotsize.Hybrid, BaseLot: 0.1, MinLot: 0.01, MaxLot: 5, LotStep: 0.01, MaxRiskPct: 2})
	om := order.NewManager(order.Config{Symbol: "XAUUSD", MinLot: 0.01, MaxLot: 5, MaxDailyOrders: 50, PointValue: 0.01, BaseSpacingPoints: 100, Magic: 42}, gw, sp, lots)
	pm := position.NewManager(position.Config{Symbol: "XAUUSD", Magic: 42, PartialRecoveryThreshold: 0.5}, gw)
	perf := performance.NewTracker()
	bus := events.NewEventBus()
	breaker := circuit.NewBreaker(time.Millisecond, bus)

	e := New(Dependencies{
		Analyzer:    az,
		Gateway:     gw,
		Symbol:      "XAUUSD",
		Magic:       42,
		Rules:       re,
		Spacing:     sp,
		Lots:        lots,
		Orders:      om,
		Positions:   pm,
		Performance: perf,
		Breaker:     breaker,
		Bus:         bus,
	})
	return e, gw
}

func TestRunCycleProducesNoPanicAndRecordsCycleHealth(t *testing.T) {
	e, _ := newTestEngine(t)
	for i := 0; i < 30; i++ {
		interval := e.runCycle(context.Background())
		assert.Greater(t, interval, time.Duration(0))
	}
	assert.Equal(t, circuit.StateTrading, e.deps.Breaker.State())
}

func TestRunCycleCollapsesToWaitWhenDisconnected(t *testing.T) {
	e, gw := newTestEngine(t)
	gw.SetConnected(false)

	for i := 0; i < 3; i++ {
		e.runCycle(context.Background())
	}
	assert.Equal(t, circuit.StateHaltedOffline, e.deps.Breaker.State())
}

func TestStartStopLifecycle(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	e.Stop()

	require.False(t, e.running)
}

func TestEmergencyStopLatchesViaDecisionDispatch(t *testing.T) {
	e, _ := newTestEngine(t)
	portfolio := &market.PortfolioSnapshot{Account: market.AccountInfo{Balance: 10000, Equity: 10000}}
	snap := &market.Snapshot{Mid: 2000, Bid: 1999, Ask: 2001}

	e.dispatch(context.Background(), rules.FusedDecision{Kind: rules.EmergencyStop}, snap, portfolio)

	assert.Equal(t, circuit.StateHaltedEmergency, e.deps.Breaker.State())
}
