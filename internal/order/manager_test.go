package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauengine/internal/gateway"
	"xauengine/internal/lotsize"
	"xauengine/internal/market"
	"xauengine/internal/spacing"
	"xauengine/internal/xerr"
)

func testManager(gw gateway.BrokerGateway) *Manager {
	spacingMgr := spacing.NewManager(500, spacing.DefaultCollisionBufferPoints, 0.01)
	lots := lotsize.NewCalculator(lotsize.Config{
		Method: lotsize.Hybrid, BaseLot: 0.1, MinLot: 0.01, MaxLot: 5.0, LotStep: 0.01, MaxRiskPct: 0.02,
	})
	cfg := Config{
		Symbol: "XAUUSD", MinLot: 0.01, MaxLot: 5.0, MaxDailyOrders: 2,
		PointValue: 0.01, BaseSpacingPoints: 50, Magic: 1, SlippageTolerance: 0.1,
	}
	return NewManager(cfg, gw, spacingMgr, lots)
}

func freshSnapshot() *market.Snapshot {
	return &market.Snapshot{
		Mid: 2000, Bid: 1999.9, Ask: 2000.1, VolatilityFactor: 1.0,
		TrendDirection: market.TrendUp, TrendStrength: 0.6, SessionFactor: 1.0,
		LiquidityLevel: 0.5, Timestamp: time.Now(),
	}
}

func testAccount() market.AccountInfo {
	return market.AccountInfo{Balance: 10000, Equity: 10000, FreeMargin: 9000, Margin: 10}
}

func TestPlaceSmartOrderSucceeds(t *testing.T) {
	gw := gateway.NewMock(2000, testAccount(), 1)
	m := testManager(gw)
	res := m.PlaceSmartOrder(context.Background(), market.PositionBuy, 0.1, 1999.50, "trend following setup", ReasonTrend, 0.8, freshSnapshot())
	require.True(t, res.Success)
	assert.NotZero(t, res.Ticket)
}

func TestPlaceSmartOrderRejectsInvalidVolume(t *testing.T) {
	gw := gateway.NewMock(2000, testAccount(), 1)
	m := testManager(gw)
	res := m.PlaceSmartOrder(context.Background(), market.PositionBuy, 100, 1999.50, "trend", ReasonTrend, 0.8, freshSnapshot())
	assert.False(t, res.Success)
	assert.Equal(t, xerr.InvalidInput, res.ErrorKind)
}

func TestPlaceSmartOrderGatesOnDisconnected(t *testing.T) {
	gw := gateway.NewMock(2000, testAccount(), 1)
	gw.SetConnected(false)
	m := testManager(gw)
	res := m.PlaceSmartOrder(context.Background(), market.PositionBuy, 0.1, 1999.50, "trend", ReasonTrend, 0.8, freshSnapshot())
	assert.False(t, res.Success)
	assert.Equal(t, xerr.NotConnected, res.ErrorKind)
}

func TestPlaceSmartOrderGatesOnStaleSnapshot(t *testing.T) {
	gw := gateway.NewMock(2000, testAccount(), 1)
	m := testManager(gw)
	stale := freshSnapshot()
	stale.Timestamp = time.Now().Add(-time.Minute)
	res := m.PlaceSmartOrder(context.Background(), market.PositionBuy, 0.1, 1999.50, "trend", ReasonTrend, 0.8, stale)
	assert.False(t, res.Success)
	assert.Equal(t, xerr.StaleData, res.ErrorKind)
}

func TestPlaceSmartOrderDailyLimit(t *testing.T) {
	gw := gateway.NewMock(2000, testAccount(), 1)
	m := testManager(gw)
	snap := freshSnapshot()

	first := m.PlaceSmartOrder(context.Background(), market.PositionBuy, 0.1, 1999.50, "trend", ReasonTrend, 0.8, snap)
	require.True(t, first.Success)

	second := m.PlaceSmartOrder(context.Background(), market.PositionBuy, 0.1, 1999.00, "trend", ReasonTrend, 0.8, snap)
	require.True(t, second.Success)

	third := m.PlaceSmartOrder(context.Background(), market.PositionBuy, 0.1, 1998.50, "trend", ReasonTrend, 0.8, snap)
	assert.False(t, third.Success)
	assert.Equal(t, xerr.DailyLimitReached, third.ErrorKind)
}

func TestReasonStatsCredited(t *testing.T) {
	gw := gateway.NewMock(2000, testAccount(), 1)
	m := testManager(gw)
	snap := freshSnapshot()
	m.PlaceSmartOrder(context.Background(), market.PositionBuy, 0.1, 1999.50, "trend", ReasonTrend, 0.8, snap)

	stats := m.ReasonStats()
	assert.Equal(t, 1, stats[ReasonTrend].Count)
	assert.Equal(t, 1, stats[ReasonTrend].Successes)
}

func TestReasonFromText(t *testing.T) {
	assert.Equal(t, ReasonTrend, ReasonFromText("strong trend continuation"))
	assert.Equal(t, ReasonBreakout, ReasonFromText("volatility breakout confirmed"))
	assert.Equal(t, ReasonUnknown, ReasonFromText("no particular signal"))
}
