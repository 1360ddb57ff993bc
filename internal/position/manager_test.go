package position

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauengine/internal/gateway"
	"xauengine/internal/market"
)

func testGatewayWithPositions(positions ...market.Position) *gateway.Mock {
	gw := gateway.NewMock(2000, market.AccountInfo{Balance: 10000}, 1)
	for _, p := range positions {
		gw.SeedPosition(p)
	}
	return gw
}

func TestCloseProfitableHedgeRecoveryClosesAllWhenSumNonNegative(t *testing.T) {
	positions := []market.Position{
		{Ticket: 1, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 150},  // +50
		{Ticket: 2, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 140},  // +40
		{Ticket: 3, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 70},   // -30
		{Ticket: 4, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 80},   // -20
	}
	gw := testGatewayWithPositions(positions...)
	m := NewManager(Config{Symbol: "XAUUSD", Magic: 1, PartialRecoveryThreshold: 1}, gw)

	portfolio := &market.PortfolioSnapshot{Positions: positions}
	ok := m.CloseProfitable(context.Background(), portfolio, 0.9, "hedge recovery")
	require.True(t, ok)

	remaining, _ := gw.Positions(context.Background(), "XAUUSD")
	assert.Empty(t, remaining)

	log := m.CloseLog()
	assert.Len(t, log, 4)
}

func TestCloseProfitableStandardClosesOnlyProfitable(t *testing.T) {
	positions := []market.Position{
		{Ticket: 1, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 110},
		{Ticket: 2, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 90},
	}
	gw := testGatewayWithPositions(positions...)
	m := NewManager(Config{Symbol: "XAUUSD", Magic: 1}, gw)

	portfolio := &market.PortfolioSnapshot{Positions: positions}
	ok := m.CloseProfitable(context.Background(), portfolio, 0.9, "standard close")
	require.True(t, ok)

	remaining, _ := gw.Positions(context.Background(), "XAUUSD")
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(2), remaining[0].Ticket)
}

func TestCloseProfitableSelectiveClosesTopN(t *testing.T) {
	positions := []market.Position{
		{Ticket: 1, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 130},
		{Ticket: 2, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 120},
		{Ticket: 3, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 110},
	}
	gw := testGatewayWithPositions(positions...)
	m := NewManager(Config{Symbol: "XAUUSD", Magic: 1}, gw)

	portfolio := &market.PortfolioSnapshot{Positions: positions}
	ok := m.CloseProfitable(context.Background(), portfolio, 0.5, "selective profit take")
	require.True(t, ok)

	remaining, _ := gw.Positions(context.Background(), "XAUUSD")
	assert.Len(t, remaining, 1)
}

func TestEmergencyCloseAll(t *testing.T) {
	positions := []market.Position{
		{Ticket: 1, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 90},
		{Ticket: 2, Side: market.PositionSell, Volume: 1, OpenPrice: 100, CurrentPrice: 110},
	}
	gw := testGatewayWithPositions(positions...)
	m := NewManager(Config{Symbol: "XAUUSD", Magic: 1}, gw)

	portfolio := &market.PortfolioSnapshot{Positions: positions}
	ok := m.EmergencyCloseAll(context.Background(), portfolio)
	assert.True(t, ok)

	remaining, _ := gw.Positions(context.Background(), "XAUUSD")
	assert.Empty(t, remaining)
}

func TestCloseLosingStandardClosesOnlyLosing(t *testing.T) {
	positions := []market.Position{
		{Ticket: 1, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 110},
		{Ticket: 2, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 90},
	}
	gw := testGatewayWithPositions(positions...)
	m := NewManager(Config{Symbol: "XAUUSD", Magic: 1}, gw)

	portfolio := &market.PortfolioSnapshot{Positions: positions}
	ok := m.CloseLosing(context.Background(), portfolio, 0.9, "standard close")
	require.True(t, ok)

	remaining, _ := gw.Positions(context.Background(), "XAUUSD")
	require.Len(t, remaining, 1)
	assert.Equal(t, int64(1), remaining[0].Ticket)
}

func TestCloseLosingSelectiveClosesWorstN(t *testing.T) {
	positions := []market.Position{
		{Ticket: 1, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 70},
		{Ticket: 2, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 80},
		{Ticket: 3, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 90},
	}
	gw := testGatewayWithPositions(positions...)
	m := NewManager(Config{Symbol: "XAUUSD", Magic: 1}, gw)

	portfolio := &market.PortfolioSnapshot{Positions: positions}
	ok := m.CloseLosing(context.Background(), portfolio, 0.5, "selective loss cut")
	require.True(t, ok)

	remaining, _ := gw.Positions(context.Background(), "XAUUSD")
	assert.Len(t, remaining, 1)
	assert.Equal(t, int64(3), remaining[0].Ticket)
}

func TestRecoveryOpportunitiesNetPositive(t *testing.T) {
	positions := []market.Position{
		{Ticket: 1, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 120},
		{Ticket: 2, Side: market.PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 95},
	}
	gw := testGatewayWithPositions(positions...)
	m := NewManager(Config{Symbol: "XAUUSD", Magic: 1, PartialRecoveryThreshold: 1}, gw)

	portfolio := &market.PortfolioSnapshot{Positions: positions}
	opps := m.RecoveryOpportunities(portfolio)
	require.NotEmpty(t, opps)
	assert.Equal(t, "NetPositive", opps[0].Kind)
}
