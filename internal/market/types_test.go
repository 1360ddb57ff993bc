package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSnapshot() *Snapshot {
	return &Snapshot{
		Mid: 2000.0, Bid: 1999.9, Ask: 2000.1, Spread: 0.2,
		RSI: 45, BollingerPos: 0.5, MADirection: 1, MACDHistogram: 0.1,
		Stochastic: 50, TrendDirection: TrendUp, TrendStrength: 0.6,
		Momentum: 0.2, VolatilityFactor: 1.0, VolatilityLevel: VolNormal,
		ATR: 1.5, Session: SessionLondon, SessionFactor: 1.0,
		LiquidityLevel: 0.8, Timestamp: time.Now(),
	}
}

func TestSnapshotFreshWithinBudget(t *testing.T) {
	s := validSnapshot()
	assert.True(t, s.Fresh())

	s.Timestamp = time.Now().Add(-31 * time.Second)
	assert.False(t, s.Fresh())
}

func TestSnapshotFreshNil(t *testing.T) {
	var s *Snapshot
	assert.False(t, s.Fresh())
}

func TestSnapshotFiniteRejectsNaNAndInf(t *testing.T) {
	s := validSnapshot()
	require.True(t, s.Finite())

	s.RSI = math.NaN()
	assert.False(t, s.Finite())

	s2 := validSnapshot()
	s2.ATR = math.Inf(1)
	assert.False(t, s2.Finite())

	s3 := validSnapshot()
	s3.SupportLevels = []Level{{Price: math.Inf(-1), Strength: 0.5}}
	assert.False(t, s3.Finite())
}

func TestPositionUnrealizedPnL(t *testing.T) {
	buy := Position{Side: PositionBuy, Volume: 0.1, OpenPrice: 2000, CurrentPrice: 2010, Swap: -0.5, Commission: -0.2}
	assert.InDelta(t, 1-0.5-0.2, buy.UnrealizedPnL(), 1e-9)

	sell := Position{Side: PositionSell, Volume: 0.1, OpenPrice: 2000, CurrentPrice: 1990}
	assert.InDelta(t, 1.0, sell.UnrealizedPnL(), 1e-9)
}

func TestPortfolioSnapshotDisjoint(t *testing.T) {
	p := &PortfolioSnapshot{
		Positions:     []Position{{Ticket: 1}, {Ticket: 2}},
		PendingOrders: []PendingOrder{{Ticket: 3}},
	}
	assert.True(t, p.Disjoint())

	p.PendingOrders = append(p.PendingOrders, PendingOrder{Ticket: 1})
	assert.False(t, p.Disjoint())
}

func TestPortfolioSnapshotProfitableAndLosing(t *testing.T) {
	p := &PortfolioSnapshot{
		Positions: []Position{
			{Ticket: 1, Side: PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 110},
			{Ticket: 2, Side: PositionBuy, Volume: 1, OpenPrice: 100, CurrentPrice: 90},
		},
	}
	require.Len(t, p.Profitable(), 1)
	assert.Equal(t, int64(1), p.Profitable()[0].Ticket)
	require.Len(t, p.Losing(), 1)
	assert.Equal(t, int64(2), p.Losing()[0].Ticket)
}

func TestPortfolioSnapshotSameSide(t *testing.T) {
	p := &PortfolioSnapshot{
		PendingOrders: []PendingOrder{
			{Ticket: 1, Type: OrderBuyLimit, Price: 100},
			{Ticket: 2, Type: OrderSellStop, Price: 110},
			{Ticket: 3, Type: OrderBuyStop, Price: 105},
		},
	}
	buys := p.SameSide(PositionBuy)
	require.Len(t, buys, 2)
}
