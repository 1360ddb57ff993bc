package spacing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauengine/internal/market"
)

func quietSnapshot() *market.Snapshot {
	return &market.Snapshot{
		TrendStrength: 0.1, LiquidityLevel: 0.5, SessionFactor: 1.0,
		VolatilityFactor: 1.0, Timestamp: time.Now(),
	}
}

func TestCheckCollisionEmptyOrdersNeverCollides(t *testing.T) {
	m := NewManager(500, DefaultCollisionBufferPoints, 0.01)
	r := m.CheckCollision(2000.05, nil, market.PositionBuy)
	assert.False(t, r.HasCollision)
}

func TestCheckCollisionDetectsNearbyOrder(t *testing.T) {
	m := NewManager(500, DefaultCollisionBufferPoints, 0.01)
	orders := []market.PendingOrder{{Ticket: 1, Type: market.OrderBuyLimit, Price: 2000.00}}
	r := m.CheckCollision(2000.10, orders, market.PositionBuy)
	assert.True(t, r.HasCollision)
}

func TestFindAlternativeRoundTripsToNoCollision(t *testing.T) {
	m := NewManager(500, DefaultCollisionBufferPoints, 0.01)
	orders := []market.PendingOrder{
		{Ticket: 1, Type: market.OrderBuyLimit, Price: 2000.00},
		{Ticket: 2, Type: market.OrderBuyLimit, Price: 2000.80},
		{Ticket: 3, Type: market.OrderBuyLimit, Price: 2001.60},
	}
	spacingResult := m.CalculateSpacing(2000.05, quietSnapshot(), market.PositionBuy, orders)
	require.True(t, spacingResult.PlacementAllowed)

	alt, ok := m.FindAlternative(2000.05, 2000.05, orders, spacingResult.SpacingPoints, market.PositionBuy)
	require.True(t, ok)

	result := m.CheckCollision(alt, orders, market.PositionBuy)
	assert.False(t, result.HasCollision)
}

func TestCalculateSpacingClampsToMinimum(t *testing.T) {
	m := NewManager(500, DefaultCollisionBufferPoints, 0.01)
	r := m.CalculateSpacing(2000, quietSnapshot(), market.PositionBuy, nil)
	assert.GreaterOrEqual(t, r.SpacingPoints, MinSpacingPoints)
	assert.True(t, r.PlacementAllowed)
}

func TestCalculateSpacingDegenerateSnapshotFallsBackToBase(t *testing.T) {
	m := NewManager(500, DefaultCollisionBufferPoints, 0.01)
	r := m.CalculateSpacing(2000, nil, market.PositionBuy, nil)
	assert.Equal(t, MinSpacingPoints, r.SpacingPoints)
	assert.True(t, r.PlacementAllowed)
}
