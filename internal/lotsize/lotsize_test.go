package lotsize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xauengine/internal/market"
)

func baseConfig() Config {
	return Config{
		Method:     Hybrid,
		BaseLot:    0.1,
		MinLot:     0.01,
		MaxLot:     5.0,
		LotStep:    0.01,
		MaxRiskPct: 0.02,
	}
}

func baseAccount() market.AccountInfo {
	return market.AccountInfo{Balance: 10000, Equity: 10000, FreeMargin: 9000, Margin: 100}
}

func TestCalculateDeterministic(t *testing.T) {
	c := NewCalculator(baseConfig())
	a := baseAccount()
	v1 := c.Calculate(0.8, ConditionTrending, 1.0, "foundation", a)
	v2 := c.Calculate(0.8, ConditionTrending, 1.0, "foundation", a)
	assert.Equal(t, v1, v2)
}

func TestCalculateRespectsBounds(t *testing.T) {
	c := NewCalculator(baseConfig())
	a := baseAccount()
	v := c.Calculate(0.9, ConditionLowVolatility, 0.3, "foundation", a)
	assert.GreaterOrEqual(t, v, baseConfig().MinLot)
	assert.LessOrEqual(t, v, baseConfig().MaxLot)
}

func TestCalculateIsMultipleOfLotStep(t *testing.T) {
	c := NewCalculator(baseConfig())
	a := baseAccount()
	v := c.Calculate(0.65, ConditionRanging, 1.1, "", a)
	steps := v / baseConfig().LotStep
	assert.InDelta(t, steps, float64(int(steps+0.5)), 1e-6)
}

func TestCalculateMaintenanceReasoningShrinksSize(t *testing.T) {
	c := NewCalculator(baseConfig())
	a := baseAccount()
	withMaintenance := c.Calculate(0.7, ConditionRanging, 1.0, "maintenance", a)
	withFoundation := c.Calculate(0.7, ConditionRanging, 1.0, "foundation", a)
	assert.Less(t, withMaintenance, withFoundation)
}

func TestCalculateCapsOnLowFreeMargin(t *testing.T) {
	c := NewCalculator(baseConfig())
	a := baseAccount()
	a.FreeMargin = 1.0
	v := c.Calculate(0.9, ConditionTrending, 1.0, "foundation", a)
	assert.GreaterOrEqual(t, v, baseConfig().MinLot)
	assert.InDelta(t, baseConfig().MinLot, v, 1e-9)
}
