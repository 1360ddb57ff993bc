package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xauengine/internal/gateway"
	"xauengine/internal/market"
)

func TestComprehensiveAnalysisWarmupReportsPartialQuality(t *testing.T) {
	gw := gateway.NewMock(2000, market.AccountInfo{Balance: 10000}, 1)
	a := New("XAUUSD", 0.01, gw, Config{CandleInterval: time.Millisecond})

	snap, err := a.ComprehensiveAnalysis(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.Less(t, snap.QualityScore, 1.0)
	assert.True(t, snap.Finite())
}

func TestComprehensiveAnalysisMatchesAfterWarmup(t *testing.T) {
	gw := gateway.NewMock(2000, market.AccountInfo{Balance: 10000}, 1)
	a := New("XAUUSD", 0.01, gw, Config{CandleInterval: time.Millisecond, BollingerPeriod: 5, MACDSlow: 3, MACDSignal: 2, ATRPeriod: 3, StochKPeriod: 3, SwingLookback: 1})

	var snap *market.Snapshot
	for i := 0; i < 40; i++ {
		var err error
		snap, err = a.ComprehensiveAnalysis(context.Background())
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	require.NotNil(t, snap)
	assert.True(t, snap.Finite())
	assert.Equal(t, 1.0, snap.QualityScore)
}

func TestSessionBucketsCoverFullDay(t *testing.T) {
	seen := map[market.Session]bool{}
	for h := 0; h < 24; h++ {
		ts := time.Date(2026, 7, 31, h, 0, 0, 0, time.UTC)
		seen[sessionFor(ts)] = true
	}
	assert.Len(t, seen, 5)
}
