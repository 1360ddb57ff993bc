package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleHealth(c *gin.Context) {
	connected := s.status.Gateway.Connected()
	state := s.status.Breaker.State()

	healthy := connected && state == "trading"
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"gateway_connected": connected,
		"engine_state":      state,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	account, err := s.status.Gateway.AccountInfo(ctx)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"symbol":             s.status.Symbol,
		"engine_state":       s.status.Breaker.State(),
		"cycle_interval_ms":  s.status.Breaker.Interval().Milliseconds(),
		"consecutive_offline": s.status.Breaker.ConsecutiveOffline(),
		"account": gin.H{
			"balance":      account.Balance,
			"equity":       account.Equity,
			"free_margin":  account.FreeMargin,
			"margin_level": account.MarginLevel,
		},
	})
}

func (s *Server) handleRuleStates(c *gin.Context) {
	states := s.status.Rules.States()
	out := make(map[string]gin.H, len(states))
	for name, st := range states {
		out[name] = gin.H{
			"weight":               st.Weight,
			"confidence_threshold": st.ConfidenceThreshold,
			"enabled":              st.Enabled,
			"success_rate":         st.SuccessRate(),
			"average_profit":       st.AverageProfit(),
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handlePerformance(c *gin.Context) {
	tracker := s.status.Performance
	// recoveryEffectiveness and executionSuccess have no dedicated tracker
	// getters; the neutral midpoint keeps the composite score from being
	// skewed by metrics this endpoint doesn't otherwise expose.
	const recoveryEffectiveness, executionSuccess = 0.5, 0.5

	score := tracker.OverallSystemScore(recoveryEffectiveness, executionSuccess)
	dist, avgSlippage := tracker.ExecutionQualityDistribution()

	c.JSON(http.StatusOK, gin.H{
		"accuracy_24h":            tracker.AccuracyRate24h(),
		"overall_system_score":    score,
		"trend":                   tracker.ScoreTrend(),
		"execution_quality":       dist,
		"average_slippage":        avgSlippage,
		"recommendations":         tracker.Recommendations(),
	})
}
