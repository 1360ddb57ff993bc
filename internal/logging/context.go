package logging

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

type contextKey string

const (
	loggerKey  contextKey = "logger"
	traceIDKey contextKey = "trace_id"
)

// GenerateTraceID generates a new trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext retrieves the logger from context
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey).(*Logger); ok {
		return l
	}
	return Default()
}

// NewContext creates a new context with the logger
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithTraceContext adds a trace ID to the context and returns a logger with it.
// Every log line written through the returned logger carries the same
// trace ID. The engine does not call it; its cycles log through
// CycleContext instead.
func WithTraceContext(ctx context.Context) (context.Context, *Logger) {
	traceID := GenerateTraceID()
	l := Default().WithTraceID(traceID)
	newCtx := context.WithValue(ctx, traceIDKey, traceID)
	newCtx = context.WithValue(newCtx, loggerKey, l)
	return newCtx, l
}

// CycleContext creates a logger context for one engine scheduling cycle
func CycleContext(cycleID int64, sessionState string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"cycle_id":      cycleID,
		"session_state": sessionState,
	}).WithComponent("engine")
}

// DecisionContext creates a logger context for a fused rule-engine decision
func DecisionContext(decisionID, action string, confidence float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"decision_id": decisionID,
		"action":      action,
		"confidence":  confidence,
	}).WithComponent("rules")
}

// OrderContext creates a logger context for order operations
func OrderContext(ticket int64, side string, volume float64, reason string) *Logger {
	return Default().WithFields(map[string]interface{}{
		"ticket": ticket,
		"side":   side,
		"volume": volume,
		"reason": reason,
	}).WithComponent("order")
}

// PositionContext creates a logger context for position operations
func PositionContext(ticket int64, side string, entryPrice, volume float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"ticket":      ticket,
		"side":        side,
		"entry_price": entryPrice,
		"volume":      volume,
	}).WithComponent("position")
}

// SpacingContext creates a logger context for spacing/collision decisions
func SpacingContext(side string, proposedPrice, spacing float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"side":           side,
		"proposed_price": proposedPrice,
		"spacing":        spacing,
	}).WithComponent("spacing")
}

// LotSizeContext creates a logger context for lot-size calculations
func LotSizeContext(side string, riskPercent, lots float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"side":         side,
		"risk_percent": riskPercent,
		"lots":         lots,
	}).WithComponent("lotsize")
}

// PerformanceContext creates a logger context for performance-tracker updates
func PerformanceContext(ruleName string, accuracy, avgProfit float64) *Logger {
	return Default().WithFields(map[string]interface{}{
		"rule":       ruleName,
		"accuracy":   accuracy,
		"avg_profit": avgProfit,
	}).WithComponent("performance")
}

// GatewayContext creates a logger context for broker gateway calls
func GatewayContext(operation string, connected bool) *Logger {
	return Default().WithFields(map[string]interface{}{
		"operation": operation,
		"connected": connected,
	}).WithComponent("gateway")
}

// APIContext creates a logger context for API operations
func APIContext(method, path string, statusCode int) *Logger {
	return Default().WithFields(map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
	}).WithComponent("api")
}

// HTTPMiddleware is a middleware that adds logging to HTTP requests
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = GenerateTraceID()
		}

		l := Default().WithTraceID(traceID).WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"remote_addr": r.RemoteAddr,
			"user_agent":  r.UserAgent(),
		}).WithComponent("http")

		ctx := NewContext(r.Context(), l)
		r = r.WithContext(ctx)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		l.WithDuration(duration).WithField("status_code", wrapped.statusCode).Info("request completed")
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
