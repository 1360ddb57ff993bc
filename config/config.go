// Package config loads the engine's single structured configuration:
// trading parameters, risk management limits, per-rule tuning, and the
// adaptive-reweighting tunables. Unknown JSON keys are ignored; missing
// keys fall back to the defaults below.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the root configuration injected at startup.
type Config struct {
	Trading        TradingConfig          `json:"trading"`
	RiskManagement RiskManagementConfig   `json:"risk_management"`
	Rules          map[string]RuleConfig  `json:"rules"`
	Adaptive       AdaptiveConfig         `json:"adaptive"`
	Logging        LoggingConfig          `json:"logging"`
	Server         ServerConfig           `json:"server"`
	Gateway        GatewayConfig          `json:"gateway"`
	DataDir        string                 `json:"data_dir"`
}

// TradingConfig holds the instrument and execution-ladder parameters.
type TradingConfig struct {
	Symbol                string  `json:"symbol"`
	Mode                  string  `json:"mode"` // Conservative, Balanced, Aggressive, Adaptive
	BaseLotSize           float64 `json:"base_lot_size"`
	MinLotSize            float64 `json:"min_lot_size"`
	MaxLotSize            float64 `json:"max_lot_size"`
	LotStep               float64 `json:"lot_step"`
	MaxPositions          int     `json:"max_positions"`
	BaseSpacingPoints     float64 `json:"base_spacing_points"`
	MaxSpacingPoints      float64 `json:"max_spacing_points"`
	CollisionBufferPoints float64 `json:"collision_buffer_points"`
	PointValue            float64 `json:"point_value"`
	Magic                 int64   `json:"magic"`
	CycleIntervalSeconds  int     `json:"cycle_interval_seconds"`
}

// RiskManagementConfig holds the Order Manager's safety limits.
type RiskManagementConfig struct {
	MaxRiskPercentage float64 `json:"max_risk_percentage"`
	MaxDailyOrders    int     `json:"max_daily_orders"`
}

// RuleConfig tunes one entry of the rule catalogue.
type RuleConfig struct {
	Enabled             bool               `json:"enabled"`
	Weight              float64            `json:"weight"`
	ConfidenceThreshold float64            `json:"confidence_threshold"`
	Parameters          map[string]float64 `json:"parameters"`
}

// AdaptiveConfig tunes the Rule Engine's adaptive-reweighting step.
type AdaptiveConfig struct {
	LearningRate             float64 `json:"learning_rate"`
	PerformanceWindow        int     `json:"performance_window"`
	ConfidenceAdjustmentRate float64 `json:"confidence_adjustment_rate"`
	MinSignals               int     `json:"min_signals"`
}

// LoggingConfig mirrors logging.Config's fields for JSON/env loading.
type LoggingConfig struct {
	Level       string `json:"level"`
	Output      string `json:"output"`
	JSONFormat  bool   `json:"json_format"`
	IncludeFile bool   `json:"include_file"`
}

// ServerConfig configures the read-only status/health/metrics HTTP surface.
type ServerConfig struct {
	Port           int    `json:"port"`
	Host           string `json:"host"`
	AllowedOrigins string `json:"allowed_origins"`
}

// GatewayConfig tunes the rate limiter wrapped around the broker gateway.
// RequestsPerSecond feeds golang.org/x/time/rate.Limiter directly; Burst is
// its bucket size.
type GatewayConfig struct {
	RequestsPerSecond float64 `json:"requests_per_second"`
	Burst             int     `json:"burst"`
}

// Defaults returns the configuration defaults named throughout §3/§4 of the
// engine's own design — callers overlay a config file and environment
// variables on top of this.
func Defaults() *Config {
	return &Config{
		Trading: TradingConfig{
			Symbol:                "XAUUSD",
			Mode:                  "Balanced",
			BaseLotSize:           0.10,
			MinLotSize:            0.01,
			MaxLotSize:            5.0,
			LotStep:               0.01,
			MaxPositions:          20,
			BaseSpacingPoints:     50.0,
			MaxSpacingPoints:      500.0,
			CollisionBufferPoints: 30.0,
			PointValue:            0.01,
			Magic:                 20260731,
			CycleIntervalSeconds:  5,
		},
		RiskManagement: RiskManagementConfig{
			MaxRiskPercentage: 2.0,
			MaxDailyOrders:    50,
		},
		Rules: map[string]RuleConfig{
			"trend_following":     {Enabled: true, Weight: 0.25, ConfidenceThreshold: 0.5},
			"mean_reversion":      {Enabled: true, Weight: 0.20, ConfidenceThreshold: 0.5},
			"support_resistance":  {Enabled: true, Weight: 0.20, ConfidenceThreshold: 0.5},
			"volatility_breakout": {Enabled: true, Weight: 0.20, ConfidenceThreshold: 0.5},
			"portfolio_balance":   {Enabled: true, Weight: 0.15, ConfidenceThreshold: 0.5},
		},
		Adaptive: AdaptiveConfig{
			LearningRate:             0.05,
			PerformanceWindow:        10,
			ConfidenceAdjustmentRate: 0.05,
			MinSignals:               20,
		},
		Logging: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			AllowedOrigins: "*",
		},
		Gateway: GatewayConfig{
			RequestsPerSecond: 10.0,
			Burst:             5,
		},
	}
}

// Load reads config.json if present, then overlays environment variable
// overrides. Missing file and unknown keys are not errors.
func Load() (*Config, error) {
	cfg := Defaults()

	if file, err := os.ReadFile("config.json"); err == nil {
		if err := json.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Trading.Symbol = getEnvOrDefault("TRADING_SYMBOL", cfg.Trading.Symbol)
	cfg.Trading.Mode = getEnvOrDefault("TRADING_MODE", cfg.Trading.Mode)
	cfg.Trading.BaseLotSize = getEnvFloatOrDefault("TRADING_BASE_LOT_SIZE", cfg.Trading.BaseLotSize)
	cfg.Trading.MinLotSize = getEnvFloatOrDefault("TRADING_MIN_LOT_SIZE", cfg.Trading.MinLotSize)
	cfg.Trading.MaxLotSize = getEnvFloatOrDefault("TRADING_MAX_LOT_SIZE", cfg.Trading.MaxLotSize)
	cfg.Trading.MaxPositions = getEnvIntOrDefault("TRADING_MAX_POSITIONS", cfg.Trading.MaxPositions)
	cfg.Trading.BaseSpacingPoints = getEnvFloatOrDefault("TRADING_BASE_SPACING_POINTS", cfg.Trading.BaseSpacingPoints)
	cfg.Trading.MaxSpacingPoints = getEnvFloatOrDefault("TRADING_MAX_SPACING_POINTS", cfg.Trading.MaxSpacingPoints)
	cfg.Trading.CollisionBufferPoints = getEnvFloatOrDefault("TRADING_COLLISION_BUFFER_POINTS", cfg.Trading.CollisionBufferPoints)
	cfg.Trading.CycleIntervalSeconds = getEnvIntOrDefault("TRADING_CYCLE_INTERVAL_SECONDS", cfg.Trading.CycleIntervalSeconds)

	cfg.RiskManagement.MaxRiskPercentage = getEnvFloatOrDefault("RISK_MAX_RISK_PERCENTAGE", cfg.RiskManagement.MaxRiskPercentage)
	cfg.RiskManagement.MaxDailyOrders = getEnvIntOrDefault("RISK_MAX_DAILY_ORDERS", cfg.RiskManagement.MaxDailyOrders)

	cfg.Adaptive.LearningRate = getEnvFloatOrDefault("ADAPTIVE_LEARNING_RATE", cfg.Adaptive.LearningRate)
	cfg.Adaptive.ConfidenceAdjustmentRate = getEnvFloatOrDefault("ADAPTIVE_CONFIDENCE_ADJUSTMENT_RATE", cfg.Adaptive.ConfidenceAdjustmentRate)
	cfg.Adaptive.MinSignals = getEnvIntOrDefault("ADAPTIVE_MIN_SIGNALS", cfg.Adaptive.MinSignals)

	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Output = getEnvOrDefault("LOG_OUTPUT", cfg.Logging.Output)
	cfg.Logging.JSONFormat = getEnvOrDefault("LOG_JSON", boolStr(cfg.Logging.JSONFormat)) == "true"
	cfg.Logging.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", boolStr(cfg.Logging.IncludeFile)) == "true"

	cfg.Server.Port = getEnvIntOrDefault("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.Server.AllowedOrigins)

	cfg.Gateway.RequestsPerSecond = getEnvFloatOrDefault("GATEWAY_REQUESTS_PER_SECOND", cfg.Gateway.RequestsPerSecond)
	cfg.Gateway.Burst = getEnvIntOrDefault("GATEWAY_BURST", cfg.Gateway.Burst)

	cfg.DataDir = getEnvOrDefault("DATA_DIR", cfg.DataDir)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig writes a sample configuration file using the defaults.
func GenerateSampleConfig(filename string) error {
	data, err := json.MarshalIndent(Defaults(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}
