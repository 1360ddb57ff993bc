// Command xauengine runs the rule-driven XAUUSD trading engine: it
// constructs every collaborator (market data, rule catalogue, order and
// position management, performance tracking, circuit breaker), wires them
// into the cooperative cycle loop, serves a read-only status surface, and
// shuts down gracefully on SIGINT/SIGTERM.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xauengine/config"
	"xauengine/internal/analyzer"
	"xauengine/internal/api"
	"xauengine/internal/circuit"
	"xauengine/internal/engine"
	"xauengine/internal/events"
	"xauengine/internal/gateway"
	"xauengine/internal/logging"
	"xauengine/internal/lotsize"
	"xauengine/internal/market"
	"xauengine/internal/metrics"
	"xauengine/internal/order"
	"xauengine/internal/performance"
	"xauengine/internal/position"
	"xauengine/internal/rules"
	"xauengine/internal/spacing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(&logging.Config{
		Level:       cfg.Logging.Level,
		Output:      cfg.Logging.Output,
		JSONFormat:  cfg.Logging.JSONFormat,
		IncludeFile: cfg.Logging.IncludeFile,
		Component:   "main",
	})
	logging.SetDefault(logger)
	logger.Info("structured logging initialized")

	bus := events.NewEventBus()
	metrics.Wire(bus)
	logger.Info("event bus initialized, metrics wired")

	var gw gateway.BrokerGateway = gateway.NewMock(2000, market.AccountInfo{
		Balance:     10000,
		Equity:      10000,
		FreeMargin:  9000,
		MarginLevel: 1000,
	}, time.Now().UnixNano())
	gw = gateway.NewRateLimited(gw, cfg.Gateway.RequestsPerSecond, cfg.Gateway.Burst)
	logger.Info("gateway rate limiter wired", "requests_per_second", cfg.Gateway.RequestsPerSecond, "burst", cfg.Gateway.Burst)

	az := analyzer.New(cfg.Trading.Symbol, cfg.Trading.PointValue, gw, analyzer.Config{
		CandleInterval: time.Minute,
	})

	catalogue := buildCatalogue(cfg.Rules)
	mode := rules.Mode(cfg.Trading.Mode)
	ruleEngine := rules.NewEngine(catalogue, mode)
	logger.Info("rule catalogue constructed", "rules", len(catalogue), "mode", string(mode))

	spacingMgr := spacing.NewManager(cfg.Trading.MaxSpacingPoints, cfg.Trading.CollisionBufferPoints, cfg.Trading.PointValue)

	lots := lotsize.NewCalculator(lotsize.Config{
		Method:     lotsize.Hybrid,
		BaseLot:    cfg.Trading.BaseLotSize,
		MinLot:     cfg.Trading.MinLotSize,
		MaxLot:     cfg.Trading.MaxLotSize,
		LotStep:    cfg.Trading.LotStep,
		MaxRiskPct: cfg.RiskManagement.MaxRiskPercentage,
	})

	orderMgr := order.NewManager(order.Config{
		Symbol:            cfg.Trading.Symbol,
		MinLot:            cfg.Trading.MinLotSize,
		MaxLot:            cfg.Trading.MaxLotSize,
		MaxDailyOrders:    cfg.RiskManagement.MaxDailyOrders,
		PointValue:        cfg.Trading.PointValue,
		BaseSpacingPoints: cfg.Trading.BaseSpacingPoints,
		Magic:             cfg.Trading.Magic,
	}, gw, spacingMgr, lots)

	positionMgr := position.NewManager(position.Config{
		Symbol:                   cfg.Trading.Symbol,
		Magic:                    cfg.Trading.Magic,
		PartialRecoveryThreshold: 0.5,
	}, gw)

	perf := performance.NewTracker()

	breaker := circuit.NewBreaker(time.Duration(cfg.Trading.CycleIntervalSeconds)*time.Second, bus)

	eng := engine.New(engine.Dependencies{
		Analyzer:    az,
		Gateway:     gw,
		Symbol:      cfg.Trading.Symbol,
		Magic:       cfg.Trading.Magic,
		Rules:       ruleEngine,
		Spacing:     spacingMgr,
		Lots:        lots,
		Orders:      orderMgr,
		Positions:   positionMgr,
		Performance: perf,
		Breaker:     breaker,
		Bus:         bus,
	})

	apiServer := api.NewServer(api.Config{
		Port:           cfg.Server.Port,
		Host:           cfg.Server.Host,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, api.Status{
		Symbol:      cfg.Trading.Symbol,
		Breaker:     breaker,
		Rules:       ruleEngine,
		Performance: perf,
		Gateway:     gw,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eng.Start(ctx)
	logger.Info("engine cycle loop started")

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("api server stopped", "error", err.Error())
		}
	}()
	logger.Info("api server listening", "host", cfg.Server.Host, "port", cfg.Server.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")

	eng.Stop()
	logger.Info("engine cycle loop stopped")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "error", err.Error())
	}

	logger.Info("shutdown complete")
}

// buildCatalogue constructs the rule catalogue from configuration,
// falling back to the catalogue's own defaults for any rule the config
// omits or leaves unparameterized. Rules with enabled=false are left out
// of the catalogue entirely; the engine's fusion only ever sees rules it
// can actually dispatch.
func buildCatalogue(cfg map[string]config.RuleConfig) []rules.Rule {
	defaults := rules.DefaultCatalogue()
	if cfg == nil {
		return defaults
	}

	byName := make(map[string]rules.Rule, len(defaults))
	for _, r := range defaults {
		byName[r.Name()] = r
	}

	param := func(rc config.RuleConfig, key string, fallback float64) float64 {
		if v, ok := rc.Parameters[key]; ok {
			return v
		}
		return fallback
	}

	var catalogue []rules.Rule
	for name, def := range byName {
		rc, ok := cfg[name]
		if !ok {
			catalogue = append(catalogue, def)
			continue
		}
		if !rc.Enabled {
			continue
		}
		switch r := def.(type) {
		case *rules.TrendFollowing:
			catalogue = append(catalogue, &rules.TrendFollowing{
				StrengthThreshold: param(rc, "strength_threshold", r.StrengthThreshold),
				RSILow:            param(rc, "rsi_low", r.RSILow),
				RSIHigh:           param(rc, "rsi_high", r.RSIHigh),
			})
		case *rules.MeanReversion:
			catalogue = append(catalogue, &rules.MeanReversion{
				LowBand:  param(rc, "low_band", r.LowBand),
				HighBand: param(rc, "high_band", r.HighBand),
			})
		case *rules.SupportResistance:
			catalogue = append(catalogue, &rules.SupportResistance{
				ToleranceFraction: param(rc, "tolerance_fraction", r.ToleranceFraction),
				MinStrength:       param(rc, "min_strength", r.MinStrength),
			})
		case *rules.VolatilityBreakout:
			catalogue = append(catalogue, &rules.VolatilityBreakout{
				VolatilityMultiple: param(rc, "volatility_multiple", r.VolatilityMultiple),
				MinMomentum:        param(rc, "min_momentum", r.MinMomentum),
			})
		case *rules.PortfolioBalance:
			catalogue = append(catalogue, &rules.PortfolioBalance{
				MaxExposure:     param(rc, "max_exposure", r.MaxExposure),
				ProfitThreshold: param(rc, "profit_threshold", r.ProfitThreshold),
			})
		default:
			catalogue = append(catalogue, def)
		}
	}
	return catalogue
}
