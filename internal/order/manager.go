// Package order turns a fused Buy/Sell decision into a submitted order. It
// keeps a local mirror of pending orders (map[ticket]entry, refreshed from
// the gateway on every call) and per-reason performance counters, the same
// map-plus-history bookkeeping shape the teacher's order manager uses for
// its active-orders/order-history split.
package order

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"xauengine/internal/gateway"
	"xauengine/internal/lotsize"
	"xauengine/internal/logging"
	"xauengine/internal/market"
	"xauengine/internal/spacing"
	"xauengine/internal/xerr"
)

// ReasonTag buckets an order's triggering rule for per-strategy performance
// tracking as a closed enum. Rule results carry no tag; the engine derives
// one at dispatch time from the names of the contributing rules, falling
// back to ReasonFromText.
type ReasonTag string

const (
	ReasonTrend      ReasonTag = "TrendFollowing"
	ReasonReversion  ReasonTag = "MeanReversion"
	ReasonSupport    ReasonTag = "SupportResistance"
	ReasonBreakout   ReasonTag = "VolatilityBreakout"
	ReasonBalance    ReasonTag = "PortfolioBalance"
	ReasonGrid       ReasonTag = "Grid"
	ReasonUnknown    ReasonTag = "Unknown"
)

// ReasonFromText derives a ReasonTag from a free-form reasoning string by
// keyword scan, for callers that only have text (logging, legacy rules).
func ReasonFromText(reasoning string) ReasonTag {
	lower := strings.ToLower(reasoning)
	switch {
	case strings.Contains(lower, "trend"):
		return ReasonTrend
	case strings.Contains(lower, "reversion"):
		return ReasonReversion
	case strings.Contains(lower, "support") || strings.Contains(lower, "resistance"):
		return ReasonSupport
	case strings.Contains(lower, "breakout"):
		return ReasonBreakout
	case strings.Contains(lower, "balance"):
		return ReasonBalance
	case strings.Contains(lower, "grid"):
		return ReasonGrid
	default:
		return ReasonUnknown
	}
}

var allReasonTags = []ReasonTag{ReasonTrend, ReasonReversion, ReasonSupport, ReasonBreakout, ReasonBalance, ReasonGrid, ReasonUnknown}

// ReasonStats is the per-reason performance counter.
type ReasonStats struct {
	Count       int
	Successes   int
	TotalProfit float64
}

// PendingEntry is the Order Manager's local mirror of one resting order.
type PendingEntry struct {
	Ticket    int64
	Side      market.PositionSide
	Price     float64
	Volume    float64
	Reason    ReasonTag
	Timestamp time.Time
}

// Result is place_smart_order's return value.
type Result struct {
	Success       bool
	Ticket        int64
	ClientOrderID string
	ErrorKind     xerr.Kind
	Err           *xerr.Error
	ExecutedPrice float64
	Slippage      float64
}

// fail builds a Result around a freshly constructed *xerr.Error, deriving
// ErrorKind from it via xerr.KindOf so the two never drift apart.
func fail(kind xerr.Kind, format string, args ...interface{}) Result {
	e := xerr.New(kind, format, args...)
	return Result{ErrorKind: xerr.KindOf(e), Err: e}
}

// failWrapped builds a Result around an *xerr.Error that wraps an
// underlying transport-level cause (a network error returned by the
// gateway, as opposed to a broker retcode).
func failWrapped(kind xerr.Kind, cause error, format string, args ...interface{}) Result {
	e := xerr.Wrap(kind, cause, format, args...)
	return Result{ErrorKind: xerr.KindOf(e), Err: e}
}

// failRejected builds a GatewayRejected Result carrying the broker's
// opaque retcode.
func failRejected(code int, message string) Result {
	e := xerr.Rejected(code, message)
	return Result{ErrorKind: xerr.KindOf(e), Err: e}
}

// Config holds the Order Manager's fixed operating parameters.
type Config struct {
	Symbol               string
	MinLot, MaxLot       float64
	MaxDailyOrders       int
	PointValue           float64
	BaseSpacingPoints    float64
	Magic                int64
	SlippageTolerance    float64
}

// Manager converts decisions into submitted orders, enforcing the §4.3
// safety gates in order.
type Manager struct {
	cfg     Config
	gw      gateway.BrokerGateway
	spacing *spacing.Manager
	lots    *lotsize.Calculator

	mu            sync.Mutex
	pending       map[int64]PendingEntry
	reasonStats   map[ReasonTag]*ReasonStats
	dailyCount    int
	dailyReset    time.Time
}

// NewManager constructs an Order Manager wired to the given gateway,
// spacing manager, and lot calculator.
func NewManager(cfg Config, gw gateway.BrokerGateway, spacingMgr *spacing.Manager, lots *lotsize.Calculator) *Manager {
	stats := make(map[ReasonTag]*ReasonStats, len(allReasonTags))
	for _, tag := range allReasonTags {
		stats[tag] = &ReasonStats{}
	}
	return &Manager{
		cfg:         cfg,
		gw:          gw,
		spacing:     spacingMgr,
		lots:        lots,
		pending:     make(map[int64]PendingEntry),
		reasonStats: stats,
		dailyReset:  time.Now().Truncate(24 * time.Hour),
	}
}

func (m *Manager) checkDailyReset() {
	today := time.Now().Truncate(24 * time.Hour)
	if today.After(m.dailyReset) {
		m.dailyCount = 0
		m.dailyReset = today
	}
}

// refreshPending replaces the local mirror with the gateway's current
// pending-order list.
func (m *Manager) refreshPending(ctx context.Context) error {
	orders, err := m.gw.Orders(ctx, m.cfg.Symbol)
	if err != nil {
		return err
	}
	fresh := make(map[int64]PendingEntry, len(orders))
	for _, o := range orders {
		existing, had := m.pending[o.Ticket]
		entry := PendingEntry{Ticket: o.Ticket, Side: o.Side(), Price: o.Price, Volume: o.Volume}
		if had {
			entry.Reason = existing.Reason
			entry.Timestamp = existing.Timestamp
		} else {
			entry.Reason = ReasonUnknown
			entry.Timestamp = time.Now()
		}
		fresh[o.Ticket] = entry
	}
	m.pending = fresh
	return nil
}

func (m *Manager) activeOrders() []market.PendingOrder {
	out := make([]market.PendingOrder, 0, len(m.pending))
	for _, e := range m.pending {
		t := market.OrderBuyLimit
		if e.Side == market.PositionSell {
			t = market.OrderSellLimit
		}
		out = append(out, market.PendingOrder{Ticket: e.Ticket, Type: t, Price: e.Price, Volume: e.Volume})
	}
	return out
}

func (m *Manager) credit(reason ReasonTag, success bool, profit float64) {
	s := m.reasonStats[reason]
	if s == nil {
		s = &ReasonStats{}
		m.reasonStats[reason] = s
	}
	s.Count++
	if success {
		s.Successes++
		s.TotalProfit += profit
	}
}

// ReasonStats returns a snapshot copy of the per-reason counters.
func (m *Manager) ReasonStats() map[ReasonTag]ReasonStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[ReasonTag]ReasonStats, len(m.reasonStats))
	for k, v := range m.reasonStats {
		out[k] = *v
	}
	return out
}

// PlaceSmartOrder runs the full validate/gate/size/price/collision/submit
// pipeline per §4.3 and returns exactly one error kind on failure.
func (m *Manager) PlaceSmartOrder(ctx context.Context, side market.PositionSide, volume, targetPrice float64, reasoning string, reason ReasonTag, confidence float64, snap *market.Snapshot) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := logging.OrderContext(0, string(side), volume, string(reason))

	// 1. Validate inputs.
	if side != market.PositionBuy && side != market.PositionSell {
		return fail(xerr.InvalidInput, "side %q is neither Buy nor Sell", side)
	}
	if volume != 0 && (volume < m.cfg.MinLot || volume > m.cfg.MaxLot) {
		return fail(xerr.InvalidInput, "volume %.2f outside [%.2f, %.2f]", volume, m.cfg.MinLot, m.cfg.MaxLot)
	}
	if targetPrice != 0 && targetPrice < 0 {
		return fail(xerr.InvalidInput, "target price %.5f must be positive", targetPrice)
	}

	// 2. Gate.
	if !m.gw.Connected() {
		return fail(xerr.NotConnected, "gateway not connected")
	}
	m.checkDailyReset()
	if m.dailyCount >= m.cfg.MaxDailyOrders {
		return fail(xerr.DailyLimitReached, "daily order count %d reached limit %d", m.dailyCount, m.cfg.MaxDailyOrders)
	}
	if !snap.Fresh() {
		return fail(xerr.StaleData, "snapshot age %s exceeds freshness budget", snap.Age())
	}

	if err := m.refreshPending(ctx); err != nil {
		return failWrapped(xerr.GatewayRejected, err, "refreshing pending orders for %s", m.cfg.Symbol)
	}
	active := m.activeOrders()

	// 3. Determine volume.
	if volume <= 0 {
		account, err := m.gw.AccountInfo(ctx)
		if err != nil {
			return failWrapped(xerr.GatewayRejected, err, "fetching account info")
		}
		volume = m.lots.Calculate(confidence, conditionFromSnapshot(snap), snap.VolatilityFactor, string(reason), account)
	}

	// 4. Determine price.
	price := targetPrice
	if price <= 0 {
		spacingResult := m.spacing.CalculateSpacing(snap.Mid, snap, side, active)
		offset := spacingResult.SpacingPoints * m.cfg.PointValue
		if side == market.PositionBuy {
			price = snap.Mid - offset
		} else {
			price = snap.Mid + offset
		}
	}

	// 5. Collision check & repair.
	collision := m.spacing.CheckCollision(price, active, side)
	if collision.HasCollision {
		spacingResult := m.spacing.CalculateSpacing(snap.Mid, snap, side, active)
		alt, ok := m.spacing.FindAlternative(price, snap.Mid, active, spacingResult.SpacingPoints, side)
		if !ok {
			return fail(xerr.CollisionUnresolved, "no non-colliding price found near %.5f for %s orders", price, side)
		}
		price = alt
	}

	// 6. Order-type selection.
	orderType := selectOrderType(side, confidence, snap)

	// 7. Submit.
	clientOrderID := uuid.New().String()
	req := gateway.OrderRequest{
		ClientOrderID: clientOrderID,
		Type:          orderType,
		Volume:        volume,
		Price:         price,
		Slippage:      m.cfg.SlippageTolerance,
		ReasonTag:     string(reason),
		Confidence:    confidence,
		Magic:         m.cfg.Magic,
	}
	resp, err := m.gw.SendOrder(ctx, req)
	if err != nil {
		m.credit(reason, false, 0)
		result := failWrapped(xerr.GatewayRejected, err, "send_order for %s", m.cfg.Symbol)
		log.Error("order submission failed", "error", result.Err, "client_order_id", clientOrderID)
		return result
	}
	if resp.Retcode != 0 {
		m.credit(reason, false, 0)
		result := failRejected(resp.Retcode, resp.Comment)
		log.Error("order rejected", "error", result.Err, "client_order_id", clientOrderID)
		return result
	}

	m.dailyCount++
	m.credit(reason, true, 0)
	m.pending[resp.Ticket] = PendingEntry{Ticket: resp.Ticket, Side: side, Price: resp.Price, Volume: volume, Reason: reason, Timestamp: time.Now()}

	log.Info("order submitted", "ticket", resp.Ticket, "price", resp.Price, "client_order_id", clientOrderID)
	return Result{Success: true, Ticket: resp.Ticket, ExecutedPrice: resp.Price, ClientOrderID: clientOrderID}
}

func conditionFromSnapshot(snap *market.Snapshot) lotsize.MarketCondition {
	switch {
	case snap.VolatilityFactor > 1.5:
		return lotsize.ConditionHighVolatility
	case snap.VolatilityFactor < 0.7:
		return lotsize.ConditionLowVolatility
	case snap.TrendDirection != market.TrendSideways && snap.TrendStrength > 0.5:
		return lotsize.ConditionTrending
	default:
		return lotsize.ConditionRanging
	}
}

// selectOrderType implements the §4.3 step-6 matrix: high-confidence +
// low-volatility or high-volatility favor a limit order; a breakout
// aligned with trend favors a stop order; everything else is a limit.
func selectOrderType(side market.PositionSide, confidence float64, snap *market.Snapshot) market.PendingOrderType {
	breakoutAlignedWithTrend := snap.TrendDirection != market.TrendSideways &&
		snap.VolatilityFactor > 1.5 && snap.TrendStrength > 0.6

	if breakoutAlignedWithTrend {
		if side == market.PositionBuy {
			return market.OrderBuyStop
		}
		return market.OrderSellStop
	}
	if side == market.PositionBuy {
		return market.OrderBuyLimit
	}
	return market.OrderSellLimit
}
