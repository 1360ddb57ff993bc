// Package position selects existing positions to close under a requested
// policy and executes the closes. It never opens positions — no
// stop-loss logic lives here, only hedge-based recovery. The mutex-guarded
// map-plus-history bookkeeping follows the teacher's hedging manager
// shape, retargeted from opening offsetting futures hedges to closing
// combinations of existing spot positions.
package position

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"xauengine/internal/gateway"
	"xauengine/internal/logging"
	"xauengine/internal/market"
)

// State is a position's lifecycle state. No transition from Closing back
// to Open is permitted.
type State string

const (
	Open    State = "Open"
	Closing State = "Closing"
	Closed  State = "Closed"
)

// Strategy names the close strategy close_profitable selected.
type Strategy string

const (
	HedgeRecovery   Strategy = "HedgeRecovery"
	SelectiveProfit Strategy = "SelectiveProfit"
	StandardProfit  Strategy = "StandardProfit"
)

// RecoveryOpportunity is one entry from recovery_opportunities.
type RecoveryOpportunity struct {
	Kind      string // "NetPositive" or "PartialRecovery"
	Positions []market.Position
	Sum       float64
}

// CloseEvent is emitted whenever a close is attempted; Success distinguishes
// a completed close from a CloseFailed gateway rejection.
type CloseEvent struct {
	Ticket    int64
	Side      market.PositionSide
	Volume    float64
	Success   bool
	Timestamp time.Time
}

// Manager selects and executes position closes.
type Manager struct {
	cfg Config
	gw  gateway.BrokerGateway

	mu        sync.Mutex
	states    map[int64]State
	closeLog  []CloseEvent
}

// Config holds the Position Manager's fixed operating parameters.
type Config struct {
	Symbol                  string
	Magic                   int64
	PartialRecoveryThreshold float64
}

// NewManager constructs a Position Manager wired to the given gateway.
func NewManager(cfg Config, gw gateway.BrokerGateway) *Manager {
	return &Manager{
		cfg:    cfg,
		gw:     gw,
		states: make(map[int64]State),
	}
}

// CloseLog returns a copy of the close-attempt history.
func (m *Manager) CloseLog() []CloseEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CloseEvent, len(m.closeLog))
	copy(out, m.closeLog)
	return out
}

func (m *Manager) stateOf(ticket int64) State {
	if s, ok := m.states[ticket]; ok {
		return s
	}
	return Open
}

// closeOne requests a single close. On gateway rejection the position
// stays Open and a CloseFailed event is recorded; on success it
// transitions Open -> Closing -> Closed.
func (m *Manager) closeOne(ctx context.Context, p market.Position) bool {
	if m.stateOf(p.Ticket) == Closing || m.stateOf(p.Ticket) == Closed {
		return true
	}
	m.states[p.Ticket] = Closing

	retcode, err := m.gw.ClosePosition(ctx, p.Ticket, p.Volume, m.cfg.Magic)
	success := err == nil && retcode == 0

	if success {
		m.states[p.Ticket] = Closed
	} else {
		m.states[p.Ticket] = Open
		logging.PositionContext(p.Ticket, string(p.Side), p.OpenPrice, p.Volume).Warn("close failed", "retcode", retcode)
	}

	m.closeLog = append(m.closeLog, CloseEvent{
		Ticket: p.Ticket, Side: p.Side, Volume: p.Volume, Success: success, Timestamp: time.Now(),
	})
	return success
}

// closeAll requests closes for every position in the set, returning
// true iff every close succeeded.
func (m *Manager) closeAll(ctx context.Context, positions []market.Position) bool {
	allOK := true
	for _, p := range positions {
		if !m.closeOne(ctx, p) {
			allOK = false
		}
	}
	return allOK
}

// CloseProfitable implements close_profitable: it filters profitable
// positions, picks a strategy by scanning reasoning keywords, and executes
// it.
func (m *Manager) CloseProfitable(ctx context.Context, portfolio *market.PortfolioSnapshot, confidence float64, reasoning string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	lower := strings.ToLower(reasoning)
	switch {
	case strings.Contains(lower, "hedge") || strings.Contains(lower, "offset"):
		return m.hedgeRecovery(ctx, portfolio)
	case strings.Contains(lower, "selective") || strings.Contains(lower, "partial"):
		return m.selectiveProfit(ctx, portfolio, confidence)
	default:
		return m.standardProfit(ctx, portfolio)
	}
}

func (m *Manager) standardProfit(ctx context.Context, portfolio *market.PortfolioSnapshot) bool {
	profitable := portfolio.Profitable()
	if len(profitable) == 0 {
		return true
	}
	return m.closeAll(ctx, profitable)
}

func (m *Manager) selectiveProfit(ctx context.Context, portfolio *market.PortfolioSnapshot, confidence float64) bool {
	profitable := portfolio.Profitable()
	if len(profitable) == 0 {
		return true
	}
	sort.Slice(profitable, func(i, j int) bool {
		return profitable[i].UnrealizedPnL() > profitable[j].UnrealizedPnL()
	})
	n := ceilInt(confidence * float64(len(profitable)))
	if n > len(profitable) {
		n = len(profitable)
	}
	return m.closeAll(ctx, profitable[:n])
}

// hedgeRecovery implements the HedgeRecovery strategy: if the sum of
// profitable + losing positions is non-negative, close both sets
// entirely; otherwise pair profitable descending with losing ascending
// and close any pair whose combined PnL is positive.
func (m *Manager) hedgeRecovery(ctx context.Context, portfolio *market.PortfolioSnapshot) bool {
	profitable := portfolio.Profitable()
	losing := portfolio.Losing()

	total := 0.0
	for _, p := range append(append([]market.Position{}, profitable...), losing...) {
		total += p.UnrealizedPnL()
	}
	if total >= 0 {
		all := append(append([]market.Position{}, profitable...), losing...)
		return m.closeAll(ctx, all)
	}

	sort.Slice(profitable, func(i, j int) bool { return profitable[i].UnrealizedPnL() > profitable[j].UnrealizedPnL() })
	sort.Slice(losing, func(i, j int) bool { return losing[i].UnrealizedPnL() < losing[j].UnrealizedPnL() })

	toClose := make([]market.Position, 0, len(profitable)+len(losing))
	for i := 0; i < len(profitable) && i < len(losing); i++ {
		pair := profitable[i].UnrealizedPnL() + losing[i].UnrealizedPnL()
		if pair > 0 {
			toClose = append(toClose, profitable[i], losing[i])
		}
	}
	if len(toClose) == 0 {
		return true
	}
	return m.closeAll(ctx, toClose)
}

// CloseLosing mirrors CloseProfitable with the sign flipped, per the
// reimplementer guidance on the rule engine's CloseLosing decision: the
// same three strategies, applied to the losing side of the book instead
// of the profitable side. HedgeRecovery is identical to CloseProfitable's
// (it already nets both sets together).
func (m *Manager) CloseLosing(ctx context.Context, portfolio *market.PortfolioSnapshot, confidence float64, reasoning string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	lower := strings.ToLower(reasoning)
	switch {
	case strings.Contains(lower, "hedge") || strings.Contains(lower, "offset"):
		return m.hedgeRecovery(ctx, portfolio)
	case strings.Contains(lower, "selective") || strings.Contains(lower, "partial"):
		return m.selectiveLosing(ctx, portfolio, confidence)
	default:
		return m.standardLosing(ctx, portfolio)
	}
}

func (m *Manager) standardLosing(ctx context.Context, portfolio *market.PortfolioSnapshot) bool {
	losing := portfolio.Losing()
	if len(losing) == 0 {
		return true
	}
	return m.closeAll(ctx, losing)
}

func (m *Manager) selectiveLosing(ctx context.Context, portfolio *market.PortfolioSnapshot, confidence float64) bool {
	losing := portfolio.Losing()
	if len(losing) == 0 {
		return true
	}
	sort.Slice(losing, func(i, j int) bool {
		return losing[i].UnrealizedPnL() < losing[j].UnrealizedPnL()
	})
	n := ceilInt(confidence * float64(len(losing)))
	if n > len(losing) {
		n = len(losing)
	}
	return m.closeAll(ctx, losing[:n])
}

// EmergencyCloseAll closes every open position sequentially; success is
// reported iff every close returned success.
func (m *Manager) EmergencyCloseAll(ctx context.Context, portfolio *market.PortfolioSnapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeAll(ctx, portfolio.Positions)
}

// RecoveryOpportunities enumerates NetPositive (close everything if the
// signed sum is positive) and PartialRecovery (the largest prefix of
// paired-off positions whose cumulative sum exceeds the configured
// threshold) opportunities, without executing any close.
func (m *Manager) RecoveryOpportunities(portfolio *market.PortfolioSnapshot) []RecoveryOpportunity {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []RecoveryOpportunity

	total := 0.0
	for _, p := range portfolio.Positions {
		total += p.UnrealizedPnL()
	}
	if total > 0 && len(portfolio.Positions) > 0 {
		out = append(out, RecoveryOpportunity{Kind: "NetPositive", Positions: portfolio.Positions, Sum: total})
	}

	profitable := portfolio.Profitable()
	losing := portfolio.Losing()
	sort.Slice(profitable, func(i, j int) bool { return profitable[i].UnrealizedPnL() > profitable[j].UnrealizedPnL() })
	sort.Slice(losing, func(i, j int) bool { return losing[i].UnrealizedPnL() < losing[j].UnrealizedPnL() })

	var prefix []market.Position
	cumulative := 0.0
	bestSum := 0.0
	var bestPrefix []market.Position
	for i := 0; i < len(profitable) && i < len(losing); i++ {
		prefix = append(prefix, profitable[i], losing[i])
		cumulative += profitable[i].UnrealizedPnL() + losing[i].UnrealizedPnL()
		if cumulative > m.cfg.PartialRecoveryThreshold {
			bestSum = cumulative
			bestPrefix = append([]market.Position{}, prefix...)
		}
	}
	if len(bestPrefix) > 0 {
		out = append(out, RecoveryOpportunity{Kind: "PartialRecovery", Positions: bestPrefix, Sum: bestSum})
	}

	return out
}

func ceilInt(v float64) int {
	i := int(v)
	if float64(i) < v {
		i++
	}
	return i
}
