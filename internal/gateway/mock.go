package gateway

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"xauengine/internal/market"
)

// Mock is a deterministic-enough in-memory BrokerGateway for development
// and tests: it walks a base price with small random steps and lets tests
// seed positions and pending orders directly.
type Mock struct {
	mu sync.Mutex

	connected bool
	basePrice float64
	spread    float64
	lastMove  time.Time
	rng       *rand.Rand

	positions     map[int64]market.Position
	pendingOrders map[int64]market.PendingOrder
	account       market.AccountInfo

	nextTicket int64
}

// NewMock creates a Mock seeded at basePrice with the given account figures.
func NewMock(basePrice float64, account market.AccountInfo, seed int64) *Mock {
	return &Mock{
		connected:     true,
		basePrice:     basePrice,
		spread:        basePrice * 0.0002,
		lastMove:      time.Now(),
		rng:           rand.New(rand.NewSource(seed)),
		positions:     make(map[int64]market.Position),
		pendingOrders: make(map[int64]market.PendingOrder),
		account:       account,
		nextTicket:    1000,
	}
}

// SetConnected flips the simulated connection state, for exercising
// NotConnected gates and reconnection behaviour in tests.
func (m *Mock) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
}

func (m *Mock) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *Mock) walk() {
	if time.Since(m.lastMove) < time.Second {
		return
	}
	change := (m.rng.Float64() - 0.5) * 0.002
	m.basePrice *= 1 + change
	m.lastMove = time.Now()
}

func (m *Mock) Tick(ctx context.Context, symbol string) (Tick, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return Tick{}, false, nil
	}
	m.walk()
	half := m.spread / 2
	return Tick{Bid: m.basePrice - half, Ask: m.basePrice + half, Time: time.Now()}, true, nil
}

func (m *Mock) Positions(ctx context.Context, symbol string) ([]market.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]market.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out, nil
}

func (m *Mock) Orders(ctx context.Context, symbol string) ([]market.PendingOrder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]market.PendingOrder, 0, len(m.pendingOrders))
	for _, o := range m.pendingOrders {
		out = append(out, o)
	}
	return out, nil
}

func (m *Mock) AccountInfo(ctx context.Context) (market.AccountInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.account, nil
}

func (m *Mock) SendOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return OrderResponse{Retcode: 1}, nil
	}
	ticket := m.nextTicket
	m.nextTicket++
	m.pendingOrders[ticket] = market.PendingOrder{
		Ticket: ticket,
		Type:   req.Type,
		Price:  req.Price,
		Volume: req.Volume,
	}
	return OrderResponse{Retcode: 0, Ticket: ticket, Price: req.Price}, nil
}

func (m *Mock) ClosePosition(ctx context.Context, ticket int64, volume float64, magic int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return 1, nil
	}
	if _, ok := m.positions[ticket]; !ok {
		return 1, nil
	}
	delete(m.positions, ticket)
	return 0, nil
}

// SeedPosition inserts a position directly, for test setup.
func (m *Mock) SeedPosition(p market.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[p.Ticket] = p
}

// SeedPendingOrder inserts a pending order directly, for test setup.
func (m *Mock) SeedPendingOrder(o market.PendingOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingOrders[o.Ticket] = o
}

var _ BrokerGateway = (*Mock)(nil)
