// Package gateway defines the broker-terminal capability surface the core
// consumes and a deterministic in-memory implementation for development and
// tests. The real terminal connector is out of scope; this package only
// specifies the shape the core depends on.
package gateway

import (
	"context"
	"time"

	"xauengine/internal/market"
)

// Tick is a single bid/ask read from the broker.
type Tick struct {
	Bid, Ask float64
	Time     time.Time
}

// OrderRequest is what the Order Manager submits to the gateway.
// ClientOrderID is a client-generated correlation ID (a uuid, opaque to the
// broker) the Order Manager assigns before the broker hands back its own
// ticket, so a submission can be traced through logs even if SendOrder never
// returns (network failure, timeout).
type OrderRequest struct {
	ClientOrderID string
	Type          market.PendingOrderType
	Volume        float64
	Price         float64
	Slippage      float64
	ReasonTag     string
	Confidence    float64
	Magic         int64
}

// OrderResponse is the gateway's answer to a send_order call. Retcode 0
// (Ok) is the only success value; any other retcode maps to
// xerr.GatewayRejected(code) by the caller.
type OrderResponse struct {
	Retcode int
	Ticket  int64
	Price   float64
	Comment string
}

// BrokerGateway is the capability surface the core depends on. The engine,
// analyzer, Order Manager, Position Manager and HTTP API all call it; each
// serialises only its own calls.
type BrokerGateway interface {
	// Connected reports whether the gateway currently has a live session.
	Connected() bool

	// Tick returns the latest bid/ask for symbol, or ok=false when
	// disconnected.
	Tick(ctx context.Context, symbol string) (Tick, bool, error)

	// Positions returns the open positions for symbol.
	Positions(ctx context.Context, symbol string) ([]market.Position, error)

	// Orders returns the resting pending orders for symbol.
	Orders(ctx context.Context, symbol string) ([]market.PendingOrder, error)

	// AccountInfo returns the account-level figures.
	AccountInfo(ctx context.Context) (market.AccountInfo, error)

	// SendOrder submits a new order.
	SendOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)

	// ClosePosition requests a close of volume lots of ticket.
	ClosePosition(ctx context.Context, ticket int64, volume float64, magic int64) (retcode int, err error)
}
