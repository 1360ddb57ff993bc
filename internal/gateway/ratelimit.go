package gateway

import (
	"context"

	"golang.org/x/time/rate"

	"xauengine/internal/market"
)

// RateLimited wraps a BrokerGateway and throttles every call through a
// token-bucket limiter, standing in for "the broker gateway... serialises
// calls" without hand-rolling a semaphore. Grounded on the direct
// rate.NewLimiter/rate.Limiter/rate.Every usage in the pack's bbgo xmaker
// strategy, the one example repo that reaches for golang.org/x/time/rate
// for this purpose.
type RateLimited struct {
	gw      BrokerGateway
	limiter *rate.Limiter
}

// NewRateLimited builds a RateLimited gateway allowing requestsPerSecond
// sustained calls with a burst of burst. A non-positive requestsPerSecond
// disables throttling (rate.Inf).
func NewRateLimited(gw BrokerGateway, requestsPerSecond float64, burst int) *RateLimited {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimited{gw: gw, limiter: rate.NewLimiter(limit, burst)}
}

func (r *RateLimited) Connected() bool {
	return r.gw.Connected()
}

func (r *RateLimited) Tick(ctx context.Context, symbol string) (Tick, bool, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return Tick{}, false, err
	}
	return r.gw.Tick(ctx, symbol)
}

func (r *RateLimited) Positions(ctx context.Context, symbol string) ([]market.Position, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.gw.Positions(ctx, symbol)
}

func (r *RateLimited) Orders(ctx context.Context, symbol string) ([]market.PendingOrder, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.gw.Orders(ctx, symbol)
}

func (r *RateLimited) AccountInfo(ctx context.Context) (market.AccountInfo, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return market.AccountInfo{}, err
	}
	return r.gw.AccountInfo(ctx)
}

func (r *RateLimited) SendOrder(ctx context.Context, req OrderRequest) (OrderResponse, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return OrderResponse{}, err
	}
	return r.gw.SendOrder(ctx, req)
}

func (r *RateLimited) ClosePosition(ctx context.Context, ticket int64, volume float64, magic int64) (int, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	return r.gw.ClosePosition(ctx, ticket, volume, magic)
}

var _ BrokerGateway = (*RateLimited)(nil)
