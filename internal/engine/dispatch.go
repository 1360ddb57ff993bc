package engine

import (
	"context"

	"xauengine/internal/market"
	"xauengine/internal/order"
	"xauengine/internal/rules"
)

// reasonTagFor maps a fused decision's contributing rules to an order
// ReasonTag, preferring the first rule name that matches a known tag and
// falling back to a keyword scan of the reasoning text.
func reasonTagFor(decision rules.FusedDecision) order.ReasonTag {
	for _, name := range decision.ContributingRules {
		switch name {
		case "trend_following":
			return order.ReasonTrend
		case "mean_reversion":
			return order.ReasonReversion
		case "support_resistance":
			return order.ReasonSupport
		case "volatility_breakout":
			return order.ReasonBreakout
		case "portfolio_balance":
			return order.ReasonBalance
		}
	}
	return order.ReasonFromText(decision.Reasoning)
}

// dispatch routes a fused decision to the component that executes it.
// Wait is a no-op; every other kind is handled by exactly one of the
// order or position managers.
func (e *Engine) dispatch(ctx context.Context, decision rules.FusedDecision, snap *market.Snapshot, portfolio *market.PortfolioSnapshot) {
	switch decision.Kind {
	case rules.Buy:
		e.dispatchOrder(ctx, market.PositionBuy, decision, snap)
	case rules.Sell:
		e.dispatchOrder(ctx, market.PositionSell, decision, snap)
	case rules.CloseProfitable:
		before := len(e.deps.Positions.CloseLog())
		closed := e.deps.Positions.CloseProfitable(ctx, portfolio, decision.Confidence, decision.Reasoning)
		e.publishCloseResult("CloseProfitable", closed, before)
	case rules.CloseLosing:
		before := len(e.deps.Positions.CloseLog())
		closed := e.deps.Positions.CloseLosing(ctx, portfolio, decision.Confidence, decision.Reasoning)
		e.publishCloseResult("CloseLosing", closed, before)
	case rules.EmergencyStop:
		e.deps.Positions.EmergencyCloseAll(ctx, portfolio)
		e.deps.Breaker.TripEmergencyStop()
	case rules.Wait:
		// no-op
	}
}

func (e *Engine) dispatchOrder(ctx context.Context, side market.PositionSide, decision rules.FusedDecision, snap *market.Snapshot) {
	reason := reasonTagFor(decision)
	result := e.deps.Orders.PlaceSmartOrder(ctx, side, decision.ProposedVolume, decision.TargetPrice, decision.Reasoning, reason, decision.Confidence, snap)
	if result.Success {
		e.deps.Bus.PublishOrderSubmitted(decision.ID, result.Ticket, result.ClientOrderID, string(side), decision.ProposedVolume, result.ExecutedPrice, string(reason))
		return
	}
	e.deps.Bus.PublishOrderRejected(decision.ID, string(side), decision.ProposedVolume, decision.TargetPrice, string(reason), string(result.ErrorKind))
}

// publishCloseResult reports the closes this dispatch added to the close
// log, i.e. everything past the length observed right before the call.
func (e *Engine) publishCloseResult(strategy string, success bool, logLenBefore int) {
	if !success {
		return
	}
	log := e.deps.Positions.CloseLog()
	ticketsClosed := 0
	for _, ev := range log[logLenBefore:] {
		if ev.Success {
			ticketsClosed++
		}
	}
	e.deps.Bus.PublishRecoveryExecuted(strategy, ticketsClosed, 0)
}
