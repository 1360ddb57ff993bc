package analyzer

import (
	"time"

	"xauengine/internal/market"
)

// sessionFor buckets a UTC timestamp into the trading session active at
// that hour. Boundaries approximate the major FX/metals centres.
func sessionFor(t time.Time) market.Session {
	h := t.UTC().Hour()
	switch {
	case h >= 0 && h < 7:
		return market.SessionAsian
	case h >= 7 && h < 12:
		return market.SessionLondon
	case h >= 12 && h < 16:
		return market.SessionOverlap
	case h >= 16 && h < 21:
		return market.SessionNewYork
	default:
		return market.SessionQuiet
	}
}

func sessionFactorFor(s market.Session) float64 {
	switch s {
	case market.SessionOverlap:
		return 1.5
	case market.SessionLondon, market.SessionNewYork:
		return 1.2
	case market.SessionAsian:
		return 0.9
	default:
		return 0.5
	}
}

func liquidityLevelFor(spread, pointValue float64) float64 {
	if pointValue <= 0 {
		return 0.5
	}
	points := spread / pointValue
	switch {
	case points <= 20:
		return 1.0
	case points <= 50:
		return 0.7
	case points <= 100:
		return 0.4
	default:
		return 0.2
	}
}
