// Package odds holds American-odds arithmetic shared by the detectors
// and the grader.
package odds

import "github.com/sharpscan/sharpscan/internal/models"

// ImpliedProb converts an American price to its implied probability in (0, 1).
func ImpliedProb(price float64) float64 {
	if price > 0 {
		return 100.0 / (price + 100.0)
	}
	if price < 0 {
		return -price / (-price + 100.0)
	}
	return 0.5
}

// Better reports whether line value a is better for the bettor than b on
// the given market side.
//
//	h2h           higher price pays more
//	spreads       higher point is a softer handicap
//	totals Over   lower point clears sooner
//	totals Under  higher point clears sooner
func Better(marketKey, outcomeName string, a, b float64) bool {
	if marketKey == models.MarketTotals && outcomeName != models.OutcomeUnder {
		return a < b
	}
	return a > b
}

// LineDelta computes last-first on the detection field for a market: the
// price for h2h, the point for spreads/totals, falling back to the price
// when either point is missing.
func LineDelta(marketKey string, first, last *models.Snapshot) float64 {
	if marketKey != models.MarketH2H && first.Point != nil && last.Point != nil {
		return *last.Point - *first.Point
	}
	return last.Price - first.Price
}

// LineValue returns the detection field of a snapshot: price for h2h,
// point otherwise. ok is false for a spreads/totals row with no point.
func LineValue(s *models.Snapshot) (v float64, ok bool) {
	if s.MarketKey == models.MarketH2H {
		return s.Price, true
	}
	if s.Point == nil {
		return 0, false
	}
	return *s.Point, true
}

// Clamp01 clamps a signal strength into [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
