package detect

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/odds"
)

// RapidChange fires when a single book jumps a line past the per-market
// threshold between consecutive polls. Books still quoting a number closer
// to the pre-move line are flagged as value.
type RapidChange struct {
	cfg   *config.Config
	store SnapshotReader
}

func NewRapidChange(cfg *config.Config, store SnapshotReader) *RapidChange {
	return &RapidChange{cfg: cfg, store: store}
}

func (d *RapidChange) Name() string { return "rapid_change" }

func (d *RapidChange) Detect(ctx context.Context, eventID, fetchedAt string) ([]models.Signal, error) {
	latest, err := d.store.LatestSnapshots(ctx, eventID)
	if err != nil {
		return nil, err
	}
	previous, err := d.store.PreviousSnapshots(ctx, eventID, fetchedAt)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 || len(previous) == 0 {
		return nil, nil
	}
	meta := metaFrom(latest)

	prevIdx := indexBySide(previous)
	curIdx := indexBySide(latest)

	var signals []models.Signal
	for i := range latest {
		row := &latest[i]
		side := marketSide{row.MarketKey, row.OutcomeName}
		prev := prevIdx[side][row.BookmakerKey]
		if prev == nil {
			continue
		}

		var delta, threshold, oldVal, newVal float64
		if row.MarketKey == models.MarketH2H {
			delta = row.Price - prev.Price
			threshold = d.cfg.RapidMLThreshold
			oldVal, newVal = prev.Price, row.Price
		} else {
			if row.Point == nil || prev.Point == nil {
				continue
			}
			delta = *row.Point - *prev.Point
			threshold = d.cfg.RapidSpreadThreshold
			oldVal, newVal = *prev.Point, *row.Point
		}
		if math.Abs(delta) < threshold {
			continue
		}

		strength := odds.Clamp01(math.Abs(delta) / (threshold * 3))

		// Every US book (and the mover) whose current number sits closer
		// to the old line than the new one; most bettor-favorable first.
		var valueBooks []models.ValueBook
		for book, other := range curIdx[side] {
			val, ok := odds.LineValue(other)
			if !ok {
				continue
			}
			if book == row.BookmakerKey {
				valueBooks = append(valueBooks, models.ValueBook{Bookmaker: book, Line: ptr(val)})
				continue
			}
			if !models.USBooks[book] {
				continue
			}
			if math.Abs(val-oldVal) < math.Abs(val-newVal) {
				valueBooks = append(valueBooks, models.ValueBook{Bookmaker: book, Line: ptr(val)})
			}
		}
		sort.Slice(valueBooks, func(i, j int) bool {
			a, b := *valueBooks[i].Line, *valueBooks[j].Line
			if a == b {
				return valueBooks[i].Bookmaker < valueBooks[j].Bookmaker
			}
			return odds.Better(side.Market, side.Outcome, a, b)
		})

		signals = append(signals, models.Signal{
			Type:        models.SignalRapidChange,
			EventID:     eventID,
			SportKey:    meta.SportKey,
			HomeTeam:    meta.HomeTeam,
			AwayTeam:    meta.AwayTeam,
			MarketKey:   row.MarketKey,
			OutcomeName: row.OutcomeName,
			Strength:    strength,
			Description: fmt.Sprintf("Rapid change at %s: %s (%s) delta %.1f",
				row.BookmakerKey, row.OutcomeName, row.MarketKey, math.Abs(delta)),
			Details: &models.RapidDetails{
				Bookmaker:  row.BookmakerKey,
				OldPrice:   prev.Price,
				NewPrice:   row.Price,
				OldPoint:   prev.Point,
				NewPoint:   row.Point,
				Delta:      round2(delta),
				ValueBooks: valueBooks,
			},
		})
	}
	return signals, nil
}

func ptr(v float64) *float64 { return &v }
