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

// exchangeStrengthScale saturates strength at a 15-point probability swing.
const exchangeStrengthScale = 0.15

// ExchangeShift fires when the exchange's implied h2h probability jumps
// between consecutive polls, ahead of the retail books.
type ExchangeShift struct {
	cfg   *config.Config
	store SnapshotReader
}

func NewExchangeShift(cfg *config.Config, store SnapshotReader) *ExchangeShift {
	return &ExchangeShift{cfg: cfg, store: store}
}

func (d *ExchangeShift) Name() string { return "exchange_shift" }

func (d *ExchangeShift) Detect(ctx context.Context, eventID, fetchedAt string) ([]models.Signal, error) {
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
	for side, books := range curIdx {
		if side.Market != models.MarketH2H {
			continue
		}
		cur := books[models.BookBetfair]
		prev := prevIdx[side][models.BookBetfair]
		if cur == nil || prev == nil {
			continue
		}

		oldProb := odds.ImpliedProb(prev.Price)
		newProb := odds.ImpliedProb(cur.Price)
		shift := math.Abs(newProb - oldProb)
		if shift < d.cfg.ExchangeShiftThreshold {
			continue
		}

		direction := "drifted"
		if newProb > oldProb {
			direction = "shortened"
		}

		// US books whose implied probability has not caught up to the
		// exchange are still quoting the stale side of the move.
		var valueBooks []models.ValueBook
		for book, row := range books {
			if !models.USBooks[book] {
				continue
			}
			prob := odds.ImpliedProb(row.Price)
			stale := (direction == "shortened" && prob < newProb) ||
				(direction == "drifted" && prob > newProb)
			if stale {
				valueBooks = append(valueBooks, models.ValueBook{
					Bookmaker:   book,
					Price:       row.Price,
					ImpliedProb: round4(prob),
				})
			}
		}
		sort.Slice(valueBooks, func(i, j int) bool { return valueBooks[i].Bookmaker < valueBooks[j].Bookmaker })

		signals = append(signals, models.Signal{
			Type:        models.SignalExchangeShift,
			EventID:     eventID,
			SportKey:    meta.SportKey,
			HomeTeam:    meta.HomeTeam,
			AwayTeam:    meta.AwayTeam,
			MarketKey:   side.Market,
			OutcomeName: side.Outcome,
			Strength:    odds.Clamp01(shift / exchangeStrengthScale),
			Description: fmt.Sprintf("Exchange %s on %s: implied %.1f%% -> %.1f%%",
				direction, side.Outcome, oldProb*100, newProb*100),
			Details: &models.ExchangeDetails{
				OldPrice:   prev.Price,
				NewPrice:   cur.Price,
				OldProb:    round4(oldProb),
				NewProb:    round4(newProb),
				Shift:      round4(shift),
				Direction:  direction,
				ValueBooks: valueBooks,
			},
		})
	}
	return signals, nil
}
