package detect

import (
	"context"
	"fmt"
	"math"

	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/odds"
)

// PinnacleDivergence fires when a retail book strays from the sharp
// reference line on the side that favors the bettor.
type PinnacleDivergence struct {
	cfg   *config.Config
	store SnapshotReader
}

func NewPinnacleDivergence(cfg *config.Config, store SnapshotReader) *PinnacleDivergence {
	return &PinnacleDivergence{cfg: cfg, store: store}
}

func (d *PinnacleDivergence) Name() string { return "pinnacle_divergence" }

func (d *PinnacleDivergence) Detect(ctx context.Context, eventID, fetchedAt string) ([]models.Signal, error) {
	latest, err := d.store.LatestSnapshots(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, nil
	}
	meta := metaFrom(latest)

	var signals []models.Signal
	for side, books := range indexBySide(latest) {
		pin := books[models.BookPinnacle]
		if pin == nil {
			continue
		}
		for book, row := range books {
			if !models.USBooks[book] {
				continue
			}

			var delta, threshold float64
			details := &models.PinnacleDetails{USBook: book}
			if side.Market == models.MarketH2H {
				usProb := odds.ImpliedProb(row.Price)
				pinProb := odds.ImpliedProb(pin.Price)
				delta = math.Abs(usProb - pinProb)
				threshold = d.cfg.PinnacleMLProbThreshold
				// Value only when the retail price pays more.
				if !odds.Better(side.Market, side.Outcome, row.Price, pin.Price) {
					continue
				}
				details.USValue = row.Price
				details.PinnacleValue = pin.Price
				details.USProb = round4(usProb)
				details.PinnacleProb = round4(pinProb)
			} else {
				if row.Point == nil || pin.Point == nil {
					continue
				}
				delta = math.Abs(*row.Point - *pin.Point)
				threshold = d.cfg.PinnacleSpreadThreshold
				if !odds.Better(side.Market, side.Outcome, *row.Point, *pin.Point) {
					continue
				}
				details.USValue = *row.Point
				details.PinnacleValue = *pin.Point
			}
			if delta < threshold {
				continue
			}
			details.Delta = round4(delta)

			signals = append(signals, models.Signal{
				Type:        models.SignalPinnacleDivergence,
				EventID:     eventID,
				SportKey:    meta.SportKey,
				HomeTeam:    meta.HomeTeam,
				AwayTeam:    meta.AwayTeam,
				MarketKey:   side.Market,
				OutcomeName: side.Outcome,
				Strength:    odds.Clamp01(delta / (threshold * 3)),
				Description: fmt.Sprintf("%s diverges from Pinnacle on %s (%s): %.4g vs %.4g",
					book, side.Outcome, side.Market, details.USValue, details.PinnacleValue),
				Details: details,
			})
		}
	}
	return signals, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
