package detect

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/odds"
)

// ReverseLine fires when the retail consensus moves one way while the
// sharp book moves the other. The play follows the sharp book.
type ReverseLine struct {
	cfg   *config.Config
	store SnapshotReader
}

func NewReverseLine(cfg *config.Config, store SnapshotReader) *ReverseLine {
	return &ReverseLine{cfg: cfg, store: store}
}

func (d *ReverseLine) Name() string { return "reverse_line" }

func (d *ReverseLine) Detect(ctx context.Context, eventID, fetchedAt string) ([]models.Signal, error) {
	at, err := models.ParseTime(fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("reverse: bad fetched_at %q: %w", fetchedAt, err)
	}
	windowStart := models.FormatTime(at.Add(-time.Duration(d.cfg.SteamWindowMinutes) * time.Minute))

	history, err := d.store.SnapshotsSince(ctx, eventID, windowStart)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, nil
	}
	meta := metaFrom(history)

	latest, err := d.store.LatestSnapshots(ctx, eventID)
	if err != nil {
		return nil, err
	}
	current := indexBySide(latest)

	var signals []models.Signal
	for side, books := range groupHistory(history) {
		pinRows := books[models.BookPinnacle]
		if len(pinRows) < 2 {
			continue
		}
		pinDelta := odds.LineDelta(side.Market, pinRows[0], pinRows[len(pinRows)-1])
		if pinDelta == 0 {
			continue
		}

		var usDeltas []float64
		var movers []string
		for book, rows := range books {
			if !models.USBooks[book] || len(rows) < 2 {
				continue
			}
			delta := odds.LineDelta(side.Market, rows[0], rows[len(rows)-1])
			if delta != 0 {
				usDeltas = append(usDeltas, delta)
				movers = append(movers, book)
			}
		}
		if len(usDeltas) < 2 {
			continue
		}
		usAvg := 0.0
		for _, v := range usDeltas {
			usAvg += v
		}
		usAvg /= float64(len(usDeltas))
		if usAvg == 0 || (usAvg > 0) == (pinDelta > 0) {
			continue
		}

		usDir, betDir := "down", "up"
		if usAvg > 0 {
			usDir, betDir = "up", "down"
		}
		pinDir := "up"
		if pinDelta < 0 {
			pinDir = "down"
		}
		sort.Strings(movers)

		// Books that trailed the sharp move still carry a pre-move number.
		var valueBooks []models.ValueBook
		for book := range books {
			if !models.USBooks[book] {
				continue
			}
			if row, ok := current[side][book]; ok {
				valueBooks = append(valueBooks, models.ValueBook{
					Bookmaker: book,
					Price:     row.Price,
					Point:     row.Point,
				})
			}
		}
		sort.Slice(valueBooks, func(i, j int) bool { return valueBooks[i].Bookmaker < valueBooks[j].Bookmaker })

		signals = append(signals, models.Signal{
			Type:        models.SignalReverseLine,
			EventID:     eventID,
			SportKey:    meta.SportKey,
			HomeTeam:    meta.HomeTeam,
			AwayTeam:    meta.AwayTeam,
			MarketKey:   side.Market,
			OutcomeName: side.Outcome,
			Strength:    odds.Clamp01((math.Abs(usAvg) + math.Abs(pinDelta)) / 4),
			Description: fmt.Sprintf("Reverse line on %s (%s): %d US books %s, Pinnacle %s",
				side.Outcome, side.Market, len(movers), usDir, pinDir),
			Details: &models.ReverseDetails{
				USDirection:       usDir,
				USAvgDelta:        round2(usAvg),
				USMovers:          movers,
				PinnacleDirection: pinDir,
				PinnacleDelta:     round2(pinDelta),
				BetDirection:      betDir,
				ValueBooks:        valueBooks,
			},
		})
	}
	return signals, nil
}
