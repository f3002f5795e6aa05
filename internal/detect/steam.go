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

// SteamMove fires when several books move the same line in the same
// direction within the steam window. Books left on the stale line are the
// value opportunity.
type SteamMove struct {
	cfg   *config.Config
	store SnapshotReader
}

func NewSteamMove(cfg *config.Config, store SnapshotReader) *SteamMove {
	return &SteamMove{cfg: cfg, store: store}
}

func (d *SteamMove) Name() string { return "steam_move" }

func (d *SteamMove) Detect(ctx context.Context, eventID, fetchedAt string) ([]models.Signal, error) {
	at, err := models.ParseTime(fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("steam: bad fetched_at %q: %w", fetchedAt, err)
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
		type move struct {
			book  string
			delta float64
		}
		var moves []move
		for book, rows := range books {
			if len(rows) < 2 {
				continue
			}
			delta := odds.LineDelta(side.Market, rows[0], rows[len(rows)-1])
			if delta != 0 {
				moves = append(moves, move{book, delta})
			}
		}
		if len(moves) < d.cfg.SteamMinBooks {
			continue
		}

		var up, down []move
		for _, m := range moves {
			if m.delta > 0 {
				up = append(up, m)
			} else {
				down = append(down, m)
			}
		}
		aligned, direction := up, "up"
		if len(down) > len(up) {
			aligned, direction = down, "down"
		}
		if len(aligned) < d.cfg.SteamMinBooks {
			continue
		}

		sum := 0.0
		moved := make(map[string]bool, len(aligned))
		for _, m := range aligned {
			sum += math.Abs(m.delta)
			moved[m.book] = true
		}
		avgDelta := sum / float64(len(aligned))
		strength := odds.Clamp01(float64(len(aligned)) / float64(len(books)))

		sort.Slice(aligned, func(i, j int) bool { return aligned[i].book < aligned[j].book })
		bookDetails := make([]models.BookMove, 0, len(aligned))
		for _, m := range aligned {
			bd := models.BookMove{Bookmaker: m.book, Delta: round2(m.delta)}
			if row, ok := current[side][m.book]; ok {
				bd.Price = row.Price
				bd.Point = row.Point
			}
			bookDetails = append(bookDetails, bd)
		}

		// Books that sat out the move still quote the pre-steam number.
		var valueBooks []models.ValueBook
		for book := range books {
			if moved[book] || !models.USBooks[book] {
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
			Type:        models.SignalSteamMove,
			EventID:     eventID,
			SportKey:    meta.SportKey,
			HomeTeam:    meta.HomeTeam,
			AwayTeam:    meta.AwayTeam,
			MarketKey:   side.Market,
			OutcomeName: side.Outcome,
			Strength:    strength,
			Description: fmt.Sprintf("Steam move %s: %d books moved %s (%s) avg %.1f",
				direction, len(aligned), side.Outcome, side.Market, avgDelta),
			Details: &models.SteamDetails{
				Direction:   direction,
				BooksMoved:  len(aligned),
				TotalBooks:  len(books),
				AvgDelta:    round2(avgDelta),
				BookDetails: bookDetails,
				ValueBooks:  valueBooks,
			},
		})
	}
	return signals, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
