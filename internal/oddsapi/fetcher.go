package oddsapi

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/models"
)

// SnapshotWriter is the slice of the store the fetcher needs.
type SnapshotWriter interface {
	InsertSnapshots(ctx context.Context, rows []models.Snapshot) (int, error)
}

// Fetcher pulls odds for the configured sports once per poll cycle and
// persists them as snapshot rows sharing a single fetched_at.
type Fetcher struct {
	client *Client
	store  SnapshotWriter
	sports []string
}

func NewFetcher(client *Client, store SnapshotWriter, sports []string) *Fetcher {
	return &Fetcher{client: client, store: store, sports: sports}
}

// CycleResult is one completed fetch cycle: every event fetched per
// sport, the shared timestamp, and the number of snapshot rows inserted.
type CycleResult struct {
	FetchedAt string
	Events    map[string][]Event
	Inserted  int
}

// FetchCycle runs one fetch: resolve active sports, fetch odds per sport,
// flatten and insert snapshots. Callers sub-sample the returned events
// before detection. A per-sport failure is logged and skipped; an empty
// result with nil error means no sport produced data.
func (f *Fetcher) FetchCycle(ctx context.Context) (*CycleResult, error) {
	active, err := f.client.ActiveSports(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch cycle: %w", err)
	}
	activeKeys := make(map[string]bool, len(active))
	for _, s := range active {
		if s.Active && !s.HasOutrights {
			activeKeys[s.Key] = true
		}
	}

	// One timestamp for the whole cycle: rows from the same poll are
	// identifiable by exact equality on fetched_at.
	res := &CycleResult{
		FetchedAt: models.FormatTime(time.Now()),
		Events:    make(map[string][]Event),
	}
	for _, sportKey := range f.sports {
		if !activeKeys[sportKey] {
			log.Info().Str("sport", sportKey).Msg("sport not active, skipping")
			continue
		}
		events, err := f.client.Odds(ctx, sportKey)
		if err != nil {
			log.Error().Err(err).Str("sport", sportKey).Msg("odds fetch failed")
			continue
		}

		rows := Flatten(events, res.FetchedAt)
		inserted, err := f.store.InsertSnapshots(ctx, rows)
		if err != nil {
			log.Error().Err(err).Str("sport", sportKey).Msg("snapshot insert failed")
			continue
		}
		res.Events[sportKey] = events
		res.Inserted += inserted
		log.Info().Str("sport", sportKey).Int("events", len(events)).Int("snapshots", inserted).Msg("odds fetched")
	}

	return res, nil
}

// Flatten normalizes an odds response into snapshot rows stamped with the
// cycle's fetched_at.
func Flatten(events []Event, fetchedAt string) []models.Snapshot {
	var rows []models.Snapshot
	for _, ev := range events {
		for _, bm := range ev.Bookmakers {
			for _, mkt := range bm.Markets {
				for _, out := range mkt.Outcomes {
					rows = append(rows, models.Snapshot{
						EventID:      ev.ID,
						SportKey:     ev.SportKey,
						HomeTeam:     ev.HomeTeam,
						AwayTeam:     ev.AwayTeam,
						CommenceTime: ev.CommenceTime,
						BookmakerKey: bm.Key,
						MarketKey:    mkt.Key,
						OutcomeName:  out.Name,
						Price:        out.Price,
						Point:        out.Point,
						FetchedAt:    fetchedAt,
					})
				}
			}
		}
	}
	return rows
}
