// Package detect holds the five line-movement detectors and the pipeline
// that orchestrates them over each fetch cycle.
package detect

import (
	"context"

	"github.com/sharpscan/sharpscan/internal/models"
)

// Detector analyzes one event's snapshot history at a fetch timestamp.
// Detectors only read the store and never observe each other.
type Detector interface {
	Name() string
	Detect(ctx context.Context, eventID, fetchedAt string) ([]models.Signal, error)
}

// SnapshotReader is the read-only slice of the store the detectors use.
type SnapshotReader interface {
	LatestSnapshots(ctx context.Context, eventID string) ([]models.Snapshot, error)
	PreviousSnapshots(ctx context.Context, eventID, before string) ([]models.Snapshot, error)
	SnapshotsSince(ctx context.Context, eventID, since string) ([]models.Snapshot, error)
}

// marketSide keys a group of lines on one side of one market.
type marketSide struct {
	Market  string
	Outcome string
}

// eventMeta carries the identifying fields shared by every signal of an
// event.
type eventMeta struct {
	SportKey string
	HomeTeam string
	AwayTeam string
}

func metaFrom(rows []models.Snapshot) eventMeta {
	if len(rows) == 0 {
		return eventMeta{}
	}
	return eventMeta{SportKey: rows[0].SportKey, HomeTeam: rows[0].HomeTeam, AwayTeam: rows[0].AwayTeam}
}

// indexBySide maps snapshots to (market, outcome) -> bookmaker -> row.
func indexBySide(rows []models.Snapshot) map[marketSide]map[string]*models.Snapshot {
	idx := make(map[marketSide]map[string]*models.Snapshot)
	for i := range rows {
		r := &rows[i]
		key := marketSide{r.MarketKey, r.OutcomeName}
		if idx[key] == nil {
			idx[key] = make(map[string]*models.Snapshot)
		}
		idx[key][r.BookmakerKey] = r
	}
	return idx
}

// groupHistory maps snapshots to (market, outcome) -> bookmaker -> rows in
// input order (SnapshotsSince returns ascending fetched_at).
func groupHistory(rows []models.Snapshot) map[marketSide]map[string][]*models.Snapshot {
	idx := make(map[marketSide]map[string][]*models.Snapshot)
	for i := range rows {
		r := &rows[i]
		key := marketSide{r.MarketKey, r.OutcomeName}
		if idx[key] == nil {
			idx[key] = make(map[string][]*models.Snapshot)
		}
		idx[key][r.BookmakerKey] = append(idx[key][r.BookmakerKey], r)
	}
	return idx
}
