package analysis

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/store"
)

// TrackerStore is the store surface performance tracking needs.
type TrackerStore interface {
	RecordSignalResult(ctx context.Context, r models.SignalResult) error
	PerformanceStats(ctx context.Context, since string) (map[string]store.ResultCounts, error)
}

// Tracker records detected signals for later grading.
type Tracker struct {
	store TrackerStore
}

func NewTracker(s TrackerStore) *Tracker {
	return &Tracker{store: s}
}

// RecordSignals persists each signal with the cycle's shared timestamp.
// A failed row is logged and skipped.
func (t *Tracker) RecordSignals(ctx context.Context, fetchedAt string, signals []models.Signal) error {
	for _, sig := range signals {
		detailsJSON := "{}"
		if data, err := json.Marshal(sig.Details); err == nil {
			detailsJSON = string(data)
		}
		r := models.SignalResult{
			EventID:         sig.EventID,
			SignalType:      string(sig.Type),
			MarketKey:       sig.MarketKey,
			OutcomeName:     sig.OutcomeName,
			SignalDirection: direction(sig.Details),
			SignalStrength:  sig.Strength,
			SignalAt:        fetchedAt,
			DetailsJSON:     &detailsJSON,
		}
		if err := t.store.RecordSignalResult(ctx, r); err != nil {
			log.Error().Err(err).Str("event_id", sig.EventID).Msg("record signal result failed")
		}
	}
	return nil
}

// Stats returns win/loss/push counts grouped by signal type.
func (t *Tracker) Stats(ctx context.Context, since string) (map[string]store.ResultCounts, error) {
	return t.store.PerformanceStats(ctx, since)
}

// WinRates returns won / decided per signal type.
func (t *Tracker) WinRates(ctx context.Context, since string) (map[string]float64, error) {
	stats, err := t.Stats(ctx, since)
	if err != nil {
		return nil, err
	}
	rates := make(map[string]float64, len(stats))
	for signalType, counts := range stats {
		rates[signalType] = counts.WinRate()
	}
	return rates, nil
}

func direction(details models.Details) string {
	if details == nil {
		return "unknown"
	}
	return details.DirectionLabel()
}
