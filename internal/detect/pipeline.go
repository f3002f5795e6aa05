package detect

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/models"
)

// PipelineStore is the store surface the pipeline needs beyond the
// detectors' own reads.
type PipelineStore interface {
	SnapshotReader
	DistinctEventIDsAt(ctx context.Context, fetchedAt string) ([]string, error)
	AlertSentRecently(ctx context.Context, eventID, alertType, marketKey, outcomeName string, cooldown time.Duration) (bool, error)
}

// Pipeline runs every detector over a fetch cycle's events, then filters
// the findings down to alert-worthy signals: strength floor, mirror-side
// collapse, and the per-outcome cooldown.
type Pipeline struct {
	cfg       *config.Config
	store     PipelineStore
	detectors []Detector
}

func NewPipeline(cfg *config.Config, store PipelineStore) *Pipeline {
	return &Pipeline{
		cfg:   cfg,
		store: store,
		detectors: []Detector{
			NewSteamMove(cfg, store),
			NewRapidChange(cfg, store),
			NewPinnacleDivergence(cfg, store),
			NewReverseLine(cfg, store),
			NewExchangeShift(cfg, store),
		},
	}
}

// Run analyzes every event present at fetchedAt.
func (p *Pipeline) Run(ctx context.Context, fetchedAt string) ([]models.Signal, error) {
	return p.RunEvents(ctx, fetchedAt, nil)
}

// RunEvents analyzes the given event set at fetchedAt. A nil set means
// every event present at that timestamp.
func (p *Pipeline) RunEvents(ctx context.Context, fetchedAt string, eventIDs []string) ([]models.Signal, error) {
	if eventIDs == nil {
		ids, err := p.store.DistinctEventIDsAt(ctx, fetchedAt)
		if err != nil {
			return nil, err
		}
		eventIDs = ids
	}

	var raw []models.Signal
	for _, eventID := range eventIDs {
		for _, det := range p.detectors {
			signals, err := det.Detect(ctx, eventID, fetchedAt)
			if err != nil {
				log.Error().Err(err).
					Str("detector", det.Name()).
					Str("event_id", eventID).
					Msg("detector failed")
				continue
			}
			raw = append(raw, signals...)
		}
	}

	strong := raw[:0]
	for _, sig := range raw {
		if sig.Strength >= p.cfg.MinSignalStrength {
			strong = append(strong, sig)
		}
	}

	collapsed := collapseMirrors(strong)

	var out []models.Signal
	for _, sig := range collapsed {
		sent, err := p.store.AlertSentRecently(ctx, sig.EventID, string(sig.Type),
			sig.MarketKey, sig.OutcomeName, p.cfg.AlertCooldown())
		if err != nil {
			return nil, err
		}
		if sent {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

// collapseMirrors keeps one signal per (event, type, market) group so the
// two sides of one move never both alert. Keeper choice is deterministic
// per signal type; order of survivors follows first appearance.
func collapseMirrors(signals []models.Signal) []models.Signal {
	type groupKey struct {
		EventID string
		Type    models.SignalType
		Market  string
	}
	groups := make(map[groupKey][]models.Signal)
	var order []groupKey
	for _, sig := range signals {
		key := groupKey{sig.EventID, sig.Type, sig.MarketKey}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], sig)
	}

	out := make([]models.Signal, 0, len(order))
	for _, key := range order {
		out = append(out, pickKeeper(groups[key]))
	}
	return out
}

func pickKeeper(group []models.Signal) models.Signal {
	if len(group) == 1 {
		return group[0]
	}
	switch group[0].Details.(type) {
	case *models.ReverseDetails:
		for _, sig := range group {
			if sig.Details.(*models.ReverseDetails).PinnacleDelta > 0 {
				return sig
			}
		}
	case *models.SteamDetails:
		for _, sig := range group {
			d := sig.Details.(*models.SteamDetails)
			if sig.MarketKey == models.MarketTotals {
				if (d.Direction == "up" && sig.OutcomeName == models.OutcomeOver) ||
					(d.Direction == "down" && sig.OutcomeName == models.OutcomeUnder) {
					return sig
				}
			} else if d.Direction == "down" {
				return sig
			}
		}
	case *models.ExchangeDetails:
		for _, sig := range group {
			if sig.Details.(*models.ExchangeDetails).Direction == "shortened" {
				return sig
			}
		}
	case *models.RapidDetails:
		best := group[0]
		for _, sig := range group[1:] {
			if math.Abs(sig.Details.(*models.RapidDetails).Delta) >
				math.Abs(best.Details.(*models.RapidDetails).Delta) {
				best = sig
			}
		}
		return best
	}
	return bestByValueBooks(group)
}

func bestByValueBooks(group []models.Signal) models.Signal {
	sorted := make([]models.Signal, len(group))
	copy(sorted, group)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Details.ValueBookCount() != b.Details.ValueBookCount() {
			return a.Details.ValueBookCount() > b.Details.ValueBookCount()
		}
		return a.Strength > b.Strength
	})
	return sorted[0]
}
