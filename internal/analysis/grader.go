// Package analysis grades recorded signals against final scores, tracks
// their performance, renders reports, and replays history for backtests.
package analysis

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/oddsapi"
)

// scoresDaysFrom is the scores look-back, wide enough to catch weekend
// games graded on Monday.
const scoresDaysFrom = 3

// ScoresClient fetches completed-game scores per sport.
type ScoresClient interface {
	Scores(ctx context.Context, sportKey string, daysFrom int) ([]oddsapi.ScoreEvent, error)
}

// GraderStore is the store surface grading needs.
type GraderStore interface {
	UnresolvedSignals(ctx context.Context) ([]models.SignalResult, error)
	EventSportKey(ctx context.Context, eventID string) (string, bool, error)
	ReferenceLine(ctx context.Context, eventID, marketKey, outcomeName, signalAt string) (float64, bool, error)
	ResolveSignal(ctx context.Context, eventID, signalType, marketKey, outcomeName, signalAt, result string) error
}

// Grader resolves unresolved signals into won/lost/push against final
// scores. Games without scores yet stay unresolved for the next run.
type Grader struct {
	cfg    *config.Config
	client ScoresClient
	store  GraderStore
}

func NewGrader(cfg *config.Config, client ScoresClient, store GraderStore) *Grader {
	return &Grader{cfg: cfg, client: client, store: store}
}

// ResolveAll grades every unresolved signal it can.
func (g *Grader) ResolveAll(ctx context.Context) error {
	unresolved, err := g.store.UnresolvedSignals(ctx)
	if err != nil {
		return err
	}
	if len(unresolved) == 0 {
		log.Info().Msg("grader: nothing unresolved")
		return nil
	}

	sportKeys := make(map[string]bool)
	for _, sig := range unresolved {
		key, ok, err := g.store.EventSportKey(ctx, sig.EventID)
		if err != nil {
			return err
		}
		if ok {
			sportKeys[key] = true
		}
	}
	if len(sportKeys) == 0 {
		for _, key := range g.cfg.Sports {
			sportKeys[key] = true
		}
	}

	games := make(map[string]oddsapi.ScoreEvent)
	for key := range sportKeys {
		scored, err := g.client.Scores(ctx, key, scoresDaysFrom)
		if err != nil {
			log.Error().Err(err).Str("sport", key).Msg("grader: scores fetch failed")
			continue
		}
		for _, game := range scored {
			games[game.ID] = game
		}
	}

	resolved, skipped := 0, 0
	for _, sig := range unresolved {
		game, ok := games[sig.EventID]
		if !ok || len(game.Scores) == 0 {
			skipped++
			continue
		}

		var result string
		switch sig.MarketKey {
		case models.MarketH2H:
			result = gradeH2H(sig.OutcomeName, game)
		case models.MarketSpreads, models.MarketTotals:
			point, ok, err := g.store.ReferenceLine(ctx, sig.EventID, sig.MarketKey, sig.OutcomeName, sig.SignalAt)
			if err != nil {
				return err
			}
			if !ok {
				log.Warn().Str("event_id", sig.EventID).Str("market", sig.MarketKey).
					Msg("grader: no reference line")
				skipped++
				continue
			}
			if sig.MarketKey == models.MarketSpreads {
				result = gradeSpread(sig.OutcomeName, game, point)
			} else {
				result = gradeTotal(sig.OutcomeName, game, point)
			}
		default:
			log.Warn().Str("market", sig.MarketKey).Msg("grader: unknown market")
			skipped++
			continue
		}

		if err := g.store.ResolveSignal(ctx, sig.EventID, sig.SignalType,
			sig.MarketKey, sig.OutcomeName, sig.SignalAt, result); err != nil {
			return err
		}
		resolved++
		log.Info().
			Str("event_id", sig.EventID).
			Str("signal_type", sig.SignalType).
			Str("market", sig.MarketKey).
			Str("result", result).
			Msg("signal resolved")
	}

	log.Info().Int("resolved", resolved).Int("skipped", skipped).Msg("grader complete")
	return nil
}

func scoreMap(game oddsapi.ScoreEvent) map[string]int {
	scores := make(map[string]int, len(game.Scores))
	for _, s := range game.Scores {
		n, err := strconv.Atoi(s.Score)
		if err != nil {
			continue
		}
		scores[s.Name] = n
	}
	return scores
}

func gradeH2H(outcomeName string, game oddsapi.ScoreEvent) string {
	scores := scoreMap(game)
	homeScore, awayScore := scores[game.HomeTeam], scores[game.AwayTeam]
	if homeScore == awayScore {
		return models.ResultPush
	}
	winner := game.HomeTeam
	if awayScore > homeScore {
		winner = game.AwayTeam
	}
	if outcomeName == winner {
		return models.ResultWon
	}
	return models.ResultLost
}

// gradeSpread wins when team_score - opponent_score + point > 0.
func gradeSpread(outcomeName string, game oddsapi.ScoreEvent, point float64) string {
	scores := scoreMap(game)
	homeScore, awayScore := scores[game.HomeTeam], scores[game.AwayTeam]

	var margin int
	switch outcomeName {
	case game.HomeTeam:
		margin = homeScore - awayScore
	case game.AwayTeam:
		margin = awayScore - homeScore
	default:
		return models.ResultPush
	}

	adjusted := float64(margin) + point
	switch {
	case adjusted > 0:
		return models.ResultWon
	case adjusted < 0:
		return models.ResultLost
	}
	return models.ResultPush
}

func gradeTotal(outcomeName string, game oddsapi.ScoreEvent, point float64) string {
	combined := 0
	for _, n := range scoreMap(game) {
		combined += n
	}
	switch {
	case float64(combined) > point:
		if outcomeName == models.OutcomeOver {
			return models.ResultWon
		}
		return models.ResultLost
	case float64(combined) < point:
		if outcomeName == models.OutcomeUnder {
			return models.ResultWon
		}
		return models.ResultLost
	}
	return models.ResultPush
}
