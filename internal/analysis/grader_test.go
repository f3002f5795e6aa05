package analysis

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/oddsapi"
)

func finalScore(home string, homeScore, awayScore int) oddsapi.ScoreEvent {
	return oddsapi.ScoreEvent{
		ID:        "ev1",
		HomeTeam:  home,
		AwayTeam:  "Celtics",
		Completed: true,
		Scores: []oddsapi.TeamScore{
			{Name: home, Score: strconv.Itoa(homeScore)},
			{Name: "Celtics", Score: strconv.Itoa(awayScore)},
		},
	}
}

type fakeScores struct {
	games   map[string][]oddsapi.ScoreEvent
	errs    map[string]error
	fetched []string
}

func (f *fakeScores) Scores(_ context.Context, sportKey string, _ int) ([]oddsapi.ScoreEvent, error) {
	f.fetched = append(f.fetched, sportKey)
	if err := f.errs[sportKey]; err != nil {
		return nil, err
	}
	return f.games[sportKey], nil
}

type fakeGraderStore struct {
	unresolved []models.SignalResult
	sportKeys  map[string]string
	refLines   map[string]float64
	resolved   map[string]string
}

func (f *fakeGraderStore) UnresolvedSignals(context.Context) ([]models.SignalResult, error) {
	return f.unresolved, nil
}

func (f *fakeGraderStore) EventSportKey(_ context.Context, eventID string) (string, bool, error) {
	key, ok := f.sportKeys[eventID]
	return key, ok, nil
}

func (f *fakeGraderStore) ReferenceLine(_ context.Context, eventID, marketKey, outcomeName, _ string) (float64, bool, error) {
	point, ok := f.refLines[eventID+"|"+marketKey+"|"+outcomeName]
	return point, ok, nil
}

func (f *fakeGraderStore) ResolveSignal(_ context.Context, eventID, signalType, marketKey, _, _, result string) error {
	f.resolved[eventID+"|"+signalType+"|"+marketKey] = result
	return nil
}

func TestResolveAll(t *testing.T) {
	sig := func(eventID, market, outcome string) models.SignalResult {
		return models.SignalResult{
			EventID: eventID, SignalType: "steam_move",
			MarketKey: market, OutcomeName: outcome,
			SignalAt: "2026-01-15T12:00:00Z",
		}
	}
	st := &fakeGraderStore{
		unresolved: []models.SignalResult{
			sig("ev1", models.MarketH2H, "Lakers"),
			sig("ev1", models.MarketSpreads, "Lakers"),
			sig("ev2", models.MarketH2H, "Chiefs"),              // scores fetch fails
			sig("ev3", models.MarketH2H, "Yankees"),             // no final score yet
			sig("ev4", models.MarketTotals, models.OutcomeOver), // no reference line
		},
		sportKeys: map[string]string{
			"ev1": "basketball_nba",
			"ev2": "americanfootball_nfl",
			"ev3": "baseball_mlb",
			"ev4": "basketball_nba",
		},
		refLines: map[string]float64{"ev1|spreads|Lakers": -3.5},
		resolved: map[string]string{},
	}
	client := &fakeScores{
		games: map[string][]oddsapi.ScoreEvent{
			"basketball_nba": {
				finalScore("Lakers", 110, 105),
				{
					ID: "ev4", HomeTeam: "Suns", AwayTeam: "Heat", Completed: true,
					Scores: []oddsapi.TeamScore{
						{Name: "Suns", Score: "100"},
						{Name: "Heat", Score: "90"},
					},
				},
			},
		},
		errs: map[string]error{"americanfootball_nfl": errors.New("upstream 500")},
	}

	g := NewGrader(&config.Config{}, client, st)
	require.NoError(t, g.ResolveAll(context.Background()))

	// One failing sport does not stop the others.
	assert.ElementsMatch(t, []string{"basketball_nba", "americanfootball_nfl", "baseball_mlb"}, client.fetched)

	// Lakers won by 5: the moneyline and the -3.5 spread both grade won.
	assert.Equal(t, models.ResultWon, st.resolved["ev1|steam_move|h2h"])
	assert.Equal(t, models.ResultWon, st.resolved["ev1|steam_move|spreads"])
	// Everything else stays unresolved for the next run.
	assert.Len(t, st.resolved, 2)
}

func TestGradeH2H(t *testing.T) {
	game := finalScore("Lakers", 110, 105)
	assert.Equal(t, models.ResultWon, gradeH2H("Lakers", game))
	assert.Equal(t, models.ResultLost, gradeH2H("Celtics", game))

	tie := finalScore("Lakers", 110, 110)
	assert.Equal(t, models.ResultPush, gradeH2H("Lakers", tie))
}

func TestGradeSpread(t *testing.T) {
	// Lakers win by 5.
	game := finalScore("Lakers", 110, 105)

	// Lakers -3.5 covers: 5 - 3.5 > 0.
	assert.Equal(t, models.ResultWon, gradeSpread("Lakers", game, -3.5))
	// Lakers -6.5 does not.
	assert.Equal(t, models.ResultLost, gradeSpread("Lakers", game, -6.5))
	// Lakers -5 lands exactly.
	assert.Equal(t, models.ResultPush, gradeSpread("Lakers", game, -5))
	// Celtics +6.5 covers a 5-point loss.
	assert.Equal(t, models.ResultWon, gradeSpread("Celtics", game, 6.5))
}

func TestGradeTotal(t *testing.T) {
	// Combined 215.
	game := finalScore("Lakers", 110, 105)

	assert.Equal(t, models.ResultPush, gradeTotal(models.OutcomeOver, game, 215.0))
	assert.Equal(t, models.ResultWon, gradeTotal(models.OutcomeOver, game, 210.5))
	assert.Equal(t, models.ResultLost, gradeTotal(models.OutcomeOver, game, 220.5))
	assert.Equal(t, models.ResultWon, gradeTotal(models.OutcomeUnder, game, 220.5))
	assert.Equal(t, models.ResultLost, gradeTotal(models.OutcomeUnder, game, 210.5))
}
