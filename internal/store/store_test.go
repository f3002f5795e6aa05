package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharpscan/sharpscan/internal/models"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func pt(v float64) *float64 { return &v }

func snap(eventID, book, market, outcome string, price float64, point *float64, fetchedAt string) models.Snapshot {
	return models.Snapshot{
		EventID:      eventID,
		SportKey:     "basketball_nba",
		HomeTeam:     "Lakers",
		AwayTeam:     "Celtics",
		CommenceTime: "2026-01-16T00:00:00Z",
		BookmakerKey: book,
		MarketKey:    market,
		OutcomeName:  outcome,
		Price:        price,
		Point:        point,
		FetchedAt:    fetchedAt,
	}
}

const (
	t1 = "2026-01-15T12:00:00Z"
	t2 = "2026-01-15T12:20:00Z"
	t3 = "2026-01-15T12:40:00Z"
)

func TestInsertSnapshotsDedup(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	rows := []models.Snapshot{
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -150, nil, t1),
		snap("ev1", "fanduel", models.MarketH2H, "Lakers", -145, nil, t1),
	}
	n, err := s.InsertSnapshots(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Same uniqueness tuple again: dropped without error.
	n, err = s.InsertSnapshots(ctx, rows)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestLatestAndPreviousSnapshots(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.InsertSnapshots(ctx, []models.Snapshot{
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -150, nil, t1),
		snap("ev1", "fanduel", models.MarketH2H, "Lakers", -145, nil, t1),
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -160, nil, t2),
	})
	require.NoError(t, err)

	latest, err := s.LatestSnapshots(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, t2, latest[0].FetchedAt)
	assert.Equal(t, -160.0, latest[0].Price)

	prev, err := s.PreviousSnapshots(ctx, "ev1", t2)
	require.NoError(t, err)
	require.Len(t, prev, 2)
	for _, row := range prev {
		assert.Equal(t, t1, row.FetchedAt)
	}

	// Nothing earlier than t1.
	prev, err = s.PreviousSnapshots(ctx, "ev1", t1)
	require.NoError(t, err)
	assert.Empty(t, prev)
}

func TestSnapshotsSinceAscending(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.InsertSnapshots(ctx, []models.Snapshot{
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -160, nil, t2),
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -150, nil, t1),
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -170, nil, t3),
	})
	require.NoError(t, err)

	rows, err := s.SnapshotsSince(ctx, "ev1", t2)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, t2, rows[0].FetchedAt)
	assert.Equal(t, t3, rows[1].FetchedAt)
}

func TestDistinctEventIDsAt(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.InsertSnapshots(ctx, []models.Snapshot{
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -150, nil, t1),
		snap("ev2", "draftkings", models.MarketH2H, "Lakers", -120, nil, t1),
		snap("ev3", "draftkings", models.MarketH2H, "Lakers", -110, nil, t2),
	})
	require.NoError(t, err)

	ids, err := s.DistinctEventIDsAt(ctx, t1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"ev1", "ev2"}, ids)
}

func TestDistinctFetchTimes(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.InsertSnapshots(ctx, []models.Snapshot{
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -150, nil, t1),
		snap("ev1", "fanduel", models.MarketH2H, "Lakers", -145, nil, t1),
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -160, nil, t2),
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -170, nil, t3),
	})
	require.NoError(t, err)

	times, err := s.DistinctFetchTimes(ctx, t1, t2)
	require.NoError(t, err)
	assert.Equal(t, []string{t1, t2}, times)
}

func TestReferenceLinePrefersPinnacle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.InsertSnapshots(ctx, []models.Snapshot{
		snap("ev1", "draftkings", models.MarketTotals, models.OutcomeOver, -110, pt(214.5), t1),
		snap("ev1", models.BookPinnacle, models.MarketTotals, models.OutcomeOver, -108, pt(215.0), t1),
	})
	require.NoError(t, err)

	point, ok, err := s.ReferenceLine(ctx, "ev1", models.MarketTotals, models.OutcomeOver, t2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 215.0, point)
}

func TestReferenceLineFallsBackToAnyBook(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.InsertSnapshots(ctx, []models.Snapshot{
		snap("ev1", "draftkings", models.MarketSpreads, "Lakers", -110, pt(-3.5), t1),
	})
	require.NoError(t, err)

	point, ok, err := s.ReferenceLine(ctx, "ev1", models.MarketSpreads, "Lakers", t2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, -3.5, point)

	// No row at or before the signal time.
	_, ok, err = s.ReferenceLine(ctx, "ev1", models.MarketSpreads, "Lakers", "2026-01-15T00:00:00Z")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEventTeamsAndSportKey(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.InsertSnapshots(ctx, []models.Snapshot{
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -150, nil, t1),
	})
	require.NoError(t, err)

	home, away, ok, err := s.EventTeams(ctx, "ev1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Lakers", home)
	assert.Equal(t, "Celtics", away)

	key, ok, err := s.EventSportKey(ctx, "ev1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "basketball_nba", key)

	_, _, ok, err = s.EventTeams(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAlertCooldown(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	sent, err := s.AlertSentRecently(ctx, "ev1", "steam_move", models.MarketSpreads, "Lakers", time.Hour)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, s.RecordAlert(ctx, "ev1", "steam_move", models.MarketSpreads, "Lakers", "{}"))

	sent, err = s.AlertSentRecently(ctx, "ev1", "steam_move", models.MarketSpreads, "Lakers", time.Hour)
	require.NoError(t, err)
	assert.True(t, sent)

	// Different outcome: not covered by the per-outcome query.
	sent, err = s.AlertSentRecently(ctx, "ev1", "steam_move", models.MarketSpreads, "Celtics", time.Hour)
	require.NoError(t, err)
	assert.False(t, sent)

	// But the market-level query sees it.
	sent, err = s.MarketAlertedRecently(ctx, "ev1", "steam_move", models.MarketSpreads, time.Hour)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestAPIUsageLedger(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, ok, err := s.CreditsRemaining(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.RecordAPIUsage(ctx, "/sports/x/odds", 3, 480))
	require.NoError(t, s.RecordAPIUsage(ctx, "/sports/y/odds", 6, 474))

	remaining, ok, err := s.CreditsRemaining(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 474, remaining)
}

func TestSignalResultsLifecycle(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	details := `{"direction":"down"}`
	r := models.SignalResult{
		EventID:         "ev1",
		SignalType:      "steam_move",
		MarketKey:       models.MarketSpreads,
		OutcomeName:     "Lakers",
		SignalDirection: "down",
		SignalStrength:  0.75,
		SignalAt:        t1,
		DetailsJSON:     &details,
	}
	require.NoError(t, s.RecordSignalResult(ctx, r))
	// Duplicate tuple is ignored.
	require.NoError(t, s.RecordSignalResult(ctx, r))

	unresolved, err := s.UnresolvedSignals(ctx)
	require.NoError(t, err)
	require.Len(t, unresolved, 1)

	require.NoError(t, s.ResolveSignal(ctx, "ev1", "steam_move", models.MarketSpreads, "Lakers", t1, models.ResultWon))

	unresolved, err = s.UnresolvedSignals(ctx)
	require.NoError(t, err)
	assert.Empty(t, unresolved)

	stats, err := s.PerformanceStats(ctx, "")
	require.NoError(t, err)
	require.Contains(t, stats, "steam_move")
	assert.Equal(t, 1, stats["steam_move"].Won)
	assert.Equal(t, 1, stats["steam_move"].Total)
	assert.Equal(t, 1.0, stats["steam_move"].WinRate())

	byMarket, err := s.PerformanceStatsByMarket(ctx, "", "steam_move")
	require.NoError(t, err)
	assert.Equal(t, 1, byMarket[models.MarketSpreads].Won)

	resolved, err := s.ResolvedSignalsSince(ctx, "2026-01-01T00:00:00Z", "steam_move")
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	require.NotNil(t, resolved[0].Result)
	assert.Equal(t, models.ResultWon, *resolved[0].Result)

	n, err := s.SignalCountSince(ctx, t1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
