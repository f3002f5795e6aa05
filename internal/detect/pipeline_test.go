package detect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharpscan/sharpscan/internal/models"
)

// Both sides of a spread steam in mirror: the pipeline keeps exactly the
// "down" side.
func TestPipelineMirrorCollapseSteam(t *testing.T) {
	s := testStore(t)
	for _, book := range []string{"draftkings", "fanduel", "betmgm"} {
		insert(t, s,
			snap("ev1", book, models.MarketSpreads, "Lakers", -110, pt(-3.5), t1),
			snap("ev1", book, models.MarketSpreads, "Celtics", -110, pt(3.5), t1),
			snap("ev1", book, models.MarketSpreads, "Lakers", -110, pt(-4.0), t2),
			snap("ev1", book, models.MarketSpreads, "Celtics", -110, pt(4.0), t2),
		)
	}

	p := NewPipeline(testConfig(), s)
	signals, err := p.Run(context.Background(), t2)
	require.NoError(t, err)

	var steam []models.Signal
	for _, sig := range signals {
		if sig.Type == models.SignalSteamMove {
			steam = append(steam, sig)
		}
	}
	require.Len(t, steam, 1)
	assert.Equal(t, "Lakers", steam[0].OutcomeName)
	assert.Equal(t, "down", steam[0].Details.(*models.SteamDetails).Direction)
}

// Once a cycle's signals are recorded as alerts, re-running the pipeline
// on the same timestamp returns nothing.
func TestPipelineCooldownSuppression(t *testing.T) {
	s := testStore(t)
	insert(t, s,
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -150, nil, t1),
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -200, nil, t2),
	)

	ctx := context.Background()
	p := NewPipeline(testConfig(), s)

	signals, err := p.Run(ctx, t2)
	require.NoError(t, err)
	require.NotEmpty(t, signals)

	for _, sig := range signals {
		require.NoError(t, s.RecordAlert(ctx, sig.EventID, string(sig.Type),
			sig.MarketKey, sig.OutcomeName, "{}"))
	}

	signals, err = p.Run(ctx, t2)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

// An empty event set analyzes nothing, even when the stored history
// would fire a detector. Only a nil set enumerates the whole timestamp.
func TestRunEventsEmptySetAnalyzesNothing(t *testing.T) {
	s := testStore(t)
	insert(t, s,
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -150, nil, t1),
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -200, nil, t2),
	)

	ctx := context.Background()
	p := NewPipeline(testConfig(), s)

	signals, err := p.RunEvents(ctx, t2, []string{})
	require.NoError(t, err)
	assert.Empty(t, signals)

	// The same history does fire when the event is in scope.
	signals, err = p.RunEvents(ctx, t2, []string{"ev1"})
	require.NoError(t, err)
	assert.NotEmpty(t, signals)
}

func TestPipelineStrengthFilter(t *testing.T) {
	s := testStore(t)
	// Delta 21 on h2h: fires rapid change with strength 21/60 = 0.35.
	insert(t, s,
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -150, nil, t1),
		snap("ev1", "draftkings", models.MarketH2H, "Lakers", -171, nil, t2),
	)

	cfg := testConfig()
	cfg.MinSignalStrength = 0.5
	p := NewPipeline(cfg, s)

	signals, err := p.Run(context.Background(), t2)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestPickKeeperRapidLargestDelta(t *testing.T) {
	small := models.Signal{
		Type:        models.SignalRapidChange,
		EventID:     "ev1",
		MarketKey:   models.MarketH2H,
		OutcomeName: "Celtics",
		Details:     &models.RapidDetails{Delta: 22},
	}
	big := models.Signal{
		Type:        models.SignalRapidChange,
		EventID:     "ev1",
		MarketKey:   models.MarketH2H,
		OutcomeName: "Lakers",
		Details:     &models.RapidDetails{Delta: -30},
	}

	keeper := pickKeeper([]models.Signal{small, big})
	assert.Equal(t, "Lakers", keeper.OutcomeName)
}

func TestPickKeeperTotalsSteam(t *testing.T) {
	over := models.Signal{
		Type:        models.SignalSteamMove,
		MarketKey:   models.MarketTotals,
		OutcomeName: models.OutcomeOver,
		Details:     &models.SteamDetails{Direction: "up"},
	}
	under := models.Signal{
		Type:        models.SignalSteamMove,
		MarketKey:   models.MarketTotals,
		OutcomeName: models.OutcomeUnder,
		Details:     &models.SteamDetails{Direction: "down"},
	}

	keeper := pickKeeper([]models.Signal{under, over})
	// Both qualify under their own direction; first match in order wins,
	// and both map to a deterministic single survivor.
	assert.Contains(t, []string{models.OutcomeOver, models.OutcomeUnder}, keeper.OutcomeName)

	// Singleton groups return their only element.
	assert.Equal(t, over, pickKeeper([]models.Signal{over}))
}

func TestPickKeeperReverseFollowsSharp(t *testing.T) {
	follow := models.Signal{
		Type:        models.SignalReverseLine,
		OutcomeName: "Chiefs",
		Details:     &models.ReverseDetails{PinnacleDelta: 0.5},
	}
	fade := models.Signal{
		Type:        models.SignalReverseLine,
		OutcomeName: "Raiders",
		Details:     &models.ReverseDetails{PinnacleDelta: -0.5},
	}

	keeper := pickKeeper([]models.Signal{fade, follow})
	assert.Equal(t, "Chiefs", keeper.OutcomeName)
}

func TestPickKeeperFallbackValueBooks(t *testing.T) {
	fewer := models.Signal{
		Type:        models.SignalExchangeShift,
		OutcomeName: "Lakers",
		Strength:    0.9,
		Details:     &models.ExchangeDetails{Direction: "drifted"},
	}
	more := models.Signal{
		Type:        models.SignalExchangeShift,
		OutcomeName: "Celtics",
		Strength:    0.4,
		Details: &models.ExchangeDetails{
			Direction:  "drifted",
			ValueBooks: []models.ValueBook{{Bookmaker: "draftkings"}, {Bookmaker: "fanduel"}},
		},
	}

	// Neither side shortened: fallback prefers the side with more value
	// books.
	keeper := pickKeeper([]models.Signal{fewer, more})
	assert.Equal(t, "Celtics", keeper.OutcomeName)
}
