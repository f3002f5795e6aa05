package poll

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharpscan/sharpscan/internal/config"
)

type fakeCredits struct {
	remaining int
	ok        bool
}

func (f *fakeCredits) CreditsRemaining(context.Context) (int, bool, error) {
	return f.remaining, f.ok, nil
}

type fakeNotifier struct {
	titles []string
}

func (f *fakeNotifier) Notify(_ context.Context, title, _ string) error {
	f.titles = append(f.titles, title)
	return nil
}

func budgetConfig() *config.Config {
	return &config.Config{
		OddsAPIMonthlyCredits: 500,
		Sports:                []string{"americanfootball_nfl", "basketball_nba", "baseball_mlb"},
	}
}

func TestGovernorBootstrapAllowsPoll(t *testing.T) {
	g := NewGovernor(budgetConfig(), &fakeCredits{ok: false}, &fakeNotifier{})
	ok, err := g.ShouldPoll(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGovernorFloor(t *testing.T) {
	// Floor is max(20% of 500, 3*3 sports) = 100.
	store := &fakeCredits{remaining: 101, ok: true}
	notifier := &fakeNotifier{}
	g := NewGovernor(budgetConfig(), store, notifier)
	ctx := context.Background()

	ok, err := g.ShouldPoll(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, notifier.titles)

	store.remaining = 100
	ok, err = g.ShouldPoll(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGovernorPerPollFloorDominates(t *testing.T) {
	cfg := budgetConfig()
	cfg.OddsAPIMonthlyCredits = 20
	// 20% of 20 is 4; per-poll cost 9 is the binding floor.
	g := NewGovernor(cfg, &fakeCredits{remaining: 9, ok: true}, &fakeNotifier{})

	ok, err := g.ShouldPoll(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 9, g.CreditsPerPoll())
}

func TestGovernorNotifiesOnce(t *testing.T) {
	notifier := &fakeNotifier{}
	g := NewGovernor(budgetConfig(), &fakeCredits{remaining: 10, ok: true}, notifier)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := g.ShouldPoll(ctx)
		require.NoError(t, err)
		assert.False(t, ok)
	}
	require.Len(t, notifier.titles, 1)
	assert.Equal(t, "Low API Budget", notifier.titles[0])
}

func TestBudgetStatus(t *testing.T) {
	g := NewGovernor(budgetConfig(), &fakeCredits{remaining: 350, ok: true}, nil)
	st, err := g.BudgetStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500, st.MonthlyLimit)
	assert.Equal(t, 150, st.Used)
	assert.Equal(t, 350, st.Remaining)
	assert.InDelta(t, 30.0, st.PercentUsed, 1e-9)
}
