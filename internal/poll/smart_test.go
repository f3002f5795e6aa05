package poll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/oddsapi"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) string { return models.FormatTime(now.Add(d)) }

	assert.Equal(t, PriorityHigh, Classify(at(30*time.Minute), now))
	assert.Equal(t, PriorityHigh, Classify(at(2*time.Hour), now))
	assert.Equal(t, PriorityMedium, Classify(at(3*time.Hour), now))
	assert.Equal(t, PriorityMedium, Classify(at(12*time.Hour), now))
	assert.Equal(t, PriorityLow, Classify(at(13*time.Hour), now))
	// Started games stay high priority.
	assert.Equal(t, PriorityHigh, Classify(at(-time.Hour), now))
	// Unparseable commence time fails safe.
	assert.Equal(t, PriorityHigh, Classify("not-a-time", now))
}

func TestShouldPoll(t *testing.T) {
	for cycle := 1; cycle <= 8; cycle++ {
		assert.True(t, ShouldPoll(PriorityHigh, cycle))
	}
	assert.True(t, ShouldPoll(PriorityMedium, 2))
	assert.False(t, ShouldPoll(PriorityMedium, 3))
	assert.True(t, ShouldPoll(PriorityLow, 4))
	assert.False(t, ShouldPoll(PriorityLow, 5))
	assert.False(t, ShouldPoll(PriorityLow, 6))
}

func TestFilterEvents(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	events := map[string][]oddsapi.Event{
		"basketball_nba": {
			{ID: "soon", CommenceTime: models.FormatTime(now.Add(time.Hour))},
			{ID: "tonight", CommenceTime: models.FormatTime(now.Add(6 * time.Hour))},
			{ID: "tomorrow", CommenceTime: models.FormatTime(now.Add(26 * time.Hour))},
		},
	}

	// Cycle 1: only high priority.
	assert.ElementsMatch(t, []string{"soon"}, FilterEvents(events, 1, now))
	// Cycle 2: high and medium.
	assert.ElementsMatch(t, []string{"soon", "tonight"}, FilterEvents(events, 2, now))
	// Cycle 4: everything.
	assert.ElementsMatch(t, []string{"soon", "tonight", "tomorrow"}, FilterEvents(events, 4, now))
}

// A cycle that drops every event must yield an empty, non-nil slice: nil
// would read downstream as "analyze everything at this timestamp".
func TestFilterEventsAllDroppedIsEmptyNotNil(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	events := map[string][]oddsapi.Event{
		"basketball_nba": {
			{ID: "tonight", CommenceTime: models.FormatTime(now.Add(6 * time.Hour))},
		},
	}

	// Cycle 3: medium priority does not qualify.
	ids := FilterEvents(events, 3, now)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
}
