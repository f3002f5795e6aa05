// Package poll contains the scheduler, the event sub-sampler and the API
// budget governor that together decide when and what to poll.
package poll

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/oddsapi"
)

// Priority buckets events by time-to-start. The period is the number of
// poll cycles between detector passes over the event.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 4
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// Classify assigns a priority from hours until commence time. Unparseable
// commence times fail safe to high priority.
func Classify(commenceTime string, now time.Time) Priority {
	t, err := models.ParseTime(commenceTime)
	if err != nil {
		log.Warn().Str("commence_time", commenceTime).Msg("unparseable commence time, treating as high priority")
		return PriorityHigh
	}
	hours := t.Sub(now).Hours()
	switch {
	case hours <= 2:
		return PriorityHigh
	case hours <= 12:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// ShouldPoll reports whether an event of the given priority is analyzed
// this cycle.
func ShouldPoll(p Priority, cycle int) bool {
	return cycle%int(p) == 0
}

// FilterEvents returns the ids of events due for detection this cycle.
// The result is never nil: an empty slice means analyze nothing, which
// the pipeline must not confuse with its nil replay-everything set.
func FilterEvents(events map[string][]oddsapi.Event, cycle int, now time.Time) []string {
	ids := make([]string, 0)
	for _, list := range events {
		for _, ev := range list {
			if ShouldPoll(Classify(ev.CommenceTime, now), cycle) {
				ids = append(ids, ev.ID)
			}
		}
	}
	return ids
}
