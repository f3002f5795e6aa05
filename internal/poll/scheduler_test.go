package poll

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderedJobs struct {
	calls    []string
	gradeErr error
}

func (o *orderedJobs) ResolveAll(context.Context) error {
	o.calls = append(o.calls, "grade")
	return o.gradeErr
}

func (o *orderedJobs) DailyReport(context.Context) error {
	o.calls = append(o.calls, "daily")
	return nil
}

func (o *orderedJobs) WeeklyReport(context.Context) error {
	o.calls = append(o.calls, "weekly")
	return nil
}

// Reports always run after grading, whatever hours the jobs are
// configured for.
func TestReportsGradeFirst(t *testing.T) {
	jobs := &orderedJobs{}
	s := &Scheduler{grader: jobs, reporter: jobs}

	require.NoError(t, s.dailyReport(context.Background()))
	assert.Equal(t, []string{"grade", "daily"}, jobs.calls)

	require.NoError(t, s.weeklyReport(context.Background()))
	assert.Equal(t, []string{"grade", "daily", "grade", "weekly"}, jobs.calls)
}

func TestReportStillSentWhenGradingFails(t *testing.T) {
	jobs := &orderedJobs{gradeErr: errors.New("scores unavailable")}
	s := &Scheduler{grader: jobs, reporter: jobs}

	require.NoError(t, s.dailyReport(context.Background()))
	assert.Equal(t, []string{"grade", "daily"}, jobs.calls)
}

func TestNextDaily(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 30, 0, 0, time.UTC)

	next := nextDaily(now, 14)
	assert.Equal(t, time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC), next)

	// Already past today's slot: tomorrow.
	next = nextDaily(now, 9)
	assert.Equal(t, time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC), next)

	// Exactly at the slot: tomorrow, never immediate double-fire.
	at := time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, at.Add(24*time.Hour), nextDaily(at, 14))
}

func TestNextWeekly(t *testing.T) {
	// 2026-01-15 is a Thursday.
	now := time.Date(2026, 1, 15, 12, 30, 0, 0, time.UTC)

	next := nextWeekly(now, time.Monday, 15)
	assert.Equal(t, time.Date(2026, 1, 19, 15, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Monday, next.Weekday())

	// Same weekday, hour still ahead today.
	next = nextWeekly(now, time.Thursday, 15)
	assert.Equal(t, time.Date(2026, 1, 15, 15, 0, 0, 0, time.UTC), next)
}
