package poll

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/metrics"
	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/oddsapi"
)

// Fetcher runs one odds fetch cycle.
type Fetcher interface {
	FetchCycle(ctx context.Context) (*oddsapi.CycleResult, error)
}

// Pipeline turns one cycle's events into alert-worthy signals.
type Pipeline interface {
	RunEvents(ctx context.Context, fetchedAt string, eventIDs []string) ([]models.Signal, error)
}

// SignalSink dispatches signals to the alert channel and records them in
// the alert ledger. Returns the number dispatched.
type SignalSink interface {
	Notifier
	SendSignals(ctx context.Context, signals []models.Signal) (int, error)
}

// Recorder persists signals for later grading.
type Recorder interface {
	RecordSignals(ctx context.Context, fetchedAt string, signals []models.Signal) error
}

// Grader resolves recorded signals against final scores.
type Grader interface {
	ResolveAll(ctx context.Context) error
}

// Reporter renders and posts performance reports.
type Reporter interface {
	DailyReport(ctx context.Context) error
	WeeklyReport(ctx context.Context) error
}

// Scheduler drives the recurring jobs: the poll cycle, the daily budget
// summary, daily grading, and the daily/weekly reports. Jobs run
// independently; one failing does not stop the others.
type Scheduler struct {
	cfg      *config.Config
	fetcher  Fetcher
	pipeline Pipeline
	governor *Governor
	sink     SignalSink
	recorder Recorder
	grader   Grader
	reporter Reporter
	metrics  *metrics.Metrics

	cycle    atomic.Int64
	inFlight atomic.Bool
}

func NewScheduler(cfg *config.Config, fetcher Fetcher, pipeline Pipeline, governor *Governor,
	sink SignalSink, recorder Recorder, grader Grader, reporter Reporter, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		fetcher:  fetcher,
		pipeline: pipeline,
		governor: governor,
		sink:     sink,
		recorder: recorder,
		grader:   grader,
		reporter: reporter,
		metrics:  m,
	}
}

// Run blocks until ctx is cancelled. The poll job fires immediately, then
// on every interval tick.
func (s *Scheduler) Run(ctx context.Context) error {
	weekday, err := s.cfg.WeeklyWeekday()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.pollLoop(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runDaily(ctx, 0, "budget summary", s.budgetSummary)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runDaily(ctx, s.cfg.GraderHourUTC, "grader", s.grader.ResolveAll)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runDaily(ctx, s.cfg.ReportHourUTC, "daily report", s.dailyReport)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runWeekly(ctx, weekday, s.cfg.ReportHourUTC, "weekly report", s.weeklyReport)
	}()

	wg.Wait()
	return nil
}

func (s *Scheduler) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval())
	defer ticker.Stop()

	s.tryPoll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tryPoll(ctx)
		}
	}
}

// tryPoll runs one cycle unless the previous one is still in flight, in
// which case the tick is dropped.
func (s *Scheduler) tryPoll(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		log.Warn().Msg("previous poll cycle still running, dropping tick")
		return
	}
	defer s.inFlight.Store(false)

	if err := s.PollOnce(ctx); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("poll cycle failed")
	}
}

// PollOnce executes a single poll cycle end to end.
func (s *Scheduler) PollOnce(ctx context.Context) error {
	cycle := int(s.cycle.Add(1))

	ok, err := s.governor.ShouldPoll(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	now := time.Now()
	if s.cfg.InQuietHours(now) {
		log.Info().Int("cycle", cycle).Msg("quiet hours, skipping poll")
		return nil
	}

	res, err := s.fetcher.FetchCycle(ctx)
	if err != nil {
		return fmt.Errorf("cycle %d: %w", cycle, err)
	}
	s.metrics.PollCycle()
	s.metrics.SnapshotsInserted(res.Inserted)

	eventIDs := FilterEvents(res.Events, cycle, now)
	log.Info().Int("cycle", cycle).Int("events", len(eventIDs)).Str("fetched_at", res.FetchedAt).Msg("running detectors")

	signals, err := s.pipeline.RunEvents(ctx, res.FetchedAt, eventIDs)
	if err != nil {
		return fmt.Errorf("cycle %d: pipeline: %w", cycle, err)
	}
	for _, sig := range signals {
		s.metrics.SignalDetected(string(sig.Type))
	}

	// Alerts go out before results are recorded so the next cycle's
	// cooldown query sees them.
	sent, err := s.sink.SendSignals(ctx, signals)
	s.metrics.AlertsSent(sent)
	if err != nil {
		log.Error().Err(err).Msg("alert dispatch failed")
	}
	if err := s.recorder.RecordSignals(ctx, res.FetchedAt, signals); err != nil {
		log.Error().Err(err).Msg("signal recording failed")
	}

	if st, err := s.governor.BudgetStatus(ctx); err == nil {
		s.metrics.SetCreditsRemaining(st.Remaining)
	}
	return nil
}

func (s *Scheduler) budgetSummary(ctx context.Context) error {
	st, err := s.governor.BudgetStatus(ctx)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("Monthly limit: %d\nUsed: %d (%.1f%%)\nRemaining: %d",
		st.MonthlyLimit, st.Used, st.PercentUsed, st.Remaining)
	return s.sink.Notify(ctx, "Daily API Budget Summary", msg)
}

// dailyReport grades pending signals first so the report reflects them
// regardless of how the two job hours are configured. A grading failure
// does not block the report.
func (s *Scheduler) dailyReport(ctx context.Context) error {
	if err := s.grader.ResolveAll(ctx); err != nil {
		log.Error().Err(err).Msg("pre-report grading failed")
	}
	return s.reporter.DailyReport(ctx)
}

func (s *Scheduler) weeklyReport(ctx context.Context) error {
	if err := s.grader.ResolveAll(ctx); err != nil {
		log.Error().Err(err).Msg("pre-report grading failed")
	}
	return s.reporter.WeeklyReport(ctx)
}

func (s *Scheduler) runDaily(ctx context.Context, hour int, name string, fn func(context.Context) error) {
	next := nextDaily(time.Now(), hour)
	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		}
		next = next.Add(24 * time.Hour)
	}
}

func (s *Scheduler) runWeekly(ctx context.Context, weekday time.Weekday, hour int, name string, fn func(context.Context) error) {
	next := nextWeekly(time.Now(), weekday, hour)
	for {
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if err := fn(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
		}
		next = next.Add(7 * 24 * time.Hour)
	}
}

func nextDaily(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

func nextWeekly(now time.Time, weekday time.Weekday, hour int) time.Time {
	next := nextDaily(now, hour)
	for next.Weekday() != weekday {
		next = next.Add(24 * time.Hour)
	}
	return next
}
