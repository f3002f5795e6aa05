package poll

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/config"
)

// CreditsReader reads the most recent credit counter from the usage ledger.
type CreditsReader interface {
	CreditsRemaining(ctx context.Context) (remaining int, ok bool, err error)
}

// Notifier posts an out-of-band operational message to the alert channel.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Governor gates poll cycles on the remaining API credits. Each cycle
// costs one request per sport per market tier, so the floor scales with
// the configured sport list.
type Governor struct {
	cfg      *config.Config
	store    CreditsReader
	notifier Notifier
	notified bool
}

func NewGovernor(cfg *config.Config, store CreditsReader, notifier Notifier) *Governor {
	return &Governor{cfg: cfg, store: store, notifier: notifier}
}

// CreditsPerPoll estimates the credit cost of one full cycle: three
// markets per configured sport.
func (g *Governor) CreditsPerPoll() int {
	return 3 * len(g.cfg.Sports)
}

// ShouldPoll reports whether a cycle may run. True before any usage has
// been recorded. The first denial posts a one-shot low-budget notice.
func (g *Governor) ShouldPoll(ctx context.Context) (bool, error) {
	remaining, ok, err := g.store.CreditsRemaining(ctx)
	if err != nil {
		return false, fmt.Errorf("budget check: %w", err)
	}
	if !ok {
		return true, nil
	}

	floor := g.cfg.OddsAPIMonthlyCredits / 5
	if perPoll := g.CreditsPerPoll(); perPoll > floor {
		floor = perPoll
	}
	if remaining > floor {
		return true, nil
	}

	log.Warn().Int("remaining", remaining).Int("floor", floor).Msg("poll denied: low API budget")
	if !g.notified && g.notifier != nil {
		g.notified = true
		msg := fmt.Sprintf("API credits low: %d remaining (floor %d). Polling paused until credits recover.",
			remaining, floor)
		if err := g.notifier.Notify(ctx, "Low API Budget", msg); err != nil {
			log.Error().Err(err).Msg("low-budget notification failed")
		}
	}
	return false, nil
}

// Status summarizes the ledger for the daily budget report.
type Status struct {
	MonthlyLimit int
	Used         int
	Remaining    int
	PercentUsed  float64
}

// BudgetStatus derives usage from the monthly limit and the latest
// remaining counter. Before any usage rows exist, Used is zero.
func (g *Governor) BudgetStatus(ctx context.Context) (Status, error) {
	st := Status{MonthlyLimit: g.cfg.OddsAPIMonthlyCredits, Remaining: g.cfg.OddsAPIMonthlyCredits}
	remaining, ok, err := g.store.CreditsRemaining(ctx)
	if err != nil {
		return st, fmt.Errorf("budget status: %w", err)
	}
	if ok {
		st.Remaining = remaining
		st.Used = st.MonthlyLimit - remaining
		if st.Used < 0 {
			st.Used = 0
		}
	}
	if st.MonthlyLimit > 0 {
		st.PercentUsed = float64(st.Used) / float64(st.MonthlyLimit) * 100
	}
	return st, nil
}
