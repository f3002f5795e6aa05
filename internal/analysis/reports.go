package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/alert"
	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/models"
	"github.com/sharpscan/sharpscan/internal/store"
)

const (
	reportColor = 0x9B59B6
	// resolvedListingCap keeps the per-type results field inside Discord's
	// embed limits.
	resolvedListingCap = 15
)

var resultMarker = map[string]string{
	models.ResultWon:  "✅",
	models.ResultLost: "❌",
	models.ResultPush: "➖",
}

var marketLabel = map[string]string{
	models.MarketH2H:     "Moneyline",
	models.MarketSpreads: "Spreads",
	models.MarketTotals:  "Totals",
}

// ReportStore is the store surface report rendering needs.
type ReportStore interface {
	PerformanceStats(ctx context.Context, since string) (map[string]store.ResultCounts, error)
	PerformanceStatsByMarket(ctx context.Context, since, signalType string) (map[string]store.ResultCounts, error)
	ResolvedSignalsSince(ctx context.Context, since, signalType string) ([]models.SignalResult, error)
	SignalCountSince(ctx context.Context, since string) (int, error)
	AlertsCountSince(ctx context.Context, since string) (int, error)
	PollCountSince(ctx context.Context, since string) (int, error)
	EventTeams(ctx context.Context, eventID string) (home, away string, ok bool, err error)
}

// ReportPoster delivers rendered embeds to a webhook.
type ReportPoster interface {
	Post(ctx context.Context, webhookURL string, embeds ...alert.Embed) error
}

// Reporter renders the daily and weekly performance summaries: one report
// per signal type on its own channel, plus a combined summary on the
// default channel.
type Reporter struct {
	cfg    *config.Config
	store  ReportStore
	poster ReportPoster
}

func NewReporter(cfg *config.Config, s ReportStore, poster ReportPoster) *Reporter {
	return &Reporter{cfg: cfg, store: s, poster: poster}
}

// DailyReport covers the trailing 24 hours.
func (r *Reporter) DailyReport(ctx context.Context) error {
	since := models.FormatTime(time.Now().Add(-24 * time.Hour))
	if err := r.perTypeReports(ctx, "Daily", since); err != nil {
		return err
	}
	return r.combinedReport(ctx, "Daily Signal Report", since)
}

// WeeklyReport covers the trailing 7 days.
func (r *Reporter) WeeklyReport(ctx context.Context) error {
	since := models.FormatTime(time.Now().Add(-7 * 24 * time.Hour))
	if err := r.perTypeReports(ctx, "Weekly", since); err != nil {
		return err
	}
	return r.combinedReport(ctx, "Weekly Signal Report", since)
}

func (r *Reporter) perTypeReports(ctx context.Context, period, since string) error {
	stats, err := r.store.PerformanceStats(ctx, since)
	if err != nil {
		return err
	}
	for _, signalType := range sortedKeys(stats) {
		counts := stats[signalType]
		label := models.SignalType(signalType).Label()

		embed := alert.Embed{
			Title:       fmt.Sprintf("%s %s Report", period, label),
			Description: "Period: since " + since[:10],
			Color:       reportColor,
			Timestamp:   models.FormatTime(time.Now()),
			Footer:      &alert.Footer{Text: "sharpscan"},
			Fields: []alert.Field{
				{Name: "Record", Value: recordLine(counts), Inline: true},
			},
		}

		resolved, err := r.store.ResolvedSignalsSince(ctx, since, signalType)
		if err != nil {
			return err
		}
		if len(resolved) > 0 {
			if len(resolved) > resolvedListingCap {
				resolved = resolved[:resolvedListingCap]
			}
			lines := make([]string, 0, len(resolved))
			for _, sig := range resolved {
				matchup := sig.EventID
				if home, away, ok, err := r.store.EventTeams(ctx, sig.EventID); err == nil && ok {
					matchup = fmt.Sprintf("%s vs %s", away, home)
				}
				marker := "?"
				if sig.Result != nil {
					marker = resultMarker[*sig.Result]
				}
				lines = append(lines, fmt.Sprintf("%s %s — %s %s",
					marker, matchup, sig.MarketKey, sig.OutcomeName))
			}
			embed.Fields = append(embed.Fields, alert.Field{
				Name: "Results", Value: strings.Join(lines, "\n"),
			})
		}

		marketStats, err := r.store.PerformanceStatsByMarket(ctx, since, signalType)
		if err != nil {
			return err
		}
		if len(marketStats) > 0 {
			embed.Fields = append(embed.Fields, alert.Field{
				Name: "By Market", Value: marketBreakdown(marketStats),
			})
		}

		url := r.cfg.WebhookFor(models.SignalType(signalType))
		if err := r.poster.Post(ctx, url, embed); err != nil {
			log.Error().Err(err).Str("signal_type", signalType).Msg("per-type report send failed")
			continue
		}
		log.Info().Str("report", period+" "+label).Msg("report sent")
	}
	return nil
}

func (r *Reporter) combinedReport(ctx context.Context, title, since string) error {
	stats, err := r.store.PerformanceStats(ctx, since)
	if err != nil {
		return err
	}
	signalCount, err := r.store.SignalCountSince(ctx, since)
	if err != nil {
		return err
	}
	alertCount, err := r.store.AlertsCountSince(ctx, since)
	if err != nil {
		return err
	}
	pollCount, err := r.store.PollCountSince(ctx, since)
	if err != nil {
		return err
	}

	embed := alert.Embed{
		Title:       title,
		Description: "Period: since " + since[:10],
		Color:       reportColor,
		Timestamp:   models.FormatTime(time.Now()),
		Footer:      &alert.Footer{Text: "sharpscan"},
		Fields: []alert.Field{
			{Name: "Signals Detected", Value: fmt.Sprint(signalCount), Inline: true},
			{Name: "Alerts Sent", Value: fmt.Sprint(alertCount), Inline: true},
			{Name: "API Requests", Value: fmt.Sprint(pollCount), Inline: true},
		},
	}

	if len(stats) == 0 {
		embed.Fields = append(embed.Fields, alert.Field{
			Name: "Performance", Value: "No resolved signals yet",
		})
	} else {
		var totalWon, totalLost int
		for _, c := range stats {
			totalWon += c.Won
			totalLost += c.Lost
		}
		overall := "N/A"
		if totalWon+totalLost > 0 {
			overall = fmt.Sprintf("%.1f%%", float64(totalWon)/float64(totalWon+totalLost)*100)
		}
		embed.Fields = append(embed.Fields, alert.Field{
			Name:   "Overall Win Rate",
			Value:  fmt.Sprintf("%s (%dW / %dL)", overall, totalWon, totalLost),
			Inline: true,
		})

		lines := make([]string, 0, len(stats))
		for _, signalType := range sortedKeys(stats) {
			lines = append(lines, fmt.Sprintf("**%s**: %s",
				models.SignalType(signalType).Label(), recordLine(stats[signalType])))
		}
		embed.Fields = append(embed.Fields, alert.Field{
			Name: "By Detector", Value: strings.Join(lines, "\n"),
		})

		marketStats, err := r.store.PerformanceStatsByMarket(ctx, since, "")
		if err != nil {
			return err
		}
		if len(marketStats) > 0 {
			embed.Fields = append(embed.Fields, alert.Field{
				Name: "By Market", Value: marketBreakdown(marketStats),
			})
		}
	}

	if err := r.poster.Post(ctx, r.cfg.DiscordWebhookURL, embed); err != nil {
		return fmt.Errorf("combined report: %w", err)
	}
	log.Info().Str("report", title).Msg("report sent")
	return nil
}

func recordLine(c store.ResultCounts) string {
	rate := "N/A"
	if c.Won+c.Lost > 0 {
		rate = fmt.Sprintf("%.0f%%", c.WinRate()*100)
	}
	return fmt.Sprintf("**%s** (%dW / %dL / %dP)", rate, c.Won, c.Lost, c.Push)
}

func marketBreakdown(stats map[string]store.ResultCounts) string {
	lines := make([]string, 0, len(stats))
	for _, market := range sortedKeys(stats) {
		c := stats[market]
		name := market
		if label, ok := marketLabel[market]; ok {
			name = label
		}
		rate := "N/A"
		if c.Won+c.Lost > 0 {
			rate = fmt.Sprintf("%.0f%%", c.WinRate()*100)
		}
		lines = append(lines, fmt.Sprintf("**%s**: %s (%dW/%dL/%dP)", name, rate, c.Won, c.Lost, c.Push))
	}
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[string]store.ResultCounts) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
