package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/models"
)

// BacktestPipeline replays one stored fetch timestamp through detection.
type BacktestPipeline interface {
	Run(ctx context.Context, fetchedAt string) ([]models.Signal, error)
}

// FetchTimeLister enumerates stored poll timestamps for replay.
type FetchTimeLister interface {
	DistinctFetchTimes(ctx context.Context, start, end string) ([]string, error)
}

// BacktestResult aggregates one replay over a stored date range.
type BacktestResult struct {
	Start          string
	End            string
	FetchCycles    int
	TotalSignals   int
	SignalsByType  map[string]int
	SignalsBySport map[string]int
	Signals        []models.Signal
}

// Summary renders the result for terminal output.
func (r *BacktestResult) Summary() string {
	lines := []string{
		fmt.Sprintf("Backtest: %s -> %s", r.Start, r.End),
		fmt.Sprintf("  Fetch cycles: %d", r.FetchCycles),
		fmt.Sprintf("  Total signals: %d", r.TotalSignals),
		"",
		"  By type:",
	}
	lines = append(lines, countLines(r.SignalsByType)...)
	lines = append(lines, "", "  By sport:")
	lines = append(lines, countLines(r.SignalsBySport)...)
	return strings.Join(lines, "\n")
}

func countLines(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	// Highest counts first, name as tiebreak.
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("    %s: %d", k, counts[k]))
	}
	return lines
}

// Backtester replays stored snapshots through the detection pipeline.
// Alerts are not sent and nothing is recorded; it only counts.
type Backtester struct {
	store    FetchTimeLister
	pipeline BacktestPipeline
}

func NewBacktester(store FetchTimeLister, pipeline BacktestPipeline) *Backtester {
	return &Backtester{store: store, pipeline: pipeline}
}

// Run replays every stored fetch timestamp in [start, end].
func (b *Backtester) Run(ctx context.Context, start, end string) (*BacktestResult, error) {
	fetchTimes, err := b.store.DistinctFetchTimes(ctx, start, end)
	if err != nil {
		return nil, err
	}
	log.Info().Str("start", start).Str("end", end).Int("cycles", len(fetchTimes)).Msg("backtest start")

	result := &BacktestResult{
		Start:          start,
		End:            end,
		FetchCycles:    len(fetchTimes),
		SignalsByType:  make(map[string]int),
		SignalsBySport: make(map[string]int),
	}
	for _, fetchedAt := range fetchTimes {
		signals, err := b.pipeline.Run(ctx, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("backtest at %s: %w", fetchedAt, err)
		}
		result.TotalSignals += len(signals)
		for _, sig := range signals {
			result.SignalsByType[string(sig.Type)]++
			result.SignalsBySport[sig.SportKey]++
			result.Signals = append(result.Signals, sig)
		}
	}

	log.Info().Int("cycles", result.FetchCycles).Int("signals", result.TotalSignals).Msg("backtest complete")
	return result, nil
}
