package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sharpscan/sharpscan/internal/models"
)

// ResultCounts tallies graded outcomes for one grouping key.
type ResultCounts struct {
	Won   int
	Lost  int
	Push  int
	Total int
}

// WinRate returns won / (won + lost), or 0 when nothing is decided.
func (c ResultCounts) WinRate() float64 {
	decided := c.Won + c.Lost
	if decided == 0 {
		return 0
	}
	return float64(c.Won) / float64(decided)
}

// RecordSignalResult persists a detected signal with a null result.
// Duplicate signals (same uniqueness tuple) are ignored.
func (s *Store) RecordSignalResult(ctx context.Context, r models.SignalResult) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO signal_results
			(event_id, signal_type, market_key, outcome_name,
			 signal_direction, signal_strength, signal_at, details_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.EventID, r.SignalType, r.MarketKey, r.OutcomeName,
		r.SignalDirection, r.SignalStrength, r.SignalAt, r.DetailsJSON)
	if err != nil {
		return fmt.Errorf("record signal result: %w", err)
	}
	return nil
}

// ResolveSignal sets the graded result exactly once.
func (s *Store) ResolveSignal(ctx context.Context, eventID, signalType, marketKey, outcomeName, signalAt, result string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		UPDATE signal_results
		SET result = ?, resolved_at = ?
		WHERE event_id = ? AND signal_type = ? AND market_key = ?
		  AND outcome_name = ? AND signal_at = ? AND result IS NULL`,
		result, models.FormatTime(time.Now()),
		eventID, signalType, marketKey, outcomeName, signalAt)
	if err != nil {
		return fmt.Errorf("resolve signal: %w", err)
	}
	return nil
}

// UnresolvedSignals returns every signal still awaiting grading.
func (s *Store) UnresolvedSignals(ctx context.Context) ([]models.SignalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []models.SignalResult
	err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM signal_results WHERE result IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("unresolved signals: %w", err)
	}
	return rows, nil
}

// PerformanceStats groups graded outcomes by signal type. since may be
// empty to cover all time.
func (s *Store) PerformanceStats(ctx context.Context, since string) (map[string]ResultCounts, error) {
	return s.statsBy(ctx, "signal_type", since, "")
}

// PerformanceStatsByMarket groups graded outcomes by market key,
// optionally restricted to one signal type.
func (s *Store) PerformanceStatsByMarket(ctx context.Context, since, signalType string) (map[string]ResultCounts, error) {
	return s.statsBy(ctx, "market_key", since, signalType)
}

func (s *Store) statsBy(ctx context.Context, column, since, signalType string) (map[string]ResultCounts, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT ` + column + ` AS grp, result, COUNT(*) AS cnt
		FROM signal_results WHERE result IS NOT NULL`
	args := []any{}
	if since != "" {
		query += ` AND signal_at >= ?`
		args = append(args, since)
	}
	if signalType != "" {
		query += ` AND signal_type = ?`
		args = append(args, signalType)
	}
	query += ` GROUP BY grp, result`

	var rows []struct {
		Grp    string `db:"grp"`
		Result string `db:"result"`
		Cnt    int    `db:"cnt"`
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("performance stats by %s: %w", column, err)
	}

	stats := make(map[string]ResultCounts)
	for _, row := range rows {
		c := stats[row.Grp]
		switch row.Result {
		case models.ResultWon:
			c.Won += row.Cnt
		case models.ResultLost:
			c.Lost += row.Cnt
		case models.ResultPush:
			c.Push += row.Cnt
		}
		c.Total += row.Cnt
		stats[row.Grp] = c
	}
	return stats, nil
}

// ResolvedSignalsSince returns graded signals resolved at or after the
// timestamp, newest first, optionally filtered by signal type.
func (s *Store) ResolvedSignalsSince(ctx context.Context, since, signalType string) ([]models.SignalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `SELECT * FROM signal_results
		WHERE result IS NOT NULL AND resolved_at >= ?`
	args := []any{since}
	if signalType != "" {
		query += ` AND signal_type = ?`
		args = append(args, signalType)
	}
	query += ` ORDER BY resolved_at DESC`

	var rows []models.SignalResult
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("resolved signals: %w", err)
	}
	return rows, nil
}

// SignalCountSince counts signals recorded at or after the timestamp.
func (s *Store) SignalCountSince(ctx context.Context, since string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int
	if err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM signal_results WHERE signal_at >= ?`, since); err != nil {
		return 0, fmt.Errorf("signal count: %w", err)
	}
	return n, nil
}
