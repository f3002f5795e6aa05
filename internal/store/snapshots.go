package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/models"
)

// InsertSnapshots bulk-inserts snapshot rows in one transaction, silently
// ignoring rows that collide on the uniqueness key. Returns the number
// actually inserted.
func (s *Store) InsertSnapshots(ctx context.Context, rows []models.Snapshot) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin insert snapshots: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO odds_snapshots
			(event_id, sport_key, home_team, away_team, commence_time,
			 bookmaker_key, market_key, outcome_name, price, point, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert snapshots: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range rows {
		r := &rows[i]
		res, err := stmt.ExecContext(ctx,
			r.EventID, r.SportKey, r.HomeTeam, r.AwayTeam, r.CommenceTime,
			r.BookmakerKey, r.MarketKey, r.OutcomeName, r.Price, r.Point, r.FetchedAt)
		if err != nil {
			return 0, fmt.Errorf("insert snapshot: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshots: %w", err)
	}

	log.Debug().Int("inserted", inserted).Int("total", len(rows)).Msg("snapshots inserted")
	return inserted, nil
}

// LatestSnapshots returns every row at the single most recent fetched_at
// seen for the event.
func (s *Store) LatestSnapshots(ctx context.Context, eventID string) ([]models.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []models.Snapshot
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM odds_snapshots
		WHERE event_id = ? AND fetched_at = (
			SELECT MAX(fetched_at) FROM odds_snapshots WHERE event_id = ?
		)`, eventID, eventID)
	if err != nil {
		return nil, fmt.Errorf("latest snapshots for %s: %w", eventID, err)
	}
	return rows, nil
}

// PreviousSnapshots returns, for each (bookmaker, market, outcome) with any
// row strictly before the given timestamp, the row at the greatest such
// fetched_at.
func (s *Store) PreviousSnapshots(ctx context.Context, eventID, before string) ([]models.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []models.Snapshot
	err := s.db.SelectContext(ctx, &rows, `
		SELECT s.* FROM odds_snapshots s
		INNER JOIN (
			SELECT bookmaker_key, market_key, outcome_name, MAX(fetched_at) AS prev_at
			FROM odds_snapshots
			WHERE event_id = ? AND fetched_at < ?
			GROUP BY bookmaker_key, market_key, outcome_name
		) prev ON s.event_id = ?
			AND s.bookmaker_key = prev.bookmaker_key
			AND s.market_key = prev.market_key
			AND s.outcome_name = prev.outcome_name
			AND s.fetched_at = prev.prev_at`, eventID, before, eventID)
	if err != nil {
		return nil, fmt.Errorf("previous snapshots for %s: %w", eventID, err)
	}
	return rows, nil
}

// SnapshotsSince returns every row for the event with fetched_at >= since,
// ascending by fetched_at.
func (s *Store) SnapshotsSince(ctx context.Context, eventID, since string) ([]models.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []models.Snapshot
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM odds_snapshots
		WHERE event_id = ? AND fetched_at >= ?
		ORDER BY fetched_at ASC`, eventID, since)
	if err != nil {
		return nil, fmt.Errorf("snapshots since for %s: %w", eventID, err)
	}
	return rows, nil
}

// DistinctEventIDsAt returns the ids of events having at least one row at
// exactly the given fetch timestamp.
func (s *Store) DistinctEventIDsAt(ctx context.Context, fetchedAt string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var ids []string
	err := s.db.SelectContext(ctx, &ids,
		`SELECT DISTINCT event_id FROM odds_snapshots WHERE fetched_at = ?`, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("distinct event ids: %w", err)
	}
	return ids, nil
}

// DistinctFetchTimes returns every distinct fetched_at in [start, end],
// ascending. Backtest replay walks this list.
func (s *Store) DistinctFetchTimes(ctx context.Context, start, end string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var times []string
	err := s.db.SelectContext(ctx, &times, `
		SELECT DISTINCT fetched_at FROM odds_snapshots
		WHERE fetched_at >= ? AND fetched_at <= ?
		ORDER BY fetched_at ASC`, start, end)
	if err != nil {
		return nil, fmt.Errorf("distinct fetch times: %w", err)
	}
	return times, nil
}

// ReferenceLine recovers the point in force at signal time for a
// spreads/totals side, preferring the sharp book and falling back to any
// bookmaker. ok is false when no row qualifies.
func (s *Store) ReferenceLine(ctx context.Context, eventID, marketKey, outcomeName, signalAt string) (point float64, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.db.GetContext(ctx, &point, `
		SELECT point FROM odds_snapshots
		WHERE event_id = ? AND market_key = ? AND outcome_name = ?
		  AND fetched_at <= ? AND point IS NOT NULL
		  AND bookmaker_key = ?
		ORDER BY fetched_at DESC
		LIMIT 1`, eventID, marketKey, outcomeName, signalAt, models.BookPinnacle)
	if err == nil {
		return point, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, fmt.Errorf("reference line for %s: %w", eventID, err)
	}

	err = s.db.GetContext(ctx, &point, `
		SELECT point FROM odds_snapshots
		WHERE event_id = ? AND market_key = ? AND outcome_name = ?
		  AND fetched_at <= ? AND point IS NOT NULL
		ORDER BY fetched_at DESC
		LIMIT 1`, eventID, marketKey, outcomeName, signalAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reference line for %s: %w", eventID, err)
	}
	return point, true, nil
}

// EventTeams returns (home, away) for an event from any of its snapshots.
func (s *Store) EventTeams(ctx context.Context, eventID string) (home, away string, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var row struct {
		Home string `db:"home_team"`
		Away string `db:"away_team"`
	}
	err = s.db.GetContext(ctx, &row,
		`SELECT home_team, away_team FROM odds_snapshots WHERE event_id = ? LIMIT 1`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("event teams for %s: %w", eventID, err)
	}
	return row.Home, row.Away, true, nil
}

// EventSportKey returns the sport key recorded for an event.
func (s *Store) EventSportKey(ctx context.Context, eventID string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var key string
	err := s.db.GetContext(ctx, &key,
		`SELECT sport_key FROM odds_snapshots WHERE event_id = ? LIMIT 1`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sport key for %s: %w", eventID, err)
	}
	return key, true, nil
}
