package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sharpscan/sharpscan/internal/models"
)

// RecordAlert appends a dispatched alert to the dedup ledger.
func (s *Store) RecordAlert(ctx context.Context, eventID, alertType, marketKey, outcomeName, detailsJSON string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sent_alerts (event_id, alert_type, market_key, outcome_name, sent_at, details_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		eventID, alertType, marketKey, outcomeName, models.FormatTime(time.Now()), detailsJSON)
	if err != nil {
		return fmt.Errorf("record alert: %w", err)
	}
	return nil
}

// AlertSentRecently reports whether an alert for this exact
// (event, type, market, outcome) was dispatched within the cooldown.
func (s *Store) AlertSentRecently(ctx context.Context, eventID, alertType, marketKey, outcomeName string, cooldown time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := models.FormatTime(time.Now().Add(-cooldown))
	var one int
	err := s.db.GetContext(ctx, &one, `
		SELECT 1 FROM sent_alerts
		WHERE event_id = ? AND alert_type = ? AND market_key = ? AND outcome_name = ?
		  AND sent_at >= ?
		LIMIT 1`, eventID, alertType, marketKey, outcomeName, cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("alert dedup lookup: %w", err)
	}
	return true, nil
}

// MarketAlertedRecently is the market-level variant: any outcome of the
// market counts.
func (s *Store) MarketAlertedRecently(ctx context.Context, eventID, alertType, marketKey string, cooldown time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := models.FormatTime(time.Now().Add(-cooldown))
	var one int
	err := s.db.GetContext(ctx, &one, `
		SELECT 1 FROM sent_alerts
		WHERE event_id = ? AND alert_type = ? AND market_key = ?
		  AND sent_at >= ?
		LIMIT 1`, eventID, alertType, marketKey, cutoff)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("market alert dedup lookup: %w", err)
	}
	return true, nil
}

// AlertsCountSince counts alerts dispatched at or after the timestamp.
func (s *Store) AlertsCountSince(ctx context.Context, since string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int
	if err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM sent_alerts WHERE sent_at >= ?`, since); err != nil {
		return 0, fmt.Errorf("alerts count: %w", err)
	}
	return n, nil
}

// RecordAPIUsage appends one credit-header observation to the budget ledger.
func (s *Store) RecordAPIUsage(ctx context.Context, endpoint string, creditsUsed, creditsRemaining int) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_usage (timestamp, endpoint, credits_used, credits_remaining)
		VALUES (?, ?, ?, ?)`,
		models.FormatTime(time.Now()), endpoint, creditsUsed, creditsRemaining)
	if err != nil {
		return fmt.Errorf("record api usage: %w", err)
	}
	return nil
}

// CreditsRemaining returns the balance from the most recent ledger row.
// ok is false when the ledger is empty.
func (s *Store) CreditsRemaining(ctx context.Context) (remaining int, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.db.GetContext(ctx, &remaining,
		`SELECT credits_remaining FROM api_usage ORDER BY id DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("credits remaining: %w", err)
	}
	return remaining, true, nil
}

// PollCountSince counts API usage rows recorded at or after the timestamp.
func (s *Store) PollCountSince(ctx context.Context, since string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var n int
	if err := s.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM api_usage WHERE timestamp >= ?`, since); err != nil {
		return 0, fmt.Errorf("poll count: %w", err)
	}
	return n, nil
}
