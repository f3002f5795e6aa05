// Package store is the SQLite persistence layer: odds snapshots, the
// sent-alert ledger, the API credit ledger, and signal results.
package store

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	_ "modernc.org/sqlite"
)

const defaultTimeout = 5 * time.Second

func init() {
	// The modernc driver registers as "sqlite"; sqlx only knows "sqlite3".
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Store wraps a single SQLite database. Writes are serialized through one
// connection; every mutating call commits before returning.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	log.Info().Str("path", path).Msg("database opened")
	return &Store{db: db, timeout: defaultTimeout}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS odds_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	sport_key TEXT NOT NULL,
	home_team TEXT NOT NULL,
	away_team TEXT NOT NULL,
	commence_time TEXT NOT NULL,
	bookmaker_key TEXT NOT NULL,
	market_key TEXT NOT NULL,
	outcome_name TEXT NOT NULL,
	price REAL NOT NULL,
	point REAL,
	fetched_at TEXT NOT NULL,
	UNIQUE(event_id, bookmaker_key, market_key, outcome_name, fetched_at)
);

CREATE TABLE IF NOT EXISTS sent_alerts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	alert_type TEXT NOT NULL,
	market_key TEXT NOT NULL,
	outcome_name TEXT NOT NULL,
	sent_at TEXT NOT NULL,
	details_json TEXT
);

CREATE TABLE IF NOT EXISTS api_usage (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT NOT NULL,
	endpoint TEXT NOT NULL,
	credits_used INTEGER NOT NULL,
	credits_remaining INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS signal_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_id TEXT NOT NULL,
	signal_type TEXT NOT NULL,
	market_key TEXT NOT NULL,
	outcome_name TEXT NOT NULL,
	signal_direction TEXT NOT NULL,
	signal_strength REAL NOT NULL,
	signal_at TEXT NOT NULL,
	details_json TEXT,
	result TEXT,
	resolved_at TEXT,
	UNIQUE(event_id, signal_type, market_key, outcome_name, signal_at)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_event_fetched
	ON odds_snapshots(event_id, fetched_at);

CREATE INDEX IF NOT EXISTS idx_snapshots_fetched
	ON odds_snapshots(fetched_at);

CREATE INDEX IF NOT EXISTS idx_alerts_dedup
	ON sent_alerts(event_id, alert_type, market_key, outcome_name, sent_at);

CREATE INDEX IF NOT EXISTS idx_results_unresolved
	ON signal_results(result) WHERE result IS NULL;
`
