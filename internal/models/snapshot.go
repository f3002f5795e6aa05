package models

import "time"

// Market keys served by the upstream odds API.
const (
	MarketH2H     = "h2h"
	MarketSpreads = "spreads"
	MarketTotals  = "totals"
)

// Outcome names used by totals markets.
const (
	OutcomeOver  = "Over"
	OutcomeUnder = "Under"
)

// Bookmaker keys with special roles in detection.
const (
	BookPinnacle = "pinnacle"
	BookBetfair  = "betfair_ex_eu"
)

// USBooks is the retail bookmaker subset scanned for value lines.
var USBooks = map[string]bool{
	"draftkings":     true,
	"fanduel":        true,
	"betmgm":         true,
	"caesars":        true,
	"williamhill_us": true,
}

// TimeFormat is the canonical timestamp layout for every persisted
// timestamp. Always UTC so lexicographic order equals chronological order.
const TimeFormat = time.RFC3339

// FormatTime renders t in the canonical layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a canonical timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeFormat, s)
}

// Snapshot is one append-only odds fact row: the price (and point, for
// spreads/totals) a bookmaker offered for one outcome at one fetch time.
type Snapshot struct {
	ID           int64    `db:"id" json:"-"`
	EventID      string   `db:"event_id" json:"event_id"`
	SportKey     string   `db:"sport_key" json:"sport_key"`
	HomeTeam     string   `db:"home_team" json:"home_team"`
	AwayTeam     string   `db:"away_team" json:"away_team"`
	CommenceTime string   `db:"commence_time" json:"commence_time"`
	BookmakerKey string   `db:"bookmaker_key" json:"bookmaker_key"`
	MarketKey    string   `db:"market_key" json:"market_key"`
	OutcomeName  string   `db:"outcome_name" json:"outcome_name"`
	Price        float64  `db:"price" json:"price"`
	Point        *float64 `db:"point" json:"point,omitempty"`
	FetchedAt    string   `db:"fetched_at" json:"fetched_at"`
}

// SignalResult is a persisted signal awaiting (or holding) a graded outcome.
type SignalResult struct {
	ID              int64   `db:"id"`
	EventID         string  `db:"event_id"`
	SignalType      string  `db:"signal_type"`
	MarketKey       string  `db:"market_key"`
	OutcomeName     string  `db:"outcome_name"`
	SignalDirection string  `db:"signal_direction"`
	SignalStrength  float64 `db:"signal_strength"`
	SignalAt        string  `db:"signal_at"`
	DetailsJSON     *string `db:"details_json"`
	Result          *string `db:"result"`
	ResolvedAt      *string `db:"resolved_at"`
}

// Grading outcomes.
const (
	ResultWon  = "won"
	ResultLost = "lost"
	ResultPush = "push"
)
