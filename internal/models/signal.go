package models

import "fmt"

// SignalType identifies a detector family.
type SignalType string

const (
	SignalSteamMove          SignalType = "steam_move"
	SignalRapidChange        SignalType = "rapid_change"
	SignalPinnacleDivergence SignalType = "pinnacle_divergence"
	SignalReverseLine        SignalType = "reverse_line"
	SignalExchangeShift      SignalType = "exchange_shift"
)

// Label returns the human-readable name for a signal type.
func (t SignalType) Label() string {
	switch t {
	case SignalSteamMove:
		return "Steam Move"
	case SignalRapidChange:
		return "Rapid Line Change"
	case SignalPinnacleDivergence:
		return "Pinnacle Divergence"
	case SignalReverseLine:
		return "Reverse Line Movement"
	case SignalExchangeShift:
		return "Exchange Shift"
	}
	return string(t)
}

// Signal is a detector finding on one side of one market. The Details
// variant carries the kind-specific payload.
type Signal struct {
	Type        SignalType
	EventID     string
	SportKey    string
	HomeTeam    string
	AwayTeam    string
	MarketKey   string
	OutcomeName string
	Strength    float64
	Description string
	Details     Details
}

// Details is the kind-specific payload of a Signal. Exactly one concrete
// type exists per SignalType.
type Details interface {
	Kind() SignalType
	// DirectionLabel is the directional tag recorded with the signal result.
	DirectionLabel() string
	// ValueBookCount feeds the fallback mirror-collapse preference.
	ValueBookCount() int
}

// ValueBook is a bookmaker still offering a favorable (stale) line.
type ValueBook struct {
	Bookmaker   string   `json:"bookmaker"`
	Price       float64  `json:"price,omitempty"`
	Point       *float64 `json:"point,omitempty"`
	Line        *float64 `json:"current_line,omitempty"`
	ImpliedProb float64  `json:"implied_prob,omitempty"`
}

// BookMove records one aligned bookmaker's movement inside a steam move.
type BookMove struct {
	Bookmaker string   `json:"bookmaker"`
	Delta     float64  `json:"delta"`
	Price     float64  `json:"price"`
	Point     *float64 `json:"point,omitempty"`
}

// SteamDetails: several books moved the same line the same way in a window.
type SteamDetails struct {
	Direction   string      `json:"direction"` // "up" or "down"
	BooksMoved  int         `json:"books_moved"`
	TotalBooks  int         `json:"total_books"`
	AvgDelta    float64     `json:"avg_delta"`
	BookDetails []BookMove  `json:"book_details"`
	ValueBooks  []ValueBook `json:"value_books"`
}

func (d *SteamDetails) Kind() SignalType       { return SignalSteamMove }
func (d *SteamDetails) DirectionLabel() string { return d.Direction }
func (d *SteamDetails) ValueBookCount() int    { return len(d.ValueBooks) }

// RapidDetails: one book jumped a line between consecutive polls.
// Delta is signed; threshold comparisons use its magnitude.
type RapidDetails struct {
	Bookmaker  string      `json:"bookmaker"`
	OldPrice   float64     `json:"old_price"`
	NewPrice   float64     `json:"new_price"`
	OldPoint   *float64    `json:"old_point,omitempty"`
	NewPoint   *float64    `json:"new_point,omitempty"`
	Delta      float64     `json:"delta"`
	ValueBooks []ValueBook `json:"value_books"`
}

func (d *RapidDetails) Kind() SignalType { return SignalRapidChange }
func (d *RapidDetails) DirectionLabel() string {
	if d.Delta > 0 {
		return "up"
	}
	return "down"
}
func (d *RapidDetails) ValueBookCount() int { return len(d.ValueBooks) }

// PinnacleDetails: a retail book strayed from the sharp reference line
// on the side favorable to the bettor.
type PinnacleDetails struct {
	USBook        string  `json:"us_book"`
	USValue       float64 `json:"us_value"`
	PinnacleValue float64 `json:"pinnacle_value"`
	USProb        float64 `json:"us_implied_prob,omitempty"`
	PinnacleProb  float64 `json:"pinnacle_implied_prob,omitempty"`
	Delta         float64 `json:"delta"`
}

func (d *PinnacleDetails) Kind() SignalType       { return SignalPinnacleDivergence }
func (d *PinnacleDetails) DirectionLabel() string { return "value" }
func (d *PinnacleDetails) ValueBookCount() int    { return 1 }

// ReverseDetails: retail consensus moved against the sharp book.
type ReverseDetails struct {
	USDirection       string      `json:"us_direction"`
	USAvgDelta        float64     `json:"us_avg_delta"`
	USMovers          []string    `json:"us_movers"`
	PinnacleDirection string      `json:"pinnacle_direction"`
	PinnacleDelta     float64     `json:"pinnacle_delta"`
	BetDirection      string      `json:"bet_direction"`
	ValueBooks        []ValueBook `json:"value_books"`
}

func (d *ReverseDetails) Kind() SignalType { return SignalReverseLine }
func (d *ReverseDetails) DirectionLabel() string {
	return fmt.Sprintf("us:%s_pin:%s", d.USDirection, d.PinnacleDirection)
}
func (d *ReverseDetails) ValueBookCount() int { return len(d.ValueBooks) }

// ExchangeDetails: the exchange's implied probability shifted sharply.
type ExchangeDetails struct {
	OldPrice   float64     `json:"old_price"`
	NewPrice   float64     `json:"new_price"`
	OldProb    float64     `json:"old_implied_prob"`
	NewProb    float64     `json:"new_implied_prob"`
	Shift      float64     `json:"shift"`
	Direction  string      `json:"direction"` // "shortened" or "drifted"
	ValueBooks []ValueBook `json:"value_books"`
}

func (d *ExchangeDetails) Kind() SignalType       { return SignalExchangeShift }
func (d *ExchangeDetails) DirectionLabel() string { return d.Direction }
func (d *ExchangeDetails) ValueBookCount() int    { return len(d.ValueBooks) }
