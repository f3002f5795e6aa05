// Package alert renders signals as Discord embeds and posts them to the
// configured webhooks.
package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/sharpscan/sharpscan/internal/models"
)

// Embed colors by signal type, defaultColor for everything else.
const (
	colorSteam    = 0xFF4500
	colorRapid    = 0xFFD700
	colorPinnacle = 0x4169E1
	colorReverse  = 0x8A2BE2
	colorExchange = 0x2ECC71

	defaultColor = 0x95A5A6
	footerText   = "sharpscan"
)

// Embed is the Discord embed payload.
type Embed struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       int     `json:"color"`
	Fields      []Field `json:"fields,omitempty"`
	Timestamp   string  `json:"timestamp,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type Footer struct {
	Text string `json:"text"`
}

func colorFor(t models.SignalType) int {
	switch t {
	case models.SignalSteamMove:
		return colorSteam
	case models.SignalRapidChange:
		return colorRapid
	case models.SignalPinnacleDivergence:
		return colorPinnacle
	case models.SignalReverseLine:
		return colorReverse
	case models.SignalExchangeShift:
		return colorExchange
	}
	return defaultColor
}

// SignalEmbed renders one signal as an alert embed.
func SignalEmbed(sig models.Signal, now time.Time) Embed {
	e := Embed{
		Title:       sig.Type.Label() + " Detected",
		Description: sig.Description,
		Color:       colorFor(sig.Type),
		Timestamp:   models.FormatTime(now),
		Footer:      &Footer{Text: footerText},
		Fields: []Field{
			{Name: "Sport", Value: sig.SportKey, Inline: true},
			{Name: "Matchup", Value: fmt.Sprintf("%s @ %s", sig.AwayTeam, sig.HomeTeam), Inline: true},
			{Name: "Market", Value: sig.MarketKey, Inline: true},
			{Name: "Outcome", Value: sig.OutcomeName, Inline: true},
			{Name: "Strength", Value: fmt.Sprintf("%.0f%%", sig.Strength*100), Inline: true},
		},
	}
	if f, ok := detailsField(sig.Details); ok {
		e.Fields = append(e.Fields, f)
	}
	return e
}

func detailsField(details models.Details) (Field, bool) {
	switch d := details.(type) {
	case *models.SteamDetails:
		if len(d.BookDetails) == 0 {
			return Field{}, false
		}
		lines := make([]string, 0, len(d.BookDetails))
		for _, b := range d.BookDetails {
			lines = append(lines, fmt.Sprintf("  %s: %+.1f", b.Bookmaker, b.Delta))
		}
		return Field{Name: "Book Movements", Value: strings.Join(lines, "\n")}, true
	case *models.RapidDetails:
		return Field{
			Name:  "Details",
			Value: fmt.Sprintf("Book: %s | Delta: %g", d.Bookmaker, d.Delta),
		}, true
	case *models.PinnacleDetails:
		return Field{
			Name:  "Details",
			Value: fmt.Sprintf("%s: %g vs Pinnacle: %g", d.USBook, d.USValue, d.PinnacleValue),
		}, true
	case *models.ReverseDetails:
		return Field{
			Name: "Details",
			Value: fmt.Sprintf("US (%s): %s | Pinnacle: %s",
				strings.Join(d.USMovers, ", "), d.USDirection, d.PinnacleDirection),
		}, true
	case *models.ExchangeDetails:
		return Field{
			Name:  "Details",
			Value: fmt.Sprintf("Betfair %s | Probability shift: %.1f%%", d.Direction, d.Shift*100),
		}, true
	}
	return Field{}, false
}
