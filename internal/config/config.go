// Package config loads the YAML configuration with environment overrides
// for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sharpscan/sharpscan/internal/models"
)

// Config holds every recognized option. Keys mirror the YAML file.
type Config struct {
	// The Odds API
	OddsAPIKey            string   `yaml:"odds_api_key"`
	OddsAPIBaseURL        string   `yaml:"odds_api_base_url"`
	OddsAPIMonthlyCredits int      `yaml:"odds_api_monthly_credits"`
	Bookmakers            []string `yaml:"bookmakers"`
	Sports                []string `yaml:"sports"`

	// Discord webhooks: the default channel plus per-signal overrides.
	DiscordWebhookURL                string `yaml:"discord_webhook_url"`
	DiscordWebhookSteamMove          string `yaml:"discord_webhook_steam_move"`
	DiscordWebhookRapidChange        string `yaml:"discord_webhook_rapid_change"`
	DiscordWebhookPinnacleDivergence string `yaml:"discord_webhook_pinnacle_divergence"`
	DiscordWebhookReverseLine        string `yaml:"discord_webhook_reverse_line"`
	DiscordWebhookExchangeShift      string `yaml:"discord_webhook_exchange_shift"`

	// Polling
	PollIntervalMinutes int `yaml:"poll_interval_minutes"`
	QuietHoursStart     int `yaml:"quiet_hours_start"`
	QuietHoursEnd       int `yaml:"quiet_hours_end"`

	// Detection thresholds
	SteamMinBooks            int     `yaml:"steam_min_books"`
	SteamWindowMinutes       int     `yaml:"steam_window_minutes"`
	RapidSpreadThreshold     float64 `yaml:"rapid_spread_threshold"`
	RapidMLThreshold         float64 `yaml:"rapid_ml_threshold"`
	PinnacleSpreadThreshold  float64 `yaml:"pinnacle_spread_threshold"`
	PinnacleMLProbThreshold  float64 `yaml:"pinnacle_ml_prob_threshold"`
	ExchangeShiftThreshold   float64 `yaml:"exchange_shift_threshold"`
	MinSignalStrength        float64 `yaml:"min_signal_strength"`

	// Alert dedup
	AlertCooldownMinutes int `yaml:"alert_cooldown_minutes"`

	// Job hours (UTC)
	GraderHourUTC       int    `yaml:"grader_hour_utc"`
	ReportHourUTC       int    `yaml:"report_hour_utc"`
	WeeklyReportWeekday string `yaml:"weekly_report_weekday"`

	// Storage / logging / ops
	DBPath      string `yaml:"db_path"`
	LogLevel    string `yaml:"log_level"`
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads the YAML file at path (missing file is fine: defaults plus
// environment), applies env overrides for secrets, and validates.
// Defaults are seeded before unmarshal so an explicit zero in the file
// (a midnight job hour, a zero strength floor) is kept, not re-defaulted.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaultConfig()
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"ODDS_API_KEY":                        &cfg.OddsAPIKey,
		"DISCORD_WEBHOOK_URL":                 &cfg.DiscordWebhookURL,
		"DISCORD_WEBHOOK_STEAM_MOVE":          &cfg.DiscordWebhookSteamMove,
		"DISCORD_WEBHOOK_RAPID_CHANGE":        &cfg.DiscordWebhookRapidChange,
		"DISCORD_WEBHOOK_PINNACLE_DIVERGENCE": &cfg.DiscordWebhookPinnacleDivergence,
		"DISCORD_WEBHOOK_REVERSE_LINE":        &cfg.DiscordWebhookReverseLine,
		"DISCORD_WEBHOOK_EXCHANGE_SHIFT":      &cfg.DiscordWebhookExchangeShift,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
}

// defaultConfig is the baseline every load starts from. Unmarshal only
// touches keys present in the file, so unset keys keep these values.
// Quiet hours default to 0/0, i.e. disabled.
func defaultConfig() *Config {
	return &Config{
		OddsAPIBaseURL:        "https://api.the-odds-api.com/v4",
		OddsAPIMonthlyCredits: 500,
		Bookmakers: []string{
			"draftkings", "fanduel", "betmgm", "caesars", "williamhill_us",
			models.BookPinnacle, models.BookBetfair,
		},
		Sports:                  []string{"americanfootball_nfl", "basketball_nba", "baseball_mlb"},
		PollIntervalMinutes:     20,
		SteamMinBooks:           3,
		SteamWindowMinutes:      30,
		RapidSpreadThreshold:    0.5,
		RapidMLThreshold:        20.0,
		PinnacleSpreadThreshold: 0.5,
		PinnacleMLProbThreshold: 0.03,
		ExchangeShiftThreshold:  0.05,
		MinSignalStrength:       0.3,
		AlertCooldownMinutes:    60,
		GraderHourUTC:           14,
		ReportHourUTC:           15,
		WeeklyReportWeekday:     "Monday",
		DBPath:                  "sharpscan.db",
		LogLevel:                "info",
	}
}

func (c *Config) validate() error {
	if c.OddsAPIKey == "" {
		return errors.New("odds_api_key is required (config or ODDS_API_KEY)")
	}
	if c.DiscordWebhookURL == "" {
		return errors.New("discord_webhook_url is required (config or DISCORD_WEBHOOK_URL)")
	}
	if c.QuietHoursStart < 0 || c.QuietHoursStart > 23 || c.QuietHoursEnd < 0 || c.QuietHoursEnd > 23 {
		return errors.New("quiet hours must be UTC hours in [0, 23]")
	}
	if _, err := c.WeeklyWeekday(); err != nil {
		return err
	}
	return nil
}

// PollInterval returns the poll cadence as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMinutes) * time.Minute
}

// SteamWindow returns the steam/reverse-line lookback as a duration.
func (c *Config) SteamWindow() time.Duration {
	return time.Duration(c.SteamWindowMinutes) * time.Minute
}

// AlertCooldown returns the dedup window as a duration.
func (c *Config) AlertCooldown() time.Duration {
	return time.Duration(c.AlertCooldownMinutes) * time.Minute
}

// WeeklyWeekday parses the weekly report weekday name.
func (c *Config) WeeklyWeekday() (time.Weekday, error) {
	name := strings.ToLower(c.WeeklyReportWeekday)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == name {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekly_report_weekday %q", c.WeeklyReportWeekday)
}

// WebhookFor returns the webhook URL for a signal type, falling back to
// the default channel.
func (c *Config) WebhookFor(t models.SignalType) string {
	var url string
	switch t {
	case models.SignalSteamMove:
		url = c.DiscordWebhookSteamMove
	case models.SignalRapidChange:
		url = c.DiscordWebhookRapidChange
	case models.SignalPinnacleDivergence:
		url = c.DiscordWebhookPinnacleDivergence
	case models.SignalReverseLine:
		url = c.DiscordWebhookReverseLine
	case models.SignalExchangeShift:
		url = c.DiscordWebhookExchangeShift
	}
	if url == "" {
		url = c.DiscordWebhookURL
	}
	return url
}

// InQuietHours reports whether t falls inside [quiet_hours_start,
// quiet_hours_end) UTC, wrapping across midnight when start > end.
// Equal start and end disables quiet hours.
func (c *Config) InQuietHours(t time.Time) bool {
	h := t.UTC().Hour()
	start, end := c.QuietHoursStart, c.QuietHoursEnd
	switch {
	case start == end:
		return false
	case start < end:
		return h >= start && h < end
	default:
		return h >= start || h < end
	}
}
