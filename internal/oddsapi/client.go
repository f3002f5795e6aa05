// Package oddsapi is the client for The Odds API v4: active sports, odds
// per sport, and final scores, with credit-header accounting.
package oddsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const markets = "h2h,spreads,totals"

// UsageRecorder receives the credit counters carried on upstream
// response headers.
type UsageRecorder interface {
	RecordAPIUsage(ctx context.Context, endpoint string, creditsUsed, creditsRemaining int) error
}

// Client talks to The Odds API. Calls share a request pacer and a circuit
// breaker so a flapping upstream fails fast instead of burning credits.
type Client struct {
	baseURL    string
	apiKey     string
	bookmakers []string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	usage      UsageRecorder
}

// NewClient builds a client. usage may be nil to skip credit accounting.
func NewClient(baseURL, apiKey string, bookmakers []string, usage UsageRecorder) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		bookmakers: bookmakers,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "odds-api",
			Timeout: 60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		usage: usage,
	}
}

// ActiveSports fetches the sports listing (a free endpoint upstream).
func (c *Client) ActiveSports(ctx context.Context) ([]Sport, error) {
	var sports []Sport
	if err := c.getJSON(ctx, "/sports", nil, &sports); err != nil {
		return nil, fmt.Errorf("active sports: %w", err)
	}
	return sports, nil
}

// Odds fetches american-odds lines for one sport across the configured
// bookmakers and the three target markets.
func (c *Client) Odds(ctx context.Context, sportKey string) ([]Event, error) {
	params := url.Values{
		"markets":    {markets},
		"bookmakers": {strings.Join(c.bookmakers, ",")},
		"oddsFormat": {"american"},
	}
	var events []Event
	if err := c.getJSON(ctx, "/sports/"+sportKey+"/odds", params, &events); err != nil {
		return nil, fmt.Errorf("odds for %s: %w", sportKey, err)
	}
	return events, nil
}

// Scores fetches final scores for a sport looking back daysFrom days.
func (c *Client) Scores(ctx context.Context, sportKey string, daysFrom int) ([]ScoreEvent, error) {
	params := url.Values{"daysFrom": {strconv.Itoa(daysFrom)}}
	var games []ScoreEvent
	if err := c.getJSON(ctx, "/sports/"+sportKey+"/scores", params, &games); err != nil {
		return nil, fmt.Errorf("scores for %s: %w", sportKey, err)
	}
	return games, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	body, err := c.breaker.Execute(func() (any, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		c.trackCredits(ctx, endpoint, resp)

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("status %d: %s", resp.StatusCode, truncate(data, 200))
		}
		return data, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(body.([]byte), out)
}

// trackCredits records the x-requests-used / x-requests-remaining counters
// verbatim when both are present.
func (c *Client) trackCredits(ctx context.Context, endpoint string, resp *http.Response) {
	if c.usage == nil {
		return
	}
	usedHdr := resp.Header.Get("x-requests-used")
	remainingHdr := resp.Header.Get("x-requests-remaining")
	if usedHdr == "" || remainingHdr == "" {
		return
	}
	used, err1 := strconv.Atoi(usedHdr)
	remaining, err2 := strconv.Atoi(remainingHdr)
	if err1 != nil || err2 != nil {
		return
	}
	if err := c.usage.RecordAPIUsage(ctx, endpoint, used, remaining); err != nil {
		log.Warn().Err(err).Str("endpoint", endpoint).Msg("recording api usage failed")
		return
	}
	log.Info().Str("endpoint", endpoint).Int("used", used).Int("remaining", remaining).Msg("api credits")
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
