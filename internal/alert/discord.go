package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sharpscan/sharpscan/internal/config"
	"github.com/sharpscan/sharpscan/internal/models"
)

// AlertRecorder is the ledger the sink writes dispatched alerts into.
type AlertRecorder interface {
	RecordAlert(ctx context.Context, eventID, alertType, marketKey, outcomeName, detailsJSON string) error
}

// DiscordSink posts embeds to the configured webhooks and records each
// dispatched signal so the pipeline's cooldown sees it.
type DiscordSink struct {
	cfg    *config.Config
	store  AlertRecorder
	client *http.Client
}

func NewDiscordSink(cfg *config.Config, store AlertRecorder) *DiscordSink {
	return &DiscordSink{
		cfg:    cfg,
		store:  store,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// SendSignals dispatches each signal as one embed to its type's webhook
// and records it in the alert ledger. A failure on one signal does not
// stop the rest; the count of dispatched signals is returned.
func (s *DiscordSink) SendSignals(ctx context.Context, signals []models.Signal) (int, error) {
	sent := 0
	for _, sig := range signals {
		embed := SignalEmbed(sig, time.Now())
		if err := s.Post(ctx, s.cfg.WebhookFor(sig.Type), embed); err != nil {
			log.Error().Err(err).
				Str("signal_type", string(sig.Type)).
				Str("event_id", sig.EventID).
				Msg("alert dispatch failed")
			continue
		}
		sent++

		detailsJSON, err := json.Marshal(sig.Details)
		if err != nil {
			log.Error().Err(err).Str("event_id", sig.EventID).Msg("details marshal failed")
			detailsJSON = []byte("{}")
		}
		if err := s.store.RecordAlert(ctx, sig.EventID, string(sig.Type),
			sig.MarketKey, sig.OutcomeName, string(detailsJSON)); err != nil {
			log.Error().Err(err).Str("event_id", sig.EventID).Msg("alert record failed")
			continue
		}
		log.Info().
			Str("signal_type", string(sig.Type)).
			Str("event_id", sig.EventID).
			Str("outcome", sig.OutcomeName).
			Msg("alert sent")
	}
	return sent, nil
}

// Notify posts a plain operational message to the default webhook.
func (s *DiscordSink) Notify(ctx context.Context, title, message string) error {
	return s.Post(ctx, s.cfg.DiscordWebhookURL, Embed{
		Title:       title,
		Description: message,
		Color:       defaultColor,
		Timestamp:   models.FormatTime(time.Now()),
		Footer:      &Footer{Text: footerText},
	})
}

// Post sends one webhook message carrying the given embeds. Dispatch
// succeeded when the webhook answers below 400.
func (s *DiscordSink) Post(ctx context.Context, webhookURL string, embeds ...Embed) error {
	payload, err := json.Marshal(map[string]any{"embeds": embeds})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
