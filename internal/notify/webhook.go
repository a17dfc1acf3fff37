package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"dota-tracker/internal/constants"
)

const (
	colorGreen = 5763719  // wins, summaries
	colorRed   = 15158332 // losses
	colorGold  = 15844367 // multi-kills
	colorBlue  = 3447003  // live match, stat changes

	maxSendTries = 3
)

// WebhookDispatcher posts events to a Discord-compatible webhook.
type WebhookDispatcher struct {
	url    string
	client *http.Client
	logger zerolog.Logger
}

func NewWebhookDispatcher(url string, logger zerolog.Logger) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:    url,
		client: &http.Client{Timeout: constants.WebhookTimeout},
		logger: logger.With().Str("component", "webhook").Logger(),
	}
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

type embed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// Send delivers one event, retrying transient failures with exponential
// backoff. A 4xx other than 429 is permanent and fails immediately.
func (d *WebhookDispatcher) Send(ctx context.Context, event Event) error {
	body, err := json.Marshal(buildPayload(event))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	backoff := retry.WithMaxRetries(maxSendTries, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return d.post(ctx, body)
	})
	if err != nil {
		d.logger.Error().Err(err).Str("event", event.Kind()).Msg("webhook delivery failed")
		return fmt.Errorf("send %s: %w", event.Kind(), err)
	}
	d.logger.Debug().Str("event", event.Kind()).Msg("notification sent")
	return nil
}

func (d *WebhookDispatcher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return retry.RetryableError(fmt.Errorf("webhook status %d", resp.StatusCode))
	default:
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
}

func buildPayload(event Event) webhookPayload {
	e := embed{
		Description: event.Message(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	switch ev := event.(type) {
	case NewMatch:
		e.Title = "Match finished"
		e.Color = colorRed
		if ev.Match.Player.IsVictory {
			e.Color = colorGreen
		}
	case MultiKill:
		e.Title = "Multi-kill!"
		e.Color = colorGold
	case LiveMatchEntry:
		e.Title = "Live match"
		e.Color = colorBlue
	case StatChange:
		e.Title = "Stats changed"
		e.Color = colorBlue
	case DailySummary:
		e.Title = "Daily summary"
		e.Color = colorGreen
	}
	return webhookPayload{Embeds: []embed{e}}
}
