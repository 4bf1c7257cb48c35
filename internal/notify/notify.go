package notify

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// Event is one treasury state transition published to external monitoring.
type Event struct {
	Type   string         `json:"type"`
	At     time.Time      `json:"at"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Emitter is what the treasury service publishes through. Emission is
// fire-and-forget: it never blocks or fails the transaction that produced
// the event.
type Emitter interface {
	Emit(event Event)
}

// Dispatcher fans events out to the configured webhook and telegram sinks in
// a background goroutine. Delivery failures are logged and dropped.
type Dispatcher struct {
	Logger  *zap.Logger
	Project string

	WebhookURL string
	Webhook    WebhookSender

	TelegramToken  string
	TelegramChatID string
	Telegram       TelegramSender

	Disabled bool
	Timeout  time.Duration
}

func (d *Dispatcher) Emit(event Event) {
	if d == nil || d.Disabled {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	go d.dispatch(event)
}

func (d *Dispatcher) dispatch(event Event) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if d.WebhookURL != "" {
		raw, _ := json.Marshal(event.Fields)
		err := d.Webhook.Send(ctx, d.WebhookURL, WebhookPayload{
			Project: d.Project,
			Event:   event.Type,
			Message: string(raw),
		})
		if err != nil && d.Logger != nil {
			d.Logger.Warn("notify: webhook delivery failed",
				zap.String("event", event.Type),
				zap.Error(err),
			)
		}
	}
	if d.TelegramToken != "" && d.TelegramChatID != "" {
		msg := d.Project + ": " + event.Type
		if err := d.Telegram.Send(ctx, d.TelegramToken, d.TelegramChatID, msg); err != nil && d.Logger != nil {
			d.Logger.Warn("notify: telegram delivery failed",
				zap.String("event", event.Type),
				zap.Error(err),
			)
		}
	}
}
