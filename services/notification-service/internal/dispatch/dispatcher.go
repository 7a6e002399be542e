// Package dispatch renders consumed salon events and delivers them over
// email and SMS, recording each attempt.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/salonbook/libs/kafkax"
	"github.com/md-rashed-zaman/salonbook/libs/notify/email"
	"github.com/md-rashed-zaman/salonbook/libs/notify/sms"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/metrics"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/storage"
	"github.com/md-rashed-zaman/salonbook/services/notification-service/internal/templates"
	"github.com/segmentio/kafka-go"
)

// Store is satisfied by *storage.Repository.
type Store interface {
	Insert(ctx context.Context, n storage.Notification) error
	Attempted(ctx context.Context, eventID, channel, recipient string) (bool, error)
}

type Config struct {
	// FailSuffix simulates a provider failure for recipients ending with it.
	FailSuffix string
}

type Dispatcher struct {
	logger   *slog.Logger
	renderer *templates.Renderer
	email    email.Sender
	sms      sms.Sender
	store    Store
	cfg      Config
}

func New(logger *slog.Logger, renderer *templates.Renderer, emailSender email.Sender, smsSender sms.Sender, store Store, cfg Config) *Dispatcher {
	return &Dispatcher{
		logger:   logger,
		renderer: renderer,
		email:    emailSender,
		sms:      smsSender,
		store:    store,
		cfg:      cfg,
	}
}

// Handle is a consumer.Handler. Malformed events and provider failures are
// logged and swallowed. Messages already recorded for the event are not
// sent again, so a redelivery after a persist failure only covers the
// rest. The first persist failure is returned once every message was
// tried.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)
	msgs, err := d.renderer.Render(meta.EventType, msg.Value)
	if err != nil {
		d.logger.Error("event not renderable", "err", err, "event_id", meta.EventID, "event_type", meta.EventType)
		metrics.IncEvent(meta.EventType, "invalid")
		return nil
	}
	if len(msgs) == 0 {
		metrics.IncEvent(meta.EventType, "skipped")
		return nil
	}
	metrics.IncEvent(meta.EventType, "rendered")

	var payload map[string]any
	_ = json.Unmarshal(msg.Value, &payload)

	var firstErr error
	for _, m := range msgs {
		done, err := d.store.Attempted(ctx, meta.EventID, m.Channel, m.Recipient)
		if err != nil {
			d.logger.Error("failed to look up notification", "err", err, "event_id", meta.EventID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if done {
			d.logger.Info("notification already sent", "event_id", meta.EventID, "channel", m.Channel)
			continue
		}

		providerID, sendErr := d.send(ctx, m)
		status := storage.StatusSent
		reason := ""
		if sendErr != nil {
			status = storage.StatusFailed
			reason = sendErr.Error()
			d.logger.Error("notification send failed", "err", sendErr, "channel", m.Channel, "appointment_id", m.AppointmentID)
		}
		metrics.IncSent(m.Channel, status)
		if err := d.store.Insert(ctx, storage.Notification{
			EventID:       meta.EventID,
			EventType:     meta.EventType,
			AppointmentID: m.AppointmentID,
			Channel:       m.Channel,
			Recipient:     m.Recipient,
			Status:        status,
			ProviderID:    providerID,
			Error:         reason,
			Payload:       payload,
		}); err != nil {
			d.logger.Error("failed to persist notification", "err", err, "event_id", meta.EventID, "channel", m.Channel)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		d.logger.Info("notification processed", "appointment_id", m.AppointmentID, "channel", m.Channel, "status", status)
	}
	return firstErr
}

func (d *Dispatcher) send(ctx context.Context, m templates.Message) (string, error) {
	if d.cfg.FailSuffix != "" && strings.HasSuffix(m.Recipient, d.cfg.FailSuffix) {
		return "", errors.New("simulated failure")
	}
	switch m.Channel {
	case templates.ChannelEmail:
		if err := d.email.Send(ctx, m.Recipient, m.Subject, m.Body); err != nil {
			return "", err
		}
		return d.email.ProviderID(), nil
	case templates.ChannelSMS:
		if err := d.sms.Send(ctx, m.Recipient, m.Body); err != nil {
			return "", err
		}
		return d.sms.ProviderID(), nil
	default:
		return "", errors.New("unsupported channel: " + m.Channel)
	}
}
