package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/serviceflow/schedcore/internal/metrics"
	"github.com/serviceflow/schedcore/internal/model"
)

// Draft is one rendered message ready for hand-off to a delivery channel.
type Draft struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
	Kind      string `json:"kind"`
}

// Dispatcher routes rendered drafts to the configured channel senders and
// publishes a notification event. It never fails the caller: the returned
// value is the delivery disposition to record in the appointment's
// notification log.
type Dispatcher struct {
	whatsapp  TextSender
	sms       TextSender
	email     EmailSender
	publisher *Publisher
	logger    *slog.Logger
}

func NewDispatcher(whatsapp TextSender, sms TextSender, email EmailSender, publisher *Publisher, logger *slog.Logger) *Dispatcher {
	if whatsapp == nil {
		whatsapp = NoopTextSender{Provider: model.ChannelWhatsApp}
	}
	if sms == nil {
		sms = NoopTextSender{Provider: model.ChannelSMS}
	}
	if email == nil {
		email = NoopEmailSender{}
	}
	return &Dispatcher{
		whatsapp:  whatsapp,
		sms:       sms,
		email:     email,
		publisher: publisher,
		logger:    logger,
	}
}

// Dispatch hands one draft to its channel. Returns the delivery status
// ("sent" or "failed") for the notification log.
func (d *Dispatcher) Dispatch(ctx context.Context, appointmentID string, draft Draft) string {
	var err error
	switch draft.Channel {
	case model.ChannelEmail:
		err = d.email.Send(draft.Recipient, draft.Subject, draft.Body)
	case model.ChannelSMS:
		err = d.sms.Send(ctx, draft.Recipient, draft.Body)
	default:
		err = d.whatsapp.Send(ctx, draft.Recipient, draft.Body)
	}

	status := model.DeliverySent
	if err != nil {
		status = model.DeliveryFailed
		d.logger.Warn("notification delivery failed",
			"appointment_id", appointmentID,
			"channel", draft.Channel,
			"err", err,
		)
	}
	metrics.NotificationsDispatched.WithLabelValues(draft.Channel, status).Inc()

	if d.publisher != nil {
		eventType := EventNotificationSent
		if draft.Kind == model.KindReminder {
			eventType = EventReminderSent
		}
		payload, mErr := json.Marshal(map[string]any{
			"appointment_id": appointmentID,
			"channel":        draft.Channel,
			"status":         status,
			"kind":           draft.Kind,
			"sent_at":        time.Now().UTC().Format(time.RFC3339),
		})
		if mErr == nil {
			d.publisher.Enqueue(Event{
				EventType:     eventType,
				AppointmentID: appointmentID,
				Payload:       payload,
			})
		}
	}

	return status
}
