package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/serviceflow/schedcore/libs/kafkax"
)

// Event types emitted on the notification bus.
const (
	EventNotificationSent = "scheduling.notification.sent.v1"
	EventReminderSent     = "scheduling.reminder.sent.v1"
)

// Event is one notification fact published for downstream consumers
// (analytics, CRM sync). Delivery of the event is best-effort: the in-memory
// mutation has already happened and is never rolled back.
type Event struct {
	EventType     string
	AppointmentID string
	Payload       []byte
}

// Publisher ships notification events to Kafka from an in-memory queue.
// When the queue is full or no brokers are configured, events are dropped
// with a log line; the appointment's own notification log is the durable
// record the product relies on.
type Publisher struct {
	brokers []string
	logger  *slog.Logger
	queue   chan Event
}

func NewPublisher(brokers string, logger *slog.Logger) *Publisher {
	return &Publisher{
		brokers: kafkax.SplitBrokers(brokers),
		logger:  logger,
		queue:   make(chan Event, 256),
	}
}

// Enqueue hands an event to the publisher without blocking the caller.
func (p *Publisher) Enqueue(evt Event) {
	if len(p.brokers) == 0 {
		return
	}
	select {
	case p.queue <- evt:
	default:
		p.logger.Warn("notification event dropped (queue full)", "event_type", evt.EventType)
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("notification publisher disabled (no kafka brokers configured)")
		return
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  p.brokers,
		Balancer: &kafka.Hash{},
	})
	defer writer.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-p.queue:
			msg := kafka.Message{
				Topic: evt.EventType,
				Key:   []byte(evt.AppointmentID),
				Value: evt.Payload,
				Headers: []kafka.Header{
					{Key: "event_type", Value: []byte(evt.EventType)},
				},
			}
			msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := writer.WriteMessages(writeCtx, msg)
			cancel()
			if err != nil {
				p.logger.Error("notification event publish failed", "err", err, "event_type", evt.EventType)
			}
		}
	}
}
