// Package consumer applies appointment status events (paid, completed) published by
// the payment and provider-side services.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/clinicbook/libs/kafkax"
	"github.com/md-rashed-zaman/clinicbook/services/booking-service/internal/storage"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const TopicAppointmentStatus = "booking.appointment.status.v1"

type Handler func(ctx context.Context, msg kafka.Message) error

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Inbox interface {
	Record(ctx context.Context, eventID, eventType string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

type Consumer struct {
	reader  MessageReader
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inboxRepo Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return NewWithReader(logger, inboxRepo, reader, handler)
}

func NewWithReader(logger *slog.Logger, inboxRepo Inbox, reader MessageReader, handler Handler) *Consumer {
	return &Consumer{reader: reader, logger: logger, inbox: inboxRepo, handler: handler}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		c.Process(ctx, msg)
	}
}

// Process handles one message at most once per event id. A failed handler forgets
// the id again so a replay is not mistaken for a duplicate.
func (c *Consumer) Process(ctx context.Context, msg kafka.Message) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("kafka").Start(ctxMsg, "kafka.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	ok, err := c.inbox.Record(ctxSpan, meta.EventID, meta.EventType)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err)
		span.RecordError(err)
		return
	}
	if !ok {
		c.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return
	}

	if err := c.handler(ctxSpan, msg); err != nil {
		c.logger.Error("handler error", "err", err, "event_id", meta.EventID)
		span.RecordError(err)
		if err := c.inbox.Forget(ctxSpan, meta.EventID); err != nil {
			c.logger.Error("inbox forget failed", "err", err, "event_id", meta.EventID)
		}
	}
}

// StatusUpdater persists appointment payment/completion flags.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, appointmentID string, payment, completed *bool) error
}

type statusEvent struct {
	AppointmentID string `json:"appointment_id"`
	Payment       *bool  `json:"payment"`
	Completed     *bool  `json:"completed"`
}

// StatusHandler applies booking.appointment.status.v1 events. Fields left out of the
// payload are not changed.
func StatusHandler(store StatusUpdater, logger *slog.Logger) Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt statusEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			logger.Error("invalid status event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if evt.AppointmentID == "" || (evt.Payment == nil && evt.Completed == nil) {
			logger.Error("status event missing required fields", "topic", msg.Topic)
			return nil
		}
		if err := store.UpdateStatus(ctx, evt.AppointmentID, evt.Payment, evt.Completed); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				logger.Warn("status event for unknown appointment ignored", "appointment_id", evt.AppointmentID)
				return nil
			}
			return fmt.Errorf("update appointment %s: %w", evt.AppointmentID, err)
		}
		return nil
	}
}
