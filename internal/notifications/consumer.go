package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/floristeria-backend/pkg/enums"
	"github.com/angelmondragon/floristeria-backend/pkg/logger"
	"github.com/angelmondragon/floristeria-backend/pkg/mailer"
	"github.com/angelmondragon/floristeria-backend/pkg/outbox"
	"github.com/angelmondragon/floristeria-backend/pkg/outbox/payloads"
)

const emailConsumer = "order-email-notifications"

type sender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *pubsub.Message)) error
}

type dedupe interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer delivers notification_requested events as email.
type Consumer struct {
	sender       sender
	subscription receiver
	idempotency  dedupe
	logg         *logger.Logger
}

// NewConsumer builds an email notification consumer.
func NewConsumer(sender sender, subscription receiver, manager dedupe, logg *logger.Logger) (*Consumer, error) {
	if sender == nil {
		return nil, fmt.Errorf("mail sender required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		sender:       sender,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventNotificationRequested) {
		c.logg.Debug(logCtx, "skipping non-notification event")
		return processResult{ack: true}
	}

	envelope, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	var payload payloads.NotificationRequestedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	logCtx = c.logg.WithOrderID(logCtx, payload.OrderID.String())
	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"event_id": eventID.String(),
		"reason":   payload.Reason,
	})
	if strings.TrimSpace(payload.To) == "" {
		c.logg.Warn(logCtx, "notification has no recipient")
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, emailConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	err = c.sender.Send(ctx, mailer.Message{
		To:       payload.To,
		Subject:  payload.Subject,
		HTMLBody: payload.Body,
	})
	if err != nil {
		if errors.Is(err, mailer.ErrInvalidMessage) {
			c.logg.Error(logCtx, "notification cannot be delivered", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification delivery failed", err)
		if delErr := c.idempotency.Delete(ctx, emailConsumer, eventID); delErr != nil {
			c.logg.Error(logCtx, "failed to release idempotency mark", delErr)
		}
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "notification email sent")
	return processResult{ack: true}
}
