package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-automation/internal/events"
	"github.com/spec-kit/ticket-automation/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// Subscriber is the part of the redis client the event bridge uses.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// TicketEventSubscriber forwards ticket events published by the ticket service on a Redis channel
// to the in-process event bus.
type TicketEventSubscriber struct {
	client  Subscriber
	channel string
	bus     events.Dispatcher
	logger  *zap.Logger
}

// NewTicketEventSubscriber builds the bridge.
func NewTicketEventSubscriber(client Subscriber, channel string, bus events.Dispatcher, logger *zap.Logger) *TicketEventSubscriber {
	return &TicketEventSubscriber{
		client:  client,
		channel: channel,
		bus:     bus,
		logger:  logger.With(zap.String("channel", channel)),
	}
}

// Run consumes the channel until ctx is canceled.
func (s *TicketEventSubscriber) Run(ctx context.Context) error {
	pubsub := s.client.Subscribe(ctx, s.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.logger.Info("subscribed to ticket events")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			if err := s.Handle(ctx, msg.Payload); err != nil {
				s.logger.Warn("dropping ticket event", zap.Error(err))
			}
		}
	}
}

// Handle decodes one payload and publishes it on the bus.
func (s *TicketEventSubscriber) Handle(ctx context.Context, payload string) error {
	var event events.Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if !event.Type.Known() {
		return fmt.Errorf("unsupported event type %q", event.Type)
	}
	if event.TicketID == "" {
		return fmt.Errorf("event %s has no ticket id", event.Type)
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	s.logger.Debug("ticket event received",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
	return s.bus.Publish(ctx, event)
}
