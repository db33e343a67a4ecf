// Package notification hands resolved ticket audiences to the delivery pipeline.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Message types, one per notification template.
const (
	TypeTicketCreated        = "TICKET_CREATED"
	TypeTicketCommentCreated = "TICKET_COMMENT_CREATED"
)

// Meta carries template data alongside the data version.
type Meta struct {
	DV   int            `json:"dv"`
	Data map[string]any `json:"data,omitempty"`
}

// Message is one notification addressed to a set of users.
type Message struct {
	Type           string    `json:"type"`
	TicketID       string    `json:"ticket_id"`
	OrganizationID string    `json:"organization_id"`
	Recipients     []string  `json:"recipients"`
	Meta           Meta      `json:"meta"`
	CreatedAt      time.Time `json:"created_at"`
}

// Dispatcher delivers messages.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

// Publisher is the part of the redis client the dispatcher uses.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisDispatcher publishes each message as JSON on a pub/sub channel.
type RedisDispatcher struct {
	client  Publisher
	channel string
	logger  *zap.Logger
}

// NewRedisDispatcher builds a dispatcher publishing on channel.
func NewRedisDispatcher(client Publisher, channel string, logger *zap.Logger) *RedisDispatcher {
	return &RedisDispatcher{client: client, channel: channel, logger: logger}
}

func (d *RedisDispatcher) Dispatch(ctx context.Context, msg Message) error {
	if len(msg.Recipients) == 0 {
		return nil
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	receivers, err := d.client.Publish(ctx, d.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	d.logger.Debug("notification published",
		zap.String("type", msg.Type),
		zap.String("ticket_id", msg.TicketID),
		zap.Int("recipients", len(msg.Recipients)),
		zap.Int64("subscribers", receivers))
	return nil
}

// LogDispatcher only logs messages. Used when Redis is disabled.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a LogDispatcher.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(_ context.Context, msg Message) error {
	d.logger.Info("notification",
		zap.String("type", msg.Type),
		zap.String("ticket_id", msg.TicketID),
		zap.Strings("recipients", msg.Recipients))
	return nil
}
