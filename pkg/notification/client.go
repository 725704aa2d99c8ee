package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatherly/gatherly/pkg/model"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	exchange = "rsvp"
	queue    = "rsvp-emails"
)

// NewClient connects to RabbitMQ and declares the rsvp exchange and the email queue
// bound to it. The declarations are idempotent so the publisher and the consumer can
// both call this without coordinating.
func NewClient(logger *slog.Logger, url string) (*Client, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %v", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %v", err)
	}

	err = channel.ExchangeDeclare(exchange, "direct", true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %q: %v", exchange, err)
	}

	_, err = channel.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %q: %v", queue, err)
	}

	err = channel.QueueBind(queue, "", exchange, false, nil)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to bind queue %q: %v", queue, err)
	}

	logger.Info("Connected to RabbitMQ", "exchange", exchange, "queue", queue)

	return &Client{logger: logger, conn: conn, channel: channel}, nil
}

type Client struct {
	logger  *slog.Logger
	conn    *amqp.Connection
	channel *amqp.Channel
}

func (c *Client) Close() error {
	if err := c.channel.Close(); err != nil {
		return err
	}
	return c.conn.Close()
}

func (c *Client) RSVPJoined(ctx context.Context, event *model.Event, user *model.User) error {
	return c.publish(ctx, KindJoined, event, user)
}

func (c *Client) RSVPLeft(ctx context.Context, event *model.Event, user *model.User) error {
	return c.publish(ctx, KindLeft, event, user)
}

func (c *Client) publish(ctx context.Context, kind string, event *model.Event, user *model.User) error {
	message := Message{
		Kind:           kind,
		EventID:        event.ID,
		EventTitle:     event.Title,
		EventSlug:      event.Slug,
		ScheduledAt:    event.ScheduledAt,
		Location:       event.Location,
		UserID:         user.ID,
		Email:          user.Email,
		SpotsRemaining: event.SpotsRemaining(),
		OccurredAt:     time.Now(),
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %v", kind, err)
	}

	err = c.channel.PublishWithContext(ctx, exchange, "", false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
		Timestamp:   time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s message: %v", kind, err)
	}

	c.logger.DebugContext(ctx, "Published rsvp notification", "kind", kind, "event", event.ID, "user", user.ID)
	return nil
}

// Consume reads from the email queue and hands each body to the handler. Messages the
// handler rejects are dropped, not requeued, since a malformed message would otherwise
// loop forever.
func (c *Client) Consume(handler func(body []byte) error) error {
	deliveries, err := c.channel.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume from queue %q: %v", queue, err)
	}

	go func() {
		for delivery := range deliveries {
			if err := handler(delivery.Body); err != nil {
				c.logger.Error("Failed to handle rsvp message", "error", err)
				if err := delivery.Nack(false, false); err != nil {
					c.logger.Error("Failed to nack rsvp message", "error", err)
				}
				continue
			}
			if err := delivery.Ack(false); err != nil {
				c.logger.Error("Failed to ack rsvp message", "error", err)
			}
		}
	}()

	c.logger.Info("Consuming rsvp notifications", "queue", queue)
	return nil
}
