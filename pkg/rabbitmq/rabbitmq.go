package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/streadway/amqp"
)

// CatalogQueue is the durable queue catalog events are published to.
const CatalogQueue = "catalog_events"

// Catalog event types.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// CatalogEvent describes a change to the product catalog.
type CatalogEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	ProductID  int64     `json:"product_id"`
	Name       string    `json:"name,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL    string
	Logger *slog.Logger
}

// NewClient connects to RabbitMQ, opens a channel and declares the catalog queue.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareCatalogQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	l := cfg.Logger
	if l == nil {
		l = slog.Default()
	}
	l = l.With(slog.String("component", "rabbitmq"))
	l.Info("RabbitMQ client connected", slog.String("queue", CatalogQueue))

	return &Client{
		conn:    conn,
		channel: ch,
		logger:  l,
	}, nil
}

func declareCatalogQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		CatalogQueue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare %s: %w", CatalogQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("errors during RabbitMQ client close: %v", errs)
	}
	return nil
}

// PublishCatalogEvent publishes event as a persistent JSON message on CatalogQueue.
func (c *Client) PublishCatalogEvent(event CatalogEvent) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog event: %w", err)
	}

	err = c.channel.Publish(
		"",           // default exchange
		CatalogQueue, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.ID,
			Type:         event.Type,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish catalog event: %w", err)
	}

	c.logger.Debug("catalog event sent", slog.String("type", event.Type), slog.Int64("product_id", event.ProductID))
	return nil
}

// ConsumeCatalogEvents starts a goroutine that hands every catalog event to handler.
// Messages are acked when handler returns nil. Undecodable messages are dropped,
// and failed ones are requeued once before being dropped.
func (c *Client) ConsumeCatalogEvents(handler func(CatalogEvent) error) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available for consumption")
	}

	msgs, err := c.channel.Consume(
		CatalogQueue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			c.handleDelivery(msg, handler)
		}
		c.logger.Info("catalog event consumer stopped")
	}()
	return nil
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(CatalogEvent) error) {
	var event CatalogEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Warn("dropping malformed catalog event", slog.Uint64("tag", msg.DeliveryTag), slog.Any("error", err))
		if nackErr := msg.Nack(false, false); nackErr != nil {
			c.logger.Error("nack failed", slog.Uint64("tag", msg.DeliveryTag), slog.Any("error", nackErr))
		}
		return
	}

	if err := handler(event); err != nil {
		c.logger.Error("catalog event handler failed", slog.Uint64("tag", msg.DeliveryTag), slog.Any("error", err))
		if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
			c.logger.Error("nack failed", slog.Uint64("tag", msg.DeliveryTag), slog.Any("error", nackErr))
		}
		return
	}

	if ackErr := msg.Ack(false); ackErr != nil {
		c.logger.Error("ack failed", slog.Uint64("tag", msg.DeliveryTag), slog.Any("error", ackErr))
	}
}
