package listeners

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/club-events/metrics"
	"github.com/Dosada05/club-events/models"
	"github.com/Dosada05/club-events/services"
	"github.com/streadway/amqp"
)

const (
	amqpPrefetch       = 10
	amqpReconnectDelay = 5 * time.Second
	amqpConsumerTag    = "club-events"
)

// AMQPConsumer reads StatusChange JSON messages from a durable queue with manual acks.
type AMQPConsumer struct {
	url     string
	queue   string
	handler StatusChangeHandler
	logger  *slog.Logger
}

func NewAMQPConsumer(url, queue string, handler StatusChangeHandler, logger *slog.Logger) *AMQPConsumer {
	return &AMQPConsumer{url: url, queue: queue, handler: handler, logger: logger}
}

// Run consumes until ctx is canceled, reconnecting after connection loss.
func (c *AMQPConsumer) Run(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("amqp consumer interrupted, reconnecting",
			slog.Any("error", err), slog.Duration("delay", amqpReconnectDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(amqpReconnectDelay):
		}
	}
}

func (c *AMQPConsumer) consume(ctx context.Context) error {
	conn, err := amqp.DialConfig(c.url, amqp.Config{Heartbeat: 30 * time.Second, Locale: "en_US"})
	if err != nil {
		return fmt.Errorf("failed to connect to AMQP: %w", err)
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}
	defer channel.Close()

	if err := channel.Qos(amqpPrefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}
	if _, err := channel.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}

	deliveries, err := channel.Consume(
		c.queue,
		amqpConsumerTag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", c.queue, err)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))
	c.logger.Info("amqp consumer started", slog.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case amqpErr := <-closed:
			return fmt.Errorf("connection closed: %v", amqpErr)
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.process(ctx, d)
		}
	}
}

// process acks handled deliveries, rejects ones that can never succeed and
// requeues transient failures once before dead-lettering them.
func (c *AMQPConsumer) process(ctx context.Context, d amqp.Delivery) {
	var change models.StatusChange
	if err := json.Unmarshal(d.Body, &change); err != nil {
		metrics.StatusChangesReceived.WithLabelValues("amqp", outcomeMalformed).Inc()
		c.logger.Warn("rejecting malformed status change", slog.Any("error", err))
		c.settle(d.Reject(false))
		return
	}
	if change.EventID == "" && change.After != nil {
		change.EventID = change.After.ID
	}

	result, err := c.handler.HandleStatusChange(ctx, change)
	switch {
	case err == nil:
		outcome := outcomeHandled
		if result == nil {
			outcome = outcomeIgnored
		}
		metrics.StatusChangesReceived.WithLabelValues("amqp", outcome).Inc()
		c.settle(d.Ack(false))
	case errors.Is(err, services.ErrValidationFailed):
		metrics.StatusChangesReceived.WithLabelValues("amqp", outcomeMalformed).Inc()
		c.logger.Warn("rejecting invalid status change", slog.String("event_id", change.EventID), slog.Any("error", err))
		c.settle(d.Reject(false))
	default:
		metrics.StatusChangesReceived.WithLabelValues("amqp", outcomeFailed).Inc()
		requeue := !d.Redelivered
		c.logger.Error("status change handling failed",
			slog.String("event_id", change.EventID),
			slog.Bool("requeue", requeue),
			slog.Any("error", err))
		c.settle(d.Nack(false, requeue))
	}
}

func (c *AMQPConsumer) settle(err error) {
	if err != nil {
		c.logger.Error("failed to settle delivery", slog.Any("error", err))
	}
}
