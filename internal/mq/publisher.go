package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Reading event types
const (
	EventReadingUploaded  = "reading.uploaded"
	EventReadingConfirmed = "reading.confirmed"
)

// ReadingEvent is published after a reading transaction commits
type ReadingEvent struct {
	Event           string `json:"event"`
	MeasureUUID     string `json:"measure_uuid"`
	CustomerCode    string `json:"customer_code"`
	MeasureType     string `json:"measure_type"`
	MeasureDatetime string `json:"measure_datetime"`
	MeasureValue    *int64 `json:"measure_value"`
	HasConfirmed    bool   `json:"has_confirmed"`
	ImageURL        string `json:"image_url"`
	Suspicious      bool   `json:"suspicious,omitempty"`
	AnomalyReason   string `json:"anomaly_reason,omitempty"`
	OccurredAt      string `json:"occurred_at"`
}

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger
	mu       sync.Mutex // amqp channels are not safe for concurrent publishes
}

// NewPublisher opens a channel and declares the topic exchange
func NewPublisher(conn *Connection, exchange string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		channel:  ch,
		exchange: exchange,
		logger:   logger,
	}, nil
}

// PublishReadingEvent publishes a reading event as persistent JSON
func (p *Publisher) PublishReadingEvent(ctx context.Context, event ReadingEvent, routingKey string) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    event.MeasureUUID,
			Type:         event.Event,
		},
	)
	p.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Debug("published reading event",
		zap.String("routing_key", routingKey),
		zap.String("measure_uuid", event.MeasureUUID),
		zap.String("event", event.Event),
	)

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
