// Package event publishes quiz session lifecycle events to a RabbitMQ
// topic exchange.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/glog"
	"github.com/rabbitmq/amqp091-go"

	"github.com/abhisek/codequiz/internal/metrics"
)

// DefaultExchange is the topic exchange session events go to.
const DefaultExchange = "quiz.events"

const publishTimeout = 5 * time.Second

// Publisher sends session events.
type Publisher interface {
	PublishSessionEvent(ctx context.Context, event *SessionEvent) error
	Close() error
}

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// EventPublisher publishes JSON events on a topic exchange. A publisher
// created without a URI is disabled and drops every event.
type EventPublisher struct {
	conn         *amqp091.Connection
	channel      channel
	exchangeName string
	enabled      bool
}

// NewEventPublisher connects to RabbitMQ and declares the exchange. An empty
// URI returns a disabled publisher.
func NewEventPublisher(rabbitURI, exchange string) (*EventPublisher, error) {
	if rabbitURI == "" {
		glog.Warning("RabbitMQ URI is empty, event publishing is disabled")
		return &EventPublisher{enabled: false}, nil
	}
	if exchange == "" {
		exchange = DefaultExchange
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &EventPublisher{
		conn:         conn,
		channel:      ch,
		exchangeName: exchange,
		enabled:      true,
	}, nil
}

// Enabled reports whether events are actually sent.
func (p *EventPublisher) Enabled() bool {
	return p.enabled
}

// PublishSessionEvent publishes event with its type as the routing key.
func (p *EventPublisher) PublishSessionEvent(ctx context.Context, event *SessionEvent) error {
	return p.publishEvent(ctx, event.EventType, event)
}

func (p *EventPublisher) publishEvent(ctx context.Context, routingKey string, event any) error {
	if !p.enabled {
		glog.V(2).Infof("event publishing is disabled, skipping event: %s", routingKey)
		metrics.EventsPublished.WithLabelValues(routingKey, "skipped").Inc()
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		metrics.EventsPublished.WithLabelValues(routingKey, "error").Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventsPublished.WithLabelValues(routingKey, "ok").Inc()
	glog.V(1).Infof("published event: %s", routingKey)
	return nil
}

// Close closes the channel and connection.
func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			glog.Warningf("error closing RabbitMQ channel: %v", err)
		}
	}

	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}
	return nil
}
