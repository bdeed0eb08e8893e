package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/observability"
)

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// AMQPPublisher opens a short-lived channel per event on a shared connection.
type AMQPPublisher struct {
	conn    *amqp.Connection
	queue   string
	metrics *observability.Metrics
}

func NewAMQPPublisher(conn *amqp.Connection, queueName string, metrics *observability.Metrics) (*AMQPPublisher, error) {
	ch, err := CreateChannel(conn)
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if _, err := DeclareQueue(ch, queueName); err != nil {
		return nil, err
	}

	return &AMQPPublisher{conn: conn, queue: queueName, metrics: metrics}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := CreateChannel(p.conn)
	if err != nil {
		return err
	}
	defer ch.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    ev.OccurredAt,
			Type:         ev.Type,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	if p.metrics != nil {
		p.metrics.EventsPublishedTotal.WithLabelValues(ev.Type).Inc()
	}
	logrus.WithFields(logrus.Fields{
		"event_type": ev.Type,
		"entity_id":  ev.EntityID,
	}).Debug("Event published")
	return nil
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, ev Event) error { return nil }
