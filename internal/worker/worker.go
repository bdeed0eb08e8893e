package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"twitter_api/internal/observability"
	"twitter_api/internal/queue"
)

const maxRetries = 3

func republishWithRetry(ch *amqp.Channel, msg *amqp.Delivery, retryCount int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	headers := amqp.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retry-count"] = retryCount

	return ch.PublishWithContext(
		ctx,
		"",             // exchange
		msg.RoutingKey, // routing key (queue name)
		false,          // mandatory
		false,          // immediate
		amqp.Publishing{
			ContentType:  msg.ContentType,
			DeliveryMode: amqp.Persistent,
			Type:         msg.Type,
			Body:         msg.Body,
			Headers:      headers,
		},
	)
}

func retryCountOf(msg *amqp.Delivery) int32 {
	if msg.Headers == nil {
		return 0
	}
	switch v := msg.Headers["x-retry-count"].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

// StartWorker consumes entity events until ctx is done or the channel closes.
func StartWorker(ctx context.Context, conn *amqp.Connection, queueName string, auditor *Auditor, metrics *observability.Metrics, id int) error {
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	msgs, err := ch.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return err
	}

	logrus.Infof("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			logrus.Infof("Worker %d stopping", id)
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			process(ctx, ch, &msg, auditor, metrics, id)
		}
	}
}

func process(ctx context.Context, ch *amqp.Channel, msg *amqp.Delivery, auditor *Auditor, metrics *observability.Metrics, id int) {
	var ev queue.Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		logrus.WithError(err).Error("invalid event")
		metrics.EventsFailedTotal.WithLabelValues("unknown", "invalid_payload").Inc()
		msg.Nack(false, false)
		return
	}

	metrics.EventsConsumedTotal.WithLabelValues(ev.Type).Inc()
	retryCount := retryCountOf(msg)

	logrus.Infof("Worker %d processing event=%s entity=%s (retry: %d)", id, ev.Type, ev.EntityID, retryCount)

	_, err := auditor.Handle(ctx, ev)
	if err == nil {
		msg.Ack(false)
		return
	}

	if errors.Is(err, ErrInvalidPayload) {
		logrus.WithError(err).Error("Dropping event")
		metrics.EventsFailedTotal.WithLabelValues(ev.Type, "invalid_payload").Inc()
		msg.Nack(false, false)
		return
	}

	logrus.WithError(err).Error("Failed to audit event")

	if retryCount >= maxRetries {
		metrics.EventsFailedTotal.WithLabelValues(ev.Type, "max_retries").Inc()
		msg.Nack(false, false)
		return
	}

	logrus.Infof("Worker %d: audit failed, requeuing (retry %d/%d)", id, retryCount+1, maxRetries)

	if err := republishWithRetry(ch, msg, retryCount+1); err != nil {
		logrus.WithError(err).Error("Failed to republish message")
		metrics.EventsFailedTotal.WithLabelValues(ev.Type, "republish_error").Inc()
		msg.Nack(false, false)
		return
	}

	metrics.EventsPublishedTotal.WithLabelValues(ev.Type).Inc()
	msg.Ack(false)
}
