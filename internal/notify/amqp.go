package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const offerQueue = "waitlist.slot-offer"

// AMQPNotifier publishes slot offers to a durable RabbitMQ queue. A
// connection is dialed per publish; offer volume is a handful per scope per
// notification window, so connection churn is not a concern.
type AMQPNotifier struct {
	url string
}

func NewAMQPNotifier(url string) *AMQPNotifier {
	return &AMQPNotifier{url: url}
}

func (n *AMQPNotifier) Notify(ctx context.Context, visitorEmail, scopeKey string, expiresAt time.Time) error {
	conn, err := amqp.Dial(n.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// Idempotent declare; durable so offers survive broker restarts.
	if _, err := ch.QueueDeclare(
		offerQueue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		return fmt.Errorf("amqp queue declare: %w", err)
	}

	body, err := json.Marshal(SlotOfferEvent{
		VisitorEmail: visitorEmail,
		ScopeKey:     scopeKey,
		ExpiresAt:    expiresAt,
		OfferedAt:    time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal slot offer: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}

	if err := ch.PublishWithContext(ctx,
		"",         // default exchange
		offerQueue, // routing key = queue name
		false,      // mandatory
		false,      // immediate
		pub,
	); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}

	return nil
}
