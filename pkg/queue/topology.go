package queue

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	NotificationExchange = "notifications"
	NotificationQueue    = "notifications.main"
	DeadLetterExchange   = "notifications.dlx"
	DeadLetterQueue      = "notifications.dlq"
	DeadLetterKey        = "dead-letter"

	RoutingKeyEmail = "notification.email"
	RoutingKeyPush  = "notification.push"
	RoutingKeyInApp = "notification.in-app"

	deadLetterTTL = 7 * 24 * time.Hour
)

var notificationRoutingKeys = []string{RoutingKeyEmail, RoutingKeyPush, RoutingKeyInApp}

// EnsureTopology declares the exchanges, queues and bindings the pipeline
// needs. It must succeed before anything is published or consumed. Repeat
// calls after a success are no-ops; a failure leaves the readiness flag unset
// so the call can be retried.
func (m *Manager) EnsureTopology() error {
	m.mu.Lock()
	if m.topologyReady {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	channel, err := m.Channel()
	if err != nil {
		return err
	}

	if err := declareTopology(channel); err != nil {
		return err
	}

	m.mu.Lock()
	m.topologyReady = true
	m.mu.Unlock()

	m.logger.Info("[RABBITMQ] Topology ensured: exchange=%s, queue=%s, dlq=%s", NotificationExchange, NotificationQueue, DeadLetterQueue)
	return nil
}

func declareTopology(channel *amqp.Channel) error {
	// Dead-letter exchange for messages the main queue rejects or expires.
	err := channel.ExchangeDeclare(
		DeadLetterExchange, // name
		"direct",           // type
		true,               // durable
		false,              // auto-deleted
		false,              // internal
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare dead-letter exchange: %w", err)
	}

	err = channel.ExchangeDeclare(
		NotificationExchange, // name
		"topic",              // type
		true,                 // durable
		false,                // auto-deleted
		false,                // internal
		false,                // no-wait
		nil,                  // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		DeadLetterQueue, // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		amqp.Table{
			"x-message-ttl": deadLetterTTL.Milliseconds(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}

	err = channel.QueueBind(
		DeadLetterQueue,    // queue name
		DeadLetterKey,      // routing key
		DeadLetterExchange, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind dead-letter queue: %w", err)
	}

	_, err = channel.QueueDeclare(
		NotificationQueue, // name
		true,              // durable
		false,             // delete when unused
		false,             // exclusive
		false,             // no-wait
		amqp.Table{
			"x-dead-letter-exchange":    DeadLetterExchange,
			"x-dead-letter-routing-key": DeadLetterKey,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	for _, key := range notificationRoutingKeys {
		err = channel.QueueBind(
			NotificationQueue,    // queue name
			key,                  // routing key
			NotificationExchange, // exchange
			false,
			nil,
		)
		if err != nil {
			return fmt.Errorf("failed to bind queue under %s: %w", key, err)
		}
	}

	return nil
}
