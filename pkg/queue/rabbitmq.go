package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pulse-notify/pkg/config"
	"pulse-notify/pkg/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const (
	defaultMaxReconnects  = 5
	defaultReconnectDelay = 5 * time.Second
	publishTimeout        = 5 * time.Second
)

// Manager owns the broker connection and channel. Publisher and consumer
// both go through it; a closed connection triggers a bounded reconnect loop.
type Manager struct {
	url    string
	logger *logger.Logger

	mu            sync.Mutex
	conn          *amqp.Connection
	channel       *amqp.Channel
	state         State
	topologyReady bool
	closed        bool

	maxReconnects  int
	reconnectDelay time.Duration
}

func NewManager(cfg *config.Config, log *logger.Logger) *Manager {
	url := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQUser,
		cfg.RabbitMQPassword,
		cfg.RabbitMQHost,
		cfg.RabbitMQPort,
	)

	return &Manager{
		url:            url,
		logger:         log,
		maxReconnects:  defaultMaxReconnects,
		reconnectDelay: defaultReconnectDelay,
	}
}

func (m *Manager) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked()
}

func (m *Manager) connectLocked() error {
	if m.closed {
		return fmt.Errorf("connection manager is closed")
	}
	if m.conn != nil && !m.conn.IsClosed() && m.channel != nil {
		return nil
	}

	m.state = StateConnecting

	conn, err := amqp.Dial(m.url)
	if err != nil {
		m.state = StateDisconnected
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		m.state = StateDisconnected
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// Confirm mode lets Publish report a broker-rejected message as an error.
	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		m.state = StateDisconnected
		return fmt.Errorf("failed to put channel in confirm mode: %w", err)
	}

	m.conn = conn
	m.channel = channel
	m.state = StateConnected

	closeCh := make(chan *amqp.Error, 1)
	conn.NotifyClose(closeCh)
	go m.watchClose(closeCh)

	m.logger.Info("Connected to RabbitMQ")
	return nil
}

func (m *Manager) watchClose(closeCh chan *amqp.Error) {
	amqpErr, ok := <-closeCh
	if !ok {
		// Clean shutdown via Close.
		return
	}

	m.logger.Error("RabbitMQ connection closed: %v", amqpErr)

	m.mu.Lock()
	m.conn = nil
	m.channel = nil
	m.state = StateDisconnected
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return
	}

	for attempt := 1; attempt <= m.maxReconnects; attempt++ {
		time.Sleep(m.reconnectDelay)

		m.mu.Lock()
		if m.closed {
			m.mu.Unlock()
			return
		}
		err := m.connectLocked()
		m.mu.Unlock()

		if err == nil {
			m.logger.Info("Reconnected to RabbitMQ after %d attempt(s)", attempt)
			return
		}
		m.logger.Warn("RabbitMQ reconnect attempt %d/%d failed: %v", attempt, m.maxReconnects, err)
	}

	m.logger.Error("Giving up on RabbitMQ reconnect after %d attempts", m.maxReconnects)
}

// Channel returns the active channel, reconnecting first if the connection
// was lost.
func (m *Manager) Channel() (*amqp.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.conn == nil || m.conn.IsClosed() || m.channel == nil {
		if err := m.connectLocked(); err != nil {
			return nil, err
		}
	}
	return m.channel, nil
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.state = StateDisconnected
	m.topologyReady = false

	if m.channel != nil {
		m.channel.Close()
		m.channel = nil
	}
	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}
	return nil
}

// Publish sends a persistent message to the notifications exchange and waits
// for broker confirmation.
func (m *Manager) Publish(ctx context.Context, routingKey string, body []byte) error {
	channel, err := m.Channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	confirm, err := channel.PublishWithDeferredConfirmWithContext(
		ctx,
		NotificationExchange, // exchange
		routingKey,           // routing key
		false,                // mandatory
		false,                // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		m.logger.Error("[RABBITMQ] Failed to publish message to exchange=%s, routing_key=%s: %v", NotificationExchange, routingKey, err)
		return fmt.Errorf("failed to publish message: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed waiting for publish confirmation: %w", err)
	}
	if !acked {
		return fmt.Errorf("message was not confirmed by the broker")
	}

	return nil
}

// Consume registers a manual-ack consumer on the main queue. Prefetch bounds
// the number of unacknowledged messages in flight; zero leaves it unlimited.
func (m *Manager) Consume(tag string, prefetch int) (<-chan amqp.Delivery, error) {
	channel, err := m.Channel()
	if err != nil {
		return nil, err
	}

	if prefetch > 0 {
		if err := channel.Qos(prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	msgs, err := channel.Consume(
		NotificationQueue, // queue
		tag,               // consumer
		false,             // auto-ack (we'll manually ack after processing)
		false,             // exclusive
		false,             // no-local
		false,             // no-wait
		nil,               // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	m.logger.Info("[RABBITMQ] Started consuming from queue: %s (prefetch=%d)", NotificationQueue, prefetch)
	return msgs, nil
}

// CancelConsumer stops deliveries to the consumer registered under tag.
func (m *Manager) CancelConsumer(tag string) error {
	channel, err := m.Channel()
	if err != nil {
		return err
	}
	if err := channel.Cancel(tag, false); err != nil {
		return fmt.Errorf("failed to cancel consumer %s: %w", tag, err)
	}
	return nil
}
