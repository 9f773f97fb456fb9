package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"pulse-notify/internal/entity"
	"pulse-notify/internal/stream"
	"pulse-notify/pkg/logger"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// DispatcherConfig tunes one consumer run.
type DispatcherConfig struct {
	// Prefetch bounds unacknowledged messages in flight; this is the only
	// backpressure control in the pipeline. Zero means unlimited.
	Prefetch int

	// Handlers overrides delivery handlers per type. Types without an
	// override use the default stubs.
	Handlers map[entity.NotificationType]DeliveryHandler

	// OnError, when set, is invoked with every message-processing failure.
	OnError func(error)
}

// Dispatcher consumes the main queue, applies the preference gates and
// invokes the per-type delivery handler. One consumer handle is tracked for
// shutdown at a time.
type Dispatcher struct {
	broker   Broker
	prefs    PreferenceGetter
	history  HistoryAppender
	registry LivePusher
	logger   *logger.Logger

	mu          sync.Mutex
	consumerTag string
	handlers    map[entity.NotificationType]DeliveryHandler
	onError     func(error)
}

func NewDispatcher(broker Broker, prefs PreferenceGetter, history HistoryAppender, registry LivePusher, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		broker:   broker,
		prefs:    prefs,
		history:  history,
		registry: registry,
		logger:   log,
	}
}

// Start ensures the topology and begins consuming. Starting while a consumer
// is already tracked replaces the tracked handle; the previous consumer keeps
// draining until cancelled.
func (d *Dispatcher) Start(ctx context.Context, cfg DispatcherConfig) error {
	if err := d.broker.EnsureTopology(); err != nil {
		return fmt.Errorf("failed to ensure topology: %w", err)
	}

	handlers := DefaultHandlers(d.logger)
	for notificationType, handler := range cfg.Handlers {
		handlers[notificationType] = handler
	}

	tag := "notifier-" + uuid.NewString()[:8]
	msgs, err := d.broker.Consume(tag, cfg.Prefetch)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.consumerTag = tag
	d.handlers = handlers
	d.onError = cfg.OnError
	d.mu.Unlock()

	go func() {
		for msg := range msgs {
			d.Process(ctx, msg)
		}
		d.logger.Info("Consumer %s delivery channel closed", tag)
	}()

	d.logger.Info("Dispatcher started with consumer tag %s", tag)
	return nil
}

// Stop cancels the given consumer, or the tracked one when tag is empty, and
// clears tracking.
func (d *Dispatcher) Stop(tag string) error {
	d.mu.Lock()
	if tag == "" {
		tag = d.consumerTag
	}
	if tag == d.consumerTag {
		d.consumerTag = ""
	}
	d.mu.Unlock()

	if tag == "" {
		return nil
	}
	return d.broker.CancelConsumer(tag)
}

// Process handles one delivery: parse, gate, dispatch, then ack or reject.
// Gate suppressions are acked as handled; parse and handler failures are
// rejected with requeue.
func (d *Dispatcher) Process(ctx context.Context, msg amqp.Delivery) {
	var message entity.QueueMessage
	if err := json.Unmarshal(msg.Body, &message); err != nil {
		d.fail(msg, fmt.Errorf("failed to unmarshal queue message: %w", err))
		return
	}

	notification := message.Notification
	prefs := d.prefs.Get(ctx, notification.UserID)

	if !prefs.ChannelEnabled(notification.Type) {
		d.suppress(msg, notification, "channel disabled")
		return
	}

	if !prefs.CategoryEnabled(notification.Category) {
		d.suppress(msg, notification, "category disabled")
		return
	}

	if d.inQuietHours(prefs, notification) {
		d.suppress(msg, notification, "quiet hours")
		return
	}

	d.mu.Lock()
	handler, ok := d.handlers[notification.Type]
	d.mu.Unlock()
	if !ok {
		d.fail(msg, fmt.Errorf("no delivery handler configured for type %s", notification.Type))
		return
	}

	if err := handler(ctx, notification, prefs); err != nil {
		d.fail(msg, fmt.Errorf("delivery handler for %s failed: %w", notification.Type, err))
		return
	}

	// Persistence and live push are best-effort once the handler succeeded.
	if err := d.history.Append(ctx, notification.UserID, notification); err != nil {
		d.logger.Warn("Failed to append notification %s to history: %v", notification.ID, err)
	}
	if !d.registry.Send(notification.UserID, stream.EventNotification, notification) {
		d.logger.Info("User %s has no live connection, skipping real-time push", notification.UserID)
	}

	if err := msg.Ack(false); err != nil {
		d.logger.Error("Failed to ack message %s: %v", notification.ID, err)
	}
}

// inQuietHours applies gate 3. Security notifications always bypass the
// window.
func (d *Dispatcher) inQuietHours(prefs entity.UserPreferences, notification entity.Notification) bool {
	if prefs.QuietHours == nil || !prefs.QuietHours.Enabled {
		return false
	}
	if notification.Category == entity.CategorySecurity {
		return false
	}
	return prefs.QuietHours.Contains(time.Now())
}

// suppress acks the message as handled-but-suppressed; suppressed
// notifications are dropped, not deferred.
func (d *Dispatcher) suppress(msg amqp.Delivery, notification entity.Notification, reason string) {
	d.logger.Info("Suppressing notification %s for user %s: %s", notification.ID, notification.UserID, reason)
	if err := msg.Ack(false); err != nil {
		d.logger.Error("Failed to ack suppressed message %s: %v", notification.ID, err)
	}
}

// fail rejects the message with requeue enabled and reports the error.
func (d *Dispatcher) fail(msg amqp.Delivery, err error) {
	d.logger.Error("Message processing failed: %v", err)
	if nackErr := msg.Nack(false, true); nackErr != nil {
		d.logger.Error("Failed to nack message: %v", nackErr)
	}

	d.mu.Lock()
	onError := d.onError
	d.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}
