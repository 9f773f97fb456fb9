package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pulse-notify/internal/entity"
	"pulse-notify/pkg/logger"
)

type SubscriberStatus string

const (
	StatusDisconnected SubscriberStatus = "disconnected"
	StatusConnecting   SubscriberStatus = "connecting"
	StatusConnected    SubscriberStatus = "connected"
	StatusError        SubscriberStatus = "error"
)

const (
	defaultMaxReconnectAttempts = 5
	defaultReconnectInterval    = 3 * time.Second
)

type SubscriberConfig struct {
	BaseURL string
	UserID  string
	Token   string

	MaxReconnectAttempts int
	ReconnectInterval    time.Duration
	AutoConnect          bool

	OnNotification func(entity.Notification)
	OnHeartbeat    func(data string)

	HTTPClient *http.Client
}

// Subscriber is the client side of the push stream: it opens a long-lived
// event subscription for one user and reconnects with a bounded number of
// attempts when the transport drops.
type Subscriber struct {
	cfg    SubscriberConfig
	logger *logger.Logger

	// openStream is swappable so tests can feed a fake transport.
	openStream func(ctx context.Context) (io.ReadCloser, error)

	mu             sync.Mutex
	status         SubscriberStatus
	attempts       int
	transport      io.ReadCloser
	reconnectTimer *time.Timer
	closedByUser   bool
}

func NewSubscriber(cfg SubscriberConfig, log *logger.Logger) *Subscriber {
	if cfg.MaxReconnectAttempts == 0 {
		cfg.MaxReconnectAttempts = defaultMaxReconnectAttempts
	}
	if cfg.ReconnectInterval == 0 {
		cfg.ReconnectInterval = defaultReconnectInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}

	s := &Subscriber{
		cfg:    cfg,
		logger: log,
		status: StatusDisconnected,
	}
	s.openStream = s.openHTTPStream

	if cfg.AutoConnect {
		go s.Connect()
	}
	return s
}

func (s *Subscriber) Status() SubscriberStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connect opens the subscription. It is a no-op while a subscription is
// already open or being opened.
func (s *Subscriber) Connect() error {
	s.mu.Lock()
	if s.status == StatusConnected || s.status == StatusConnecting {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusConnecting
	s.closedByUser = false
	s.mu.Unlock()

	transport, err := s.openStream(context.Background())
	if err != nil {
		s.handleTransportError(err)
		return err
	}

	s.mu.Lock()
	s.transport = transport
	s.mu.Unlock()

	go s.readLoop(transport)
	return nil
}

// Disconnect cancels any pending reconnect, closes the transport and resets
// the retry counter.
func (s *Subscriber) Disconnect() {
	s.mu.Lock()
	s.closedByUser = true
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	if s.transport != nil {
		s.transport.Close()
		s.transport = nil
	}
	s.attempts = 0
	s.status = StatusDisconnected
	s.mu.Unlock()
}

func (s *Subscriber) openHTTPStream(ctx context.Context) (io.ReadCloser, error) {
	endpoint := fmt.Sprintf("%s/api/v1/notifications/stream?user_id=%s&token=%s",
		strings.TrimRight(s.cfg.BaseURL, "/"),
		url.QueryEscape(s.cfg.UserID),
		url.QueryEscape(s.cfg.Token),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to open stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("stream endpoint returned status %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// readLoop parses "event:"/"data:" frames off the transport and dispatches
// them until the transport drops.
func (s *Subscriber) readLoop(transport io.ReadCloser) {
	scanner := bufio.NewScanner(transport)

	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "":
			if event != "" {
				s.dispatch(event, data)
			}
			event, data = "", ""
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.handleTransportError(err)
}

func (s *Subscriber) dispatch(event, data string) {
	switch event {
	case EventConnected:
		s.mu.Lock()
		s.attempts = 0
		s.status = StatusConnected
		s.mu.Unlock()
		s.logger.Info("Stream connected for user %s", s.cfg.UserID)
	case EventNotification:
		var notification entity.Notification
		if err := json.Unmarshal([]byte(data), &notification); err != nil {
			s.logger.Warn("Failed to decode notification event: %v", err)
			return
		}
		if s.cfg.OnNotification != nil {
			s.cfg.OnNotification(notification)
		}
	case EventHeartbeat:
		if s.cfg.OnHeartbeat != nil {
			s.cfg.OnHeartbeat(data)
		}
	}
}

// handleTransportError marks the error state and schedules a reconnect on a
// fixed interval until the attempt budget runs out.
func (s *Subscriber) handleTransportError(err error) {
	s.mu.Lock()
	if s.closedByUser {
		s.mu.Unlock()
		return
	}

	s.status = StatusError
	if s.transport != nil {
		s.transport.Close()
		s.transport = nil
	}

	if s.attempts >= s.cfg.MaxReconnectAttempts {
		s.status = StatusDisconnected
		s.mu.Unlock()
		s.logger.Error("Stream for user %s lost, giving up after %d reconnect attempts: %v", s.cfg.UserID, s.cfg.MaxReconnectAttempts, err)
		return
	}

	s.attempts++
	attempt := s.attempts
	s.reconnectTimer = time.AfterFunc(s.cfg.ReconnectInterval, s.reconnect)
	s.mu.Unlock()

	s.logger.Warn("Stream for user %s dropped (%v), reconnect attempt %d/%d scheduled", s.cfg.UserID, err, attempt, s.cfg.MaxReconnectAttempts)
}

func (s *Subscriber) reconnect() {
	s.mu.Lock()
	if s.closedByUser {
		s.mu.Unlock()
		return
	}
	s.reconnectTimer = nil
	// Transient error state rolls back to disconnected so Connect proceeds.
	s.status = StatusDisconnected
	s.mu.Unlock()

	s.Connect()
}
