package stream

import (
	"context"
	"sync"
	"time"

	"pulse-notify/pkg/logger"
)

const defaultHeartbeatInterval = 30 * time.Second

// Sink is where encoded frames go; an HTTP response stream or a WebSocket.
// The registry owns the sink once registered and closes it on remove or
// replace.
type Sink interface {
	Write(p []byte) error
	Close() error
}

// Connection is one live push channel for a user.
type Connection struct {
	UserID       string
	sink         Sink
	ConnectedAt  time.Time
	LastActivity time.Time
}

// Registry tracks at most one live connection per user. It is in-process
// state: users connected to another instance are not reachable from here.
type Registry struct {
	logger            *logger.Logger
	heartbeatInterval time.Duration

	mu          sync.RWMutex
	connections map[string]*Connection
}

func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		logger:            log,
		heartbeatInterval: defaultHeartbeatInterval,
		connections:       make(map[string]*Connection),
	}
}

// Register installs a new connection for the user. An existing connection is
// closed and replaced. A heartbeat loop runs until the connection is gone or
// ctx is cancelled.
func (r *Registry) Register(ctx context.Context, userID string, sink Sink) *Connection {
	now := time.Now().UTC()
	conn := &Connection{
		UserID:       userID,
		sink:         sink,
		ConnectedAt:  now,
		LastActivity: now,
	}

	r.mu.Lock()
	if prev, ok := r.connections[userID]; ok {
		prev.sink.Close()
		r.logger.Info("Replacing live connection for user %s", userID)
	}
	r.connections[userID] = conn
	r.mu.Unlock()

	go r.heartbeatLoop(ctx, conn)
	return conn
}

// Remove closes the user's sink and drops the entry. A sink that is already
// closed is tolerated.
func (r *Registry) Remove(userID string) {
	r.mu.Lock()
	conn, ok := r.connections[userID]
	if ok {
		delete(r.connections, userID)
	}
	r.mu.Unlock()

	if ok {
		conn.sink.Close()
	}
}

// RemoveIfCurrent drops the entry only if it still belongs to the given
// connection. Transport handlers use this on teardown so they never evict a
// replacement connection.
func (r *Registry) RemoveIfCurrent(conn *Connection) {
	r.mu.Lock()
	current, ok := r.connections[conn.UserID]
	if ok && current == conn {
		delete(r.connections, conn.UserID)
	} else {
		ok = false
	}
	r.mu.Unlock()

	if ok {
		conn.sink.Close()
	}
}

// Send encodes a frame and writes it to the user's connection. It reports
// false when the user has no live connection; the message is not queued. A
// write failure evicts the connection.
func (r *Registry) Send(userID, event string, payload interface{}) bool {
	r.mu.RLock()
	conn, ok := r.connections[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	frame, err := EncodeFrame(event, payload)
	if err != nil {
		r.logger.Error("Failed to encode %s frame for user %s: %v", event, userID, err)
		return false
	}

	if err := conn.sink.Write(frame); err != nil {
		r.logger.Warn("Failed to write to connection for user %s, evicting: %v", userID, err)
		r.RemoveIfCurrent(conn)
		return false
	}

	r.mu.Lock()
	conn.LastActivity = time.Now().UTC()
	r.mu.Unlock()
	return true
}

// SendToMany delivers the event to each user and returns sent/failed counts.
func (r *Registry) SendToMany(userIDs []string, event string, payload interface{}) (sent, failed int) {
	for _, userID := range userIDs {
		if r.Send(userID, event, payload) {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}

// Broadcast delivers the event to every live connection.
func (r *Registry) Broadcast(event string, payload interface{}) (sent, failed int) {
	return r.SendToMany(r.ActiveUsers(), event, payload)
}

// Count returns the number of live connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// ActiveUsers lists the user ids with a live connection.
func (r *Registry) ActiveUsers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]string, 0, len(r.connections))
	for userID := range r.connections {
		users = append(users, userID)
	}
	return users
}

// Get returns the user's live connection, if any.
func (r *Registry) Get(userID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[userID]
	return conn, ok
}

// heartbeatLoop fires a heartbeat event on a fixed interval. It stops
// silently once the connection is gone or ctx is cancelled; heartbeats are
// fire-and-forget.
func (r *Registry) heartbeatLoop(ctx context.Context, conn *Connection) {
	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			current, ok := r.Get(conn.UserID)
			if !ok || current != conn {
				return
			}
			r.Send(conn.UserID, EventHeartbeat, map[string]interface{}{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
		}
	}
}
