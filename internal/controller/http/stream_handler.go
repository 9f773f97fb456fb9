package http

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"pulse-notify/internal/stream"
	"pulse-notify/pkg/jwt"
	"pulse-notify/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type StreamHandler struct {
	registry   *stream.Registry
	jwtService *jwt.Service
	logger     *logger.Logger
}

func NewStreamHandler(registry *stream.Registry, jwtService *jwt.Service, logger *logger.Logger) *StreamHandler {
	return &StreamHandler{
		registry:   registry,
		jwtService: jwtService,
		logger:     logger,
	}
}

// authenticate resolves the user id from the token query parameter. A
// long-lived stream cannot carry an Authorization header from EventSource,
// so the token travels in the query string.
func (h *StreamHandler) authenticate(c *gin.Context) (string, bool) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return "", false
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return "", false
	}
	return claims.UserID, true
}

// HandleStream serves the push stream over a long-lived chunked HTTP
// response. Frames are flushed as they are written.
func (h *StreamHandler) HandleStream(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	sink := newResponseSink(c.Writer)
	conn := h.registry.Register(c.Request.Context(), userID, sink)

	h.registry.Send(userID, stream.EventConnected, map[string]interface{}{
		"userId":    userID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   "Connected to notification stream",
	})

	// Block until the client goes away or the connection is replaced.
	select {
	case <-c.Request.Context().Done():
	case <-sink.closed:
	}
	h.registry.RemoveIfCurrent(conn)
	h.logger.Info("Stream closed for user %s", userID)
}

// HandleWebSocket serves the same framed events over a WebSocket for clients
// that cannot hold a streaming HTTP response open.
func (h *StreamHandler) HandleWebSocket(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket for user %s: %v", userID, err)
		return
	}

	sink := &websocketSink{conn: wsConn}
	conn := h.registry.Register(c.Request.Context(), userID, sink)

	h.registry.Send(userID, stream.EventConnected, map[string]interface{}{
		"userId":    userID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"message":   "Connected to notification stream",
	})

	// The stream is server-to-client only; the read loop just detects the
	// client closing.
	for {
		if _, _, err := wsConn.ReadMessage(); err != nil {
			break
		}
	}
	h.registry.RemoveIfCurrent(conn)
	h.logger.Info("WebSocket closed for user %s", userID)
}

// responseSink writes frames to a streaming HTTP response.
type responseSink struct {
	mu     sync.Mutex
	writer gin.ResponseWriter
	closed chan struct{}
	once   sync.Once
}

func newResponseSink(writer gin.ResponseWriter) *responseSink {
	return &responseSink{
		writer: writer,
		closed: make(chan struct{}),
	}
}

func (s *responseSink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return fmt.Errorf("sink is closed")
	default:
	}

	if _, err := s.writer.Write(p); err != nil {
		return err
	}
	s.writer.Flush()
	return nil
}

func (s *responseSink) Close() error {
	s.once.Do(func() {
		close(s.closed)
	})
	return nil
}

// websocketSink writes frames as text messages on a WebSocket.
type websocketSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
	once sync.Once
}

func (s *websocketSink) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, p)
}

func (s *websocketSink) Close() error {
	var err error
	s.once.Do(func() {
		err = s.conn.Close()
	})
	return err
}
