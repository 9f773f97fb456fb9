package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pulse-notify/internal/stream"
	"pulse-notify/pkg/jwt"
	"pulse-notify/pkg/logger"

	"github.com/stretchr/testify/assert"
)

func newStreamFixture() (*StreamHandler, *stream.Registry, *jwt.Service) {
	registry := stream.NewRegistry(logger.New())
	jwtService := jwt.NewService("test-secret")
	return NewStreamHandler(registry, jwtService, logger.New()), registry, jwtService
}

func TestHandleStream_MissingToken(t *testing.T) {
	handler, _, _ := newStreamFixture()
	router := setupRouter("")
	router.GET("/stream", handler.HandleStream)

	w := performJSON(t, router, http.MethodGet, "/stream", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token required")
}

func TestHandleStream_InvalidToken(t *testing.T) {
	handler, _, _ := newStreamFixture()
	router := setupRouter("")
	router.GET("/stream", handler.HandleStream)

	w := performJSON(t, router, http.MethodGet, "/stream?token=garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")
}

func TestHandleStream_SendsConnectedFrame(t *testing.T) {
	handler, registry, jwtService := newStreamFixture()
	router := setupRouter("")
	router.GET("/stream", handler.HandleStream)

	token, err := jwtService.GenerateToken("u1", "user")
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/stream?token="+token, nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()

	// The connection registers and gets the greeting frame.
	assert.Eventually(t, func() bool { return registry.Count() == 1 }, time.Second, 5*time.Millisecond)

	// Push a live notification while the stream is open.
	assert.True(t, registry.Send("u1", stream.EventNotification, map[string]interface{}{"id": "n1"}))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream handler did not return after context cancel")
	}

	body := w.Body.String()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.True(t, strings.Contains(body, "event: connected\n"))
	assert.Contains(t, body, `"userId":"u1"`)
	assert.Contains(t, body, "event: notification\n")

	// Teardown removed the connection.
	assert.Equal(t, 0, registry.Count())
}

func TestHandleStream_ReplacedConnectionDoesNotEvictNewOne(t *testing.T) {
	handler, registry, jwtService := newStreamFixture()
	router := setupRouter("")
	router.GET("/stream", handler.HandleStream)

	token, err := jwtService.GenerateToken("u1", "user")
	assert.NoError(t, err)

	openStream := func() (cancel context.CancelFunc, done chan struct{}) {
		ctx, cancelCtx := context.WithCancel(context.Background())
		req := httptest.NewRequest(http.MethodGet, "/stream?token="+token, nil).WithContext(ctx)
		w := httptest.NewRecorder()
		done = make(chan struct{})
		go func() {
			router.ServeHTTP(w, req)
			close(done)
		}()
		return cancelCtx, done
	}

	firstCancel, firstDone := openStream()
	assert.Eventually(t, func() bool { return registry.Count() == 1 }, time.Second, 5*time.Millisecond)
	firstConn, _ := registry.Get("u1")

	// A second stream for the same user replaces the first.
	secondCancel, secondDone := openStream()
	assert.Eventually(t, func() bool {
		current, ok := registry.Get("u1")
		return ok && current != firstConn
	}, time.Second, 5*time.Millisecond)

	// The replaced handler unwinds without touching the new connection.
	select {
	case <-firstDone:
	case <-time.After(time.Second):
		t.Fatal("replaced stream handler did not return")
	}
	assert.Equal(t, 1, registry.Count())
	assert.True(t, registry.Send("u1", stream.EventNotification, "x"))

	secondCancel()
	firstCancel()
	select {
	case <-secondDone:
	case <-time.After(time.Second):
		t.Fatal("second stream handler did not return")
	}
}
