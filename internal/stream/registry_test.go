package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pulse-notify/pkg/logger"

	"github.com/stretchr/testify/assert"
)

type fakeSink struct {
	mu       sync.Mutex
	writes   []string
	writeErr error
	closes   int
}

func (f *fakeSink) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, string(p))
	return nil
}

func (f *fakeSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeSink) closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes > 0
}

func (f *fakeSink) frames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.writes))
	copy(out, f.writes)
	return out
}

func TestRegistry_RegisterAndSend(t *testing.T) {
	registry := NewRegistry(logger.New())
	sink := &fakeSink{}

	registry.Register(context.Background(), "u1", sink)
	assert.Equal(t, 1, registry.Count())

	ok := registry.Send("u1", EventNotification, map[string]interface{}{"id": "n1"})
	assert.True(t, ok)

	frames := sink.frames()
	assert.Len(t, frames, 1)
	assert.True(t, strings.HasPrefix(frames[0], "event: notification\n"))
}

func TestRegistry_SendToAbsentUser(t *testing.T) {
	registry := NewRegistry(logger.New())
	assert.False(t, registry.Send("nobody", EventNotification, "x"))
}

func TestRegistry_ReplaceClosesPrevious(t *testing.T) {
	registry := NewRegistry(logger.New())
	first := &fakeSink{}
	second := &fakeSink{}

	registry.Register(context.Background(), "u1", first)
	registry.Register(context.Background(), "u1", second)

	assert.Equal(t, 1, registry.Count())
	assert.True(t, first.closed())
	assert.False(t, second.closed())

	// Frames go to the replacement only.
	registry.Send("u1", EventNotification, "x")
	assert.Empty(t, first.frames())
	assert.Len(t, second.frames(), 1)
}

func TestRegistry_RemoveClosesSink(t *testing.T) {
	registry := NewRegistry(logger.New())
	sink := &fakeSink{}

	registry.Register(context.Background(), "u1", sink)
	registry.Remove("u1")

	assert.Equal(t, 0, registry.Count())
	assert.True(t, sink.closed())
	assert.False(t, registry.Send("u1", EventNotification, "x"))
}

func TestRegistry_RemoveIfCurrentSkipsReplacement(t *testing.T) {
	registry := NewRegistry(logger.New())
	first := &fakeSink{}
	second := &fakeSink{}

	old := registry.Register(context.Background(), "u1", first)
	registry.Register(context.Background(), "u1", second)

	// Teardown of the replaced connection must not evict the new one.
	registry.RemoveIfCurrent(old)

	assert.Equal(t, 1, registry.Count())
	assert.False(t, second.closed())
	assert.True(t, registry.Send("u1", EventNotification, "x"))
}

func TestRegistry_WriteFailureEvicts(t *testing.T) {
	registry := NewRegistry(logger.New())
	sink := &fakeSink{writeErr: errors.New("broken pipe")}

	registry.Register(context.Background(), "u1", sink)

	assert.False(t, registry.Send("u1", EventNotification, "x"))
	assert.Equal(t, 0, registry.Count())
	assert.True(t, sink.closed())
}

func TestRegistry_SendToMany(t *testing.T) {
	registry := NewRegistry(logger.New())
	registry.Register(context.Background(), "u1", &fakeSink{})
	registry.Register(context.Background(), "u2", &fakeSink{})

	sent, failed := registry.SendToMany([]string{"u1", "u2", "u3"}, EventNotification, "x")
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, failed)
}

func TestRegistry_Broadcast(t *testing.T) {
	registry := NewRegistry(logger.New())
	registry.Register(context.Background(), "u1", &fakeSink{})
	registry.Register(context.Background(), "u2", &fakeSink{})

	sent, failed := registry.Broadcast(EventNotification, "x")
	assert.Equal(t, 2, sent)
	assert.Equal(t, 0, failed)
}

func TestRegistry_ActiveUsers(t *testing.T) {
	registry := NewRegistry(logger.New())
	registry.Register(context.Background(), "u1", &fakeSink{})
	registry.Register(context.Background(), "u2", &fakeSink{})

	users := registry.ActiveUsers()
	assert.ElementsMatch(t, []string{"u1", "u2"}, users)
}

func TestRegistry_HeartbeatFrames(t *testing.T) {
	registry := NewRegistry(logger.New())
	registry.heartbeatInterval = 10 * time.Millisecond
	sink := &fakeSink{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry.Register(ctx, "u1", sink)

	assert.Eventually(t, func() bool {
		for _, frame := range sink.frames() {
			if strings.HasPrefix(frame, "event: heartbeat\n") {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}

func TestRegistry_HeartbeatStopsAfterRemove(t *testing.T) {
	registry := NewRegistry(logger.New())
	registry.heartbeatInterval = 10 * time.Millisecond
	sink := &fakeSink{}

	registry.Register(context.Background(), "u1", sink)
	registry.Remove("u1")

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, sink.frames())
}
