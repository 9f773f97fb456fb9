package stream

import (
	"encoding/json"
	"fmt"
)

// Event names on the push stream.
const (
	EventConnected    = "connected"
	EventNotification = "notification"
	EventHeartbeat    = "heartbeat"
)

// EncodeFrame renders one wire frame: "event: <name>\ndata: <payload>\n\n".
// String payloads are written as-is; everything else is JSON-encoded.
func EncodeFrame(event string, payload interface{}) ([]byte, error) {
	var data string
	switch v := payload.(type) {
	case string:
		data = v
	default:
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode frame payload: %w", err)
		}
		data = string(raw)
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)), nil
}
