package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventTurnCompleted = "turn_completed"
	EventTaskResult    = "task_result"
)

// BroadcastEvent marshals a typed event and routes it to the clients
// watching the payload's session. Payloads without a session_id field go to
// every connection.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	var scope struct {
		SessionID string `json:"session_id"`
	}
	_ = json.Unmarshal(data, &scope)

	h.Broadcast(ctx, scope.SessionID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
