// Package broadcast defines the port for pushing real-time session events
// to connected clients.
package broadcast

import "context"

// Broadcaster delivers a typed event to connected clients. Payloads carry a
// session_id field that implementations may use to scope delivery; delivery
// is best effort and never blocks the caller.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}
