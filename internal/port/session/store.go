// Package session defines the session persistence port.
package session

import (
	"context"

	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
)

// Store persists the per-session requirement state. Implementations must
// provide read-your-writes within the process: a Save followed by a Load for
// the same session returns the saved state. Load returns domain.ErrNotFound
// for unknown sessions.
type Store interface {
	Load(ctx context.Context, sessionID string) (*trip.State, error)
	Save(ctx context.Context, state *trip.State) error
}
