// Package provider defines the port every external retrieval and enrichment
// provider implements.
package provider

import (
	"context"
	"encoding/json"

	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
	"github.com/wayfarer-ai/wayfarer/internal/port/profile"
)

// Request carries the inputs for one provider invocation. Fields is a copy
// of the session requirements; Results holds the payloads of tasks that had
// succeeded when this invocation was claimed, so dependent providers can
// read their inputs. Profile may be nil for anonymous sessions.
type Request struct {
	SessionID string
	Fields    trip.Fields
	Results   map[string]json.RawMessage
	Profile   *profile.Profile
}

// Result is a successful provider response. Payload is opaque to the
// orchestrator. FieldDeltas, when non-nil, is merged back into the session
// fields under the usual fill-in rule (an enrichment provider populating
// enhanced_offers, for example).
type Result struct {
	Payload     json.RawMessage
	FieldDeltas trip.Delta
}

// Invoker is one external provider. Invocations must be idempotent per
// session: the scheduler may retry a failed task on a later turn with the
// same inputs. Implementations honor ctx cancellation where their transport
// allows it; the scheduler stops waiting either way.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

// Func adapts a plain function to the Invoker interface.
type Func func(ctx context.Context, req Request) (*Result, error)

// Invoke implements Invoker.
func (f Func) Invoke(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}

// Set maps task names to their providers.
type Set map[string]Invoker
