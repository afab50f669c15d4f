// Package extractor defines the port for the natural-language requirement
// extractor.
package extractor

import (
	"context"

	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
)

// Extraction is what one pass over a user message yields: a partial
// requirements delta and the fields the extractor still considers unknown.
type Extraction struct {
	Delta   trip.Delta
	Missing []string
}

// Extractor turns free text plus prior session state into a requirements
// delta. Implementations are untrusted input: they must only return values
// the user actually stated or clearly implied, and the orchestrator treats
// whatever comes back as a fill-in delta, never as ground truth.
type Extractor interface {
	Extract(ctx context.Context, userText string, prior *trip.State) (*Extraction, error)
}
