package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
	"github.com/wayfarer-ai/wayfarer/internal/port/provider"
)

// DestinationDiscovery returns the destination_discovery provider. It asks
// the flight inspiration API for reachable destinations from the
// traveller's home airport and promotes the cheapest match into the
// session's destination field.
func (c *Client) DestinationDiscovery() provider.Invoker {
	return provider.Func(c.discoverDestinations)
}

func (c *Client) discoverDestinations(ctx context.Context, req provider.Request) (*provider.Result, error) {
	origin := defaultOrigin
	if req.Profile != nil && req.Profile.HomeAirport != "" {
		origin = req.Profile.HomeAirport
	}

	query := url.Values{"origin": {origin}}
	if req.Fields.Budget != nil {
		query.Set("maxPrice", fmt.Sprintf("%d", int(*req.Fields.Budget)))
	}
	if req.Fields.DepartureDate != nil {
		query.Set("departureDate", *req.Fields.DepartureDate)
	}

	raw, err := c.get(ctx, "/v1/shopping/flight-destinations", query)
	if err != nil {
		return nil, fmt.Errorf("destination discovery: %w", err)
	}

	var resp struct {
		Data []struct {
			Destination string `json:"destination"`
			Price       struct {
				Total string `json:"total"`
			} `json:"price"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("destination discovery: unmarshal: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("destination discovery: no destinations from %s", origin)
	}

	candidates := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		candidates = append(candidates, d.Destination)
	}
	payload, err := json.Marshal(map[string]any{"candidates": candidates})
	if err != nil {
		return nil, fmt.Errorf("destination discovery: %w", err)
	}

	// The inspiration API returns results cheapest-first; the top hit
	// becomes the working destination. The traveller can still override it
	// on the next turn.
	return &provider.Result{
		Payload:     payload,
		FieldDeltas: trip.Delta{"destination": candidates[0]},
	}, nil
}
