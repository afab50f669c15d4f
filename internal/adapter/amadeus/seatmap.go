package amadeus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wayfarer-ai/wayfarer/internal/domain/offers"
	"github.com/wayfarer-ai/wayfarer/internal/domain/taskdef"
	"github.com/wayfarer-ai/wayfarer/internal/port/provider"
)

// SeatMap returns the seat_map provider. It reads the best flight offer
// from the flight_search result and fetches its cabin layout.
func (c *Client) SeatMap() provider.Invoker {
	return provider.Func(c.fetchSeatMap)
}

func (c *Client) fetchSeatMap(ctx context.Context, req provider.Request) (*provider.Result, error) {
	raw, ok := req.Results[taskdef.TaskFlightSearch]
	if !ok {
		return nil, fmt.Errorf("seat map: no flight search result available")
	}
	var flights offers.FlightSearchPayload
	if err := json.Unmarshal(raw, &flights); err != nil {
		return nil, fmt.Errorf("seat map: decode flight offers: %w", err)
	}
	if len(flights.Offers) == 0 {
		return nil, fmt.Errorf("seat map: flight search returned no offers")
	}
	best := flights.Offers[0]

	body, err := json.Marshal(map[string]any{
		"data": []map[string]any{{
			"type": "flight-offer",
			"id":   best.ID,
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("seat map: %w", err)
	}

	data, err := c.post(ctx, "/v1/shopping/seatmaps", body)
	if err != nil {
		return nil, fmt.Errorf("seat map: %w", err)
	}
	return &provider.Result{Payload: data}, nil
}
