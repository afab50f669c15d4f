package advisory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/wayfarer-ai/wayfarer/internal/port/provider"
)

// fallbackNationality is assumed when the session has no traveller profile.
// Visa rules are advisory output, not booking state, so a wrong assumption
// surfaces in the rendered text rather than in a reservation.
const fallbackNationality = "US"

// VisaCheck returns the visa_check provider.
func (c *Client) VisaCheck() provider.Invoker {
	return provider.Func(func(ctx context.Context, req provider.Request) (*provider.Result, error) {
		if req.Fields.Destination == nil {
			return nil, fmt.Errorf("visa check: destination is required")
		}
		nationality := fallbackNationality
		if req.Profile != nil && req.Profile.Nationality != "" {
			nationality = req.Profile.Nationality
		}

		data, err := c.get(ctx, "/v1/visa", url.Values{
			"nationality": {nationality},
			"destination": {*req.Fields.Destination},
		})
		if err != nil {
			return nil, fmt.Errorf("visa check: %w", err)
		}
		return &provider.Result{Payload: data}, nil
	})
}

// HealthAdvisory returns the health_advisory provider.
func (c *Client) HealthAdvisory() provider.Invoker {
	return provider.Func(func(ctx context.Context, req provider.Request) (*provider.Result, error) {
		if req.Fields.Destination == nil {
			return nil, fmt.Errorf("health advisory: destination is required")
		}
		data, err := c.get(ctx, "/v1/health", url.Values{
			"destination": {*req.Fields.Destination},
		})
		if err != nil {
			return nil, fmt.Errorf("health advisory: %w", err)
		}
		return &provider.Result{Payload: data}, nil
	})
}

// InsuranceQuote returns the insurance_quote provider.
func (c *Client) InsuranceQuote() provider.Invoker {
	return provider.Func(func(ctx context.Context, req provider.Request) (*provider.Result, error) {
		f := req.Fields
		if f.Destination == nil || f.DepartureDate == nil {
			return nil, fmt.Errorf("insurance quote: destination and departure_date are required")
		}

		query := url.Values{
			"destination": {*f.Destination},
			"departure":   {*f.DepartureDate},
		}
		if f.Duration != nil {
			query.Set("duration", strconv.Itoa(*f.Duration))
		}
		travellers := 1
		if f.Passengers != nil {
			travellers = *f.Passengers
		}
		if f.Children != nil {
			travellers += *f.Children
		}
		query.Set("travellers", strconv.Itoa(travellers))

		data, err := c.get(ctx, "/v1/insurance/quote", query)
		if err != nil {
			return nil, fmt.Errorf("insurance quote: %w", err)
		}
		return &provider.Result{Payload: data}, nil
	})
}

// EventSearch returns the event_search provider. It runs while the draft is
// still forming, whenever the traveller mentioned an event.
func (c *Client) EventSearch() provider.Invoker {
	return provider.Func(func(ctx context.Context, req provider.Request) (*provider.Result, error) {
		f := req.Fields
		if f.Destination == nil {
			return nil, fmt.Errorf("event search: destination is required")
		}

		query := url.Values{"city": {*f.Destination}}
		if f.EventName != nil {
			query.Set("name", *f.EventName)
		}
		if f.EventType != nil {
			query.Set("type", *f.EventType)
		}
		if f.DepartureDate != nil {
			query.Set("from", *f.DepartureDate)
		}

		data, err := c.get(ctx, "/v1/events", query)
		if err != nil {
			return nil, fmt.Errorf("event search: %w", err)
		}
		return &provider.Result{Payload: data}, nil
	})
}
