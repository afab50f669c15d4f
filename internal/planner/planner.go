// Package planner implements the in-process planning providers: offer
// enrichment, flight curation, and the draft itinerary. They run inside the
// scheduler like any external provider but work purely on the results of
// the search tasks.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/domain/offers"
	"github.com/wayfarer-ai/wayfarer/internal/domain/taskdef"
	"github.com/wayfarer-ai/wayfarer/internal/port/provider"
)

const (
	maxEnrichedOffers = 5
	maxCuratedFlights = 3

	// stopPenalty prices one stop for ranking: a nonstop beats a
	// connection unless it is meaningfully cheaper.
	stopPenalty = 75.0
)

// OfferEnrichment returns the offer_enrichment provider. It pairs each
// flight with the best hotel into package offers and writes them into the
// session's enhanced_offers field.
func OfferEnrichment() provider.Invoker {
	return provider.Func(enrichOffers)
}

func enrichOffers(_ context.Context, req provider.Request) (*provider.Result, error) {
	flights, err := flightResults(req)
	if err != nil {
		return nil, fmt.Errorf("offer enrichment: %w", err)
	}
	hotels, err := hotelResults(req)
	if err != nil {
		return nil, fmt.Errorf("offer enrichment: %w", err)
	}

	bestHotel := slices.MinFunc(hotels, func(a, b offers.HotelOffer) int {
		switch {
		case a.TotalPrice < b.TotalPrice:
			return -1
		case a.TotalPrice > b.TotalPrice:
			return 1
		}
		return 0
	})

	payload := offers.EnrichmentPayload{}
	for _, fl := range flights {
		total := fl.Price + bestHotel.TotalPrice
		within := req.Fields.Budget == nil || total <= *req.Fields.Budget
		payload.Offers = append(payload.Offers, offers.EnrichedOffer{
			Flight:       fl,
			Hotel:        bestHotel,
			PackagePrice: total,
			Currency:     fl.Currency,
			WithinBudget: within,
		})
	}

	slices.SortStableFunc(payload.Offers, func(a, b offers.EnrichedOffer) int {
		switch {
		case a.PackagePrice < b.PackagePrice:
			return -1
		case a.PackagePrice > b.PackagePrice:
			return 1
		}
		return 0
	})
	if len(payload.Offers) > maxEnrichedOffers {
		payload.Offers = payload.Offers[:maxEnrichedOffers]
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("offer enrichment: %w", err)
	}
	return &provider.Result{
		Payload:     data,
		FieldDeltas: map[string]any{"enhanced_offers": json.RawMessage(data)},
	}, nil
}

// FlightCuration returns the flight_curation provider. It shortlists the
// enriched offers' flights, nonstop-first within price, and writes the
// shortlist into the curated_flights field.
func FlightCuration() provider.Invoker {
	return provider.Func(curateFlights)
}

func curateFlights(_ context.Context, req provider.Request) (*provider.Result, error) {
	raw, ok := req.Results[taskdef.TaskOfferEnrichment]
	if !ok {
		return nil, fmt.Errorf("flight curation: no enrichment result available")
	}
	var enriched offers.EnrichmentPayload
	if err := json.Unmarshal(raw, &enriched); err != nil {
		return nil, fmt.Errorf("flight curation: decode enrichment: %w", err)
	}
	if len(enriched.Offers) == 0 {
		return nil, fmt.Errorf("flight curation: enrichment produced no offers")
	}

	flights := make([]offers.FlightOffer, 0, len(enriched.Offers))
	for _, o := range enriched.Offers {
		flights = append(flights, o.Flight)
	}
	slices.SortStableFunc(flights, func(a, b offers.FlightOffer) int {
		sa := a.Price + float64(a.Stops)*stopPenalty
		sb := b.Price + float64(b.Stops)*stopPenalty
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
		return 0
	})
	if len(flights) > maxCuratedFlights {
		flights = flights[:maxCuratedFlights]
	}

	data, err := json.Marshal(offers.CurationPayload{Flights: flights})
	if err != nil {
		return nil, fmt.Errorf("flight curation: %w", err)
	}
	return &provider.Result{
		Payload:     data,
		FieldDeltas: map[string]any{"curated_flights": json.RawMessage(data)},
	}, nil
}

// Itinerary returns the itinerary provider: a day-by-day skeleton of the
// trip, anchored on the arrival and departure days.
func Itinerary() provider.Invoker {
	return provider.Func(buildItinerary)
}

func buildItinerary(_ context.Context, req provider.Request) (*provider.Result, error) {
	f := req.Fields
	if f.Destination == nil || f.DepartureDate == nil || f.Duration == nil {
		return nil, fmt.Errorf("itinerary: destination, departure_date and duration are required")
	}
	start, err := time.Parse("2006-01-02", *f.DepartureDate)
	if err != nil {
		return nil, fmt.Errorf("itinerary: bad departure_date %q: %w", *f.DepartureDate, err)
	}

	hotels, err := hotelResults(req)
	if err != nil {
		return nil, fmt.Errorf("itinerary: %w", err)
	}

	payload := offers.ItineraryPayload{Destination: *f.Destination}
	days := *f.Duration
	for i := 0; i < days; i++ {
		day := offers.ItineraryDay{
			Day:  i + 1,
			Date: start.AddDate(0, 0, i).Format("2006-01-02"),
		}
		switch i {
		case 0:
			day.Title = "Arrival"
			day.Notes = fmt.Sprintf("Check in at %s", hotels[0].Name)
		case days - 1:
			day.Title = "Departure"
			day.Notes = "Check out and transfer to the airport"
		default:
			day.Title = fmt.Sprintf("Explore %s", *f.Destination)
		}
		payload.Days = append(payload.Days, day)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("itinerary: %w", err)
	}
	return &provider.Result{Payload: data}, nil
}

func flightResults(req provider.Request) ([]offers.FlightOffer, error) {
	raw, ok := req.Results[taskdef.TaskFlightSearch]
	if !ok {
		return nil, fmt.Errorf("no flight search result available")
	}
	var payload offers.FlightSearchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode flight offers: %w", err)
	}
	if len(payload.Offers) == 0 {
		return nil, fmt.Errorf("flight search returned no offers")
	}
	return payload.Offers, nil
}

func hotelResults(req provider.Request) ([]offers.HotelOffer, error) {
	raw, ok := req.Results[taskdef.TaskHotelSearch]
	if !ok {
		return nil, fmt.Errorf("no hotel search result available")
	}
	var payload offers.HotelSearchPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode hotel offers: %w", err)
	}
	if len(payload.Offers) == 0 {
		return nil, fmt.Errorf("hotel search returned no offers")
	}
	return payload.Offers, nil
}
