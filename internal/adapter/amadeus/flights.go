package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wayfarer-ai/wayfarer/internal/domain/offers"
	"github.com/wayfarer-ai/wayfarer/internal/port/provider"
)

// defaultOrigin is used when the traveller has no profile or no home
// airport on file.
const defaultOrigin = "LON"

const maxFlightOffers = 10

// FlightSearch returns the flight_search provider.
func (c *Client) FlightSearch() provider.Invoker {
	return provider.Func(c.searchFlights)
}

func (c *Client) searchFlights(ctx context.Context, req provider.Request) (*provider.Result, error) {
	f := req.Fields
	if f.Destination == nil || f.DepartureDate == nil || f.Passengers == nil {
		return nil, fmt.Errorf("flight search: destination, departure_date and passengers are required")
	}

	origin := defaultOrigin
	if req.Profile != nil && req.Profile.HomeAirport != "" {
		origin = req.Profile.HomeAirport
	}

	query := url.Values{
		"originLocationCode":      {origin},
		"destinationLocationCode": {airportCode(*f.Destination)},
		"departureDate":           {*f.DepartureDate},
		"adults":                  {strconv.Itoa(*f.Passengers)},
		"max":                     {strconv.Itoa(maxFlightOffers)},
	}
	if f.ReturnDate != nil {
		query.Set("returnDate", *f.ReturnDate)
	}
	if f.Children != nil && *f.Children > 0 {
		query.Set("children", strconv.Itoa(*f.Children))
	}
	if f.TravelClass != nil {
		query.Set("travelClass", strings.ToUpper(*f.TravelClass))
	}
	if f.Budget != nil {
		query.Set("maxPrice", strconv.Itoa(int(*f.Budget)))
	}

	raw, err := c.get(ctx, "/v2/shopping/flight-offers", query)
	if err != nil {
		return nil, fmt.Errorf("flight search: %w", err)
	}

	payload, err := normalizeFlightOffers(raw)
	if err != nil {
		return nil, fmt.Errorf("flight search: %w", err)
	}
	if len(payload.Offers) == 0 {
		return nil, fmt.Errorf("flight search: no offers for %s on %s", *f.Destination, *f.DepartureDate)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("flight search: %w", err)
	}
	return &provider.Result{Payload: data}, nil
}

// flightOffersResponse mirrors the slice of the Amadeus wire format we read.
type flightOffersResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Itineraries []struct {
			Duration string `json:"duration"`
			Segments []struct {
				Departure struct {
					IataCode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"departure"`
				Arrival struct {
					IataCode string `json:"iataCode"`
					At       string `json:"at"`
				} `json:"arrival"`
				CarrierCode string `json:"carrierCode"`
			} `json:"segments"`
		} `json:"itineraries"`
		Price struct {
			GrandTotal string `json:"grandTotal"`
			Currency   string `json:"currency"`
		} `json:"price"`
	} `json:"data"`
}

func normalizeFlightOffers(raw []byte) (*offers.FlightSearchPayload, error) {
	var resp flightOffersResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal offers: %w", err)
	}

	payload := &offers.FlightSearchPayload{}
	for _, d := range resp.Data {
		if len(d.Itineraries) == 0 || len(d.Itineraries[0].Segments) == 0 {
			continue
		}
		it := d.Itineraries[0]
		first := it.Segments[0]
		last := it.Segments[len(it.Segments)-1]

		price, err := strconv.ParseFloat(d.Price.GrandTotal, 64)
		if err != nil {
			continue
		}

		payload.Offers = append(payload.Offers, offers.FlightOffer{
			ID:        d.ID,
			Carrier:   first.CarrierCode,
			Origin:    first.Departure.IataCode,
			Dest:      last.Arrival.IataCode,
			Departure: first.Departure.At,
			Arrival:   last.Arrival.At,
			Duration:  it.Duration,
			Stops:     len(it.Segments) - 1,
			Price:     price,
			Currency:  d.Price.Currency,
		})
	}
	return payload, nil
}
