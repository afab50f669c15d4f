package amadeus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/domain/offers"
	"github.com/wayfarer-ai/wayfarer/internal/port/provider"
)

const maxHotelOffers = 10

// HotelSearch returns the hotel_search provider.
func (c *Client) HotelSearch() provider.Invoker {
	return provider.Func(c.searchHotels)
}

func (c *Client) searchHotels(ctx context.Context, req provider.Request) (*provider.Result, error) {
	f := req.Fields
	if f.Destination == nil || f.DepartureDate == nil {
		return nil, fmt.Errorf("hotel search: destination and departure_date are required")
	}

	checkIn, err := time.Parse("2006-01-02", *f.DepartureDate)
	if err != nil {
		return nil, fmt.Errorf("hotel search: bad departure_date %q: %w", *f.DepartureDate, err)
	}
	nights := 1
	if f.Duration != nil && *f.Duration > 0 {
		nights = *f.Duration
	}
	checkOut := checkIn.AddDate(0, 0, nights)

	adults := 1
	if f.Passengers != nil {
		adults = *f.Passengers
	}

	query := url.Values{
		"cityCode":     {cityCode(*f.Destination)},
		"checkInDate":  {checkIn.Format("2006-01-02")},
		"checkOutDate": {checkOut.Format("2006-01-02")},
		"adults":       {strconv.Itoa(adults)},
		"bestRateOnly": {"true"},
	}

	raw, err := c.get(ctx, "/v3/shopping/hotel-offers", query)
	if err != nil {
		return nil, fmt.Errorf("hotel search: %w", err)
	}

	payload, err := normalizeHotelOffers(raw)
	if err != nil {
		return nil, fmt.Errorf("hotel search: %w", err)
	}
	if len(payload.Offers) == 0 {
		return nil, fmt.Errorf("hotel search: no offers in %s", *f.Destination)
	}
	if len(payload.Offers) > maxHotelOffers {
		payload.Offers = payload.Offers[:maxHotelOffers]
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("hotel search: %w", err)
	}
	return &provider.Result{Payload: data}, nil
}

type hotelOffersResponse struct {
	Data []struct {
		Hotel struct {
			HotelID string `json:"hotelId"`
			Name    string `json:"name"`
			Rating  string `json:"rating"`
		} `json:"hotel"`
		Offers []struct {
			CheckInDate  string `json:"checkInDate"`
			CheckOutDate string `json:"checkOutDate"`
			Price        struct {
				Total    string `json:"total"`
				Currency string `json:"currency"`
			} `json:"price"`
		} `json:"offers"`
	} `json:"data"`
}

func normalizeHotelOffers(raw []byte) (*offers.HotelSearchPayload, error) {
	var resp hotelOffersResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal offers: %w", err)
	}

	payload := &offers.HotelSearchPayload{}
	for _, d := range resp.Data {
		if len(d.Offers) == 0 {
			continue
		}
		best := d.Offers[0]
		price, err := strconv.ParseFloat(best.Price.Total, 64)
		if err != nil {
			continue
		}
		rating, _ := strconv.Atoi(d.Hotel.Rating)

		payload.Offers = append(payload.Offers, offers.HotelOffer{
			HotelID:    d.Hotel.HotelID,
			Name:       d.Hotel.Name,
			Rating:     rating,
			CheckIn:    best.CheckInDate,
			CheckOut:   best.CheckOutDate,
			TotalPrice: price,
			Currency:   best.Price.Currency,
		})
	}
	return payload, nil
}
