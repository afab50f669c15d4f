// Package offers defines the normalized payload types that flow between the
// retrieval tasks. Providers translate their upstream wire formats into
// these so downstream tasks never parse vendor JSON.
package offers

// FlightOffer is one priced flight option.
type FlightOffer struct {
	ID        string  `json:"id"`
	Carrier   string  `json:"carrier"`
	Origin    string  `json:"origin"`
	Dest      string  `json:"dest"`
	Departure string  `json:"departure"` // RFC 3339
	Arrival   string  `json:"arrival"`   // RFC 3339
	Duration  string  `json:"duration"`  // ISO 8601, e.g. PT7H30M
	Stops     int     `json:"stops"`
	Price     float64 `json:"price"`
	Currency  string  `json:"currency"`
}

// FlightSearchPayload is the flight_search task result.
type FlightSearchPayload struct {
	Offers []FlightOffer `json:"offers"`
}

// HotelOffer is one priced hotel option.
type HotelOffer struct {
	HotelID    string  `json:"hotel_id"`
	Name       string  `json:"name"`
	Rating     int     `json:"rating,omitempty"`
	CheckIn    string  `json:"check_in"`  // YYYY-MM-DD
	CheckOut   string  `json:"check_out"` // YYYY-MM-DD
	TotalPrice float64 `json:"total_price"`
	Currency   string  `json:"currency"`
}

// HotelSearchPayload is the hotel_search task result.
type HotelSearchPayload struct {
	Offers []HotelOffer `json:"offers"`
}

// EnrichedOffer pairs a flight with a hotel into a bookable package.
type EnrichedOffer struct {
	Flight       FlightOffer `json:"flight"`
	Hotel        HotelOffer  `json:"hotel"`
	PackagePrice float64     `json:"package_price"`
	Currency     string      `json:"currency"`
	WithinBudget bool        `json:"within_budget"`
}

// EnrichmentPayload is the offer_enrichment task result.
type EnrichmentPayload struct {
	Offers []EnrichedOffer `json:"offers"`
}

// CurationPayload is the flight_curation task result: the flight offers
// reordered best-first, trimmed to a shortlist.
type CurationPayload struct {
	Flights []FlightOffer `json:"flights"`
}

// ItineraryDay is one day of the draft plan.
type ItineraryDay struct {
	Day   int    `json:"day"`
	Date  string `json:"date"` // YYYY-MM-DD
	Title string `json:"title"`
	Notes string `json:"notes,omitempty"`
}

// ItineraryPayload is the itinerary task result.
type ItineraryPayload struct {
	Destination string         `json:"destination"`
	Days        []ItineraryDay `json:"days"`
}
