package amadeus

import "strings"

// Fallback codes for destinations the tables do not know. Discovery is the
// proper path for resolving a vague destination; these only keep a search
// from failing outright.
const (
	fallbackAirport = "JFK"
	fallbackCity    = "PAR"
)

// airportCodes maps destination names to the airport serving them. Matching
// is case-insensitive substring, so "Bangkok, Thailand" hits "Bangkok".
var airportCodes = map[string]string{
	"Zermatt":     "ZUR", // nearest airport is Zurich
	"Switzerland": "ZUR",
	"Tokyo":       "NRT",
	"Paris":       "CDG",
	"London":      "LHR",
	"New York":    "JFK",
	"Bangkok":     "BKK",
	"Thailand":    "BKK",
	"Singapore":   "SIN",
	"Dubai":       "DXB",
	"Mumbai":      "BOM",
	"Bangalore":   "BLR",
	"Bengaluru":   "BLR",
	"Sydney":      "SYD",
	"Los Angeles": "LAX",
	"Lisbon":      "LIS",
	"Porto":       "OPO",
	"Madrid":      "MAD",
	"Barcelona":   "BCN",
	"Rome":        "FCO",
	"Amsterdam":   "AMS",
	"Berlin":      "BER",
}

// cityCodes maps destination names to the metropolitan city code hotel
// search expects, which differs from the airport code for multi-airport
// cities (Tokyo is TYO, not NRT).
var cityCodes = map[string]string{
	"Zermatt":     "ZUR",
	"Switzerland": "ZUR",
	"Tokyo":       "TYO",
	"Paris":       "PAR",
	"London":      "LON",
	"New York":    "NYC",
	"Bangkok":     "BKK",
	"Thailand":    "BKK",
	"Singapore":   "SIN",
	"Dubai":       "DXB",
	"Mumbai":      "BOM",
	"Bangalore":   "BLR",
	"Bengaluru":   "BLR",
	"Sydney":      "SYD",
	"Los Angeles": "LAX",
	"Lisbon":      "LIS",
	"Porto":       "OPO",
	"Madrid":      "MAD",
	"Barcelona":   "BCN",
	"Rome":        "ROM",
	"Amsterdam":   "AMS",
	"Berlin":      "BER",
}

// airportCode resolves a free-form destination to the airport code flight
// search expects.
func airportCode(destination string) string {
	return resolveCode(destination, airportCodes, fallbackAirport)
}

// cityCode resolves a free-form destination to the city code hotel search
// expects.
func cityCode(destination string) string {
	return resolveCode(destination, cityCodes, fallbackCity)
}

func resolveCode(destination string, table map[string]string, fallback string) string {
	dest := strings.TrimSpace(destination)

	// Already a code, as produced by destination discovery.
	if len(dest) == 3 && isAlpha(dest) {
		return strings.ToUpper(dest)
	}

	lower := strings.ToLower(dest)
	for name, code := range table {
		if strings.Contains(lower, strings.ToLower(name)) {
			return code
		}
	}
	return fallback
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}
