package trip

import (
	"encoding/json"
	"time"
)

// Delta is a partial requirements update keyed by wire field name, produced
// by the extractor or by a task's declared field deltas. Values come from
// decoded JSON, so numbers arrive as float64. A nil value means "nothing new
// for this field" and never erases what is already known.
type Delta map[string]any

// Merge applies delta onto f and returns the merged fields plus the names of
// delta entries that were ignored (unknown field or wrong type). Merge is
// pure: f is not modified, and merging the same delta twice yields the same
// result as merging it once.
func Merge(f Fields, delta Delta) (Fields, []string) {
	var ignored []string
	for key, raw := range delta {
		if raw == nil {
			continue
		}
		if !applyField(&f, key, raw) {
			ignored = append(ignored, key)
		}
	}
	return f, ignored
}

// ApplyDelta merges delta into the session fields and recomputes the missing
// set. It returns the names of ignored delta entries; the caller decides how
// loudly to report them.
func (s *State) ApplyDelta(delta Delta, now time.Time) []string {
	merged, ignored := Merge(s.Fields, delta)
	s.Fields = merged
	s.Missing = s.Fields.MissingRequired()
	s.UpdatedAt = now
	return ignored
}

func applyField(f *Fields, key string, raw any) bool {
	switch key {
	case "destination":
		return setString(&f.Destination, raw)
	case "destination_type":
		return setString(&f.DestinationType, raw)
	case "event_name":
		return setString(&f.EventName, raw)
	case "event_type":
		return setString(&f.EventType, raw)
	case "departure_date":
		return setString(&f.DepartureDate, raw)
	case "return_date":
		return setString(&f.ReturnDate, raw)
	case "duration":
		return setInt(&f.Duration, raw)
	case "budget":
		return setFloat(&f.Budget, raw)
	case "budget_currency":
		return setString(&f.BudgetCurrency, raw)
	case "passengers":
		return setInt(&f.Passengers, raw)
	case "children":
		return setInt(&f.Children, raw)
	case "travel_class":
		return setString(&f.TravelClass, raw)
	case "accommodation_type":
		return setString(&f.AccommodationType, raw)
	case "special_requirements":
		return setStringSlice(&f.SpecialRequirements, raw)
	case "enhanced_offers":
		return setRaw(&f.EnhancedOffers, raw)
	case "curated_flights":
		return setRaw(&f.CuratedFlights, raw)
	}
	return false
}

func setString(dst **string, raw any) bool {
	v, ok := raw.(string)
	if !ok {
		return false
	}
	*dst = &v
	return true
}

func setInt(dst **int, raw any) bool {
	switch v := raw.(type) {
	case int:
		*dst = &v
		return true
	case float64:
		n := int(v)
		*dst = &n
		return true
	}
	return false
}

func setFloat(dst **float64, raw any) bool {
	switch v := raw.(type) {
	case float64:
		*dst = &v
		return true
	case int:
		n := float64(v)
		*dst = &n
		return true
	}
	return false
}

// setStringSlice accepts []string or a decoded JSON []any. An empty slice is
// a valid value: it marks the field as present.
func setStringSlice(dst *[]string, raw any) bool {
	switch v := raw.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		*dst = out
		return true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return false
			}
			out = append(out, s)
		}
		*dst = out
		return true
	}
	return false
}

func setRaw(dst *json.RawMessage, raw any) bool {
	var v []byte
	switch t := raw.(type) {
	case json.RawMessage:
		v = t
	case []byte:
		v = t
	default:
		return false
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	*dst = out
	return true
}
