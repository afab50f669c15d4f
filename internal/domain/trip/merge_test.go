package trip_test

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
)

func TestMergeFillIn(t *testing.T) {
	dest := "Lisbon"
	base := trip.Fields{Destination: &dest}

	merged, ignored := trip.Merge(base, trip.Delta{
		"departure_date": "2026-10-05",
		"duration":       float64(5),
		"budget":         2500.0,
	})
	if len(ignored) != 0 {
		t.Fatalf("ignored = %v", ignored)
	}
	if merged.Destination == nil || *merged.Destination != "Lisbon" {
		t.Errorf("destination = %v", merged.Destination)
	}
	if merged.DepartureDate == nil || *merged.DepartureDate != "2026-10-05" {
		t.Errorf("departure_date = %v", merged.DepartureDate)
	}
	if merged.Duration == nil || *merged.Duration != 5 {
		t.Errorf("duration = %v", merged.Duration)
	}
	if merged.Budget == nil || *merged.Budget != 2500 {
		t.Errorf("budget = %v", merged.Budget)
	}

	// Merge is pure: the input is untouched.
	if base.DepartureDate != nil {
		t.Error("Merge mutated its input")
	}
}

func TestMergeNullNeverErases(t *testing.T) {
	dest := "Lisbon"
	base := trip.Fields{Destination: &dest}

	merged, ignored := trip.Merge(base, trip.Delta{"destination": nil})
	if len(ignored) != 0 {
		t.Fatalf("ignored = %v", ignored)
	}
	if merged.Destination == nil || *merged.Destination != "Lisbon" {
		t.Fatalf("destination = %v, want Lisbon preserved", merged.Destination)
	}
}

func TestMergeNonNullOverwrites(t *testing.T) {
	dest := "Lisbon"
	base := trip.Fields{Destination: &dest}

	merged, _ := trip.Merge(base, trip.Delta{"destination": "Porto"})
	if merged.Destination == nil || *merged.Destination != "Porto" {
		t.Fatalf("destination = %v, want Porto", merged.Destination)
	}
}

func TestMergeIdempotent(t *testing.T) {
	delta := trip.Delta{
		"destination":          "Lisbon",
		"duration":             float64(5),
		"budget":               2500.0,
		"special_requirements": []any{"wheelchair"},
	}

	once, _ := trip.Merge(trip.Fields{}, delta)
	twice, _ := trip.Merge(once, delta)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("merge not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestMergeRejectsWrongTypes(t *testing.T) {
	tests := []struct {
		name  string
		delta trip.Delta
	}{
		{"string for int", trip.Delta{"duration": "five"}},
		{"string for float", trip.Delta{"budget": "cheap"}},
		{"int for string", trip.Delta{"destination": float64(42)}},
		{"mixed slice", trip.Delta{"special_requirements": []any{"ok", 7.0}}},
		{"unknown field", trip.Delta{"mood": "excited"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, ignored := trip.Merge(trip.Fields{}, tt.delta)
			if len(ignored) != 1 {
				t.Fatalf("ignored = %v, want one entry", ignored)
			}
			if !reflect.DeepEqual(merged, trip.Fields{}) {
				t.Errorf("fields modified by rejected delta: %+v", merged)
			}
		})
	}
}

func TestMergeNumericCoercion(t *testing.T) {
	// JSON decoding hands the extractor's numbers over as float64; native
	// ints from in-process deltas work too.
	merged, ignored := trip.Merge(trip.Fields{}, trip.Delta{
		"passengers": 2,
		"budget":     1800,
	})
	if len(ignored) != 0 {
		t.Fatalf("ignored = %v", ignored)
	}
	if merged.Passengers == nil || *merged.Passengers != 2 {
		t.Errorf("passengers = %v", merged.Passengers)
	}
	if merged.Budget == nil || *merged.Budget != 1800 {
		t.Errorf("budget = %v", merged.Budget)
	}
}

func TestMergeEmptySpecialRequirements(t *testing.T) {
	// An explicit empty list means "none", which is different from the
	// field never having been stated.
	merged, _ := trip.Merge(trip.Fields{}, trip.Delta{"special_requirements": []any{}})
	if merged.SpecialRequirements == nil {
		t.Fatal("explicit empty special_requirements decoded as absent")
	}
	if len(merged.SpecialRequirements) != 0 {
		t.Fatalf("special_requirements = %v", merged.SpecialRequirements)
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		t.Fatal(err)
	}
	var decoded trip.Fields
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.SpecialRequirements == nil {
		t.Error("empty-vs-absent distinction lost across JSON roundtrip")
	}
}

func TestMergeRawPayloadFields(t *testing.T) {
	merged, ignored := trip.Merge(trip.Fields{}, trip.Delta{
		"enhanced_offers": json.RawMessage(`[{"id":"o1"}]`),
		"curated_flights": []byte(`[{"id":"f1"}]`),
	})
	if len(ignored) != 0 {
		t.Fatalf("ignored = %v", ignored)
	}
	if string(merged.EnhancedOffers) != `[{"id":"o1"}]` {
		t.Errorf("enhanced_offers = %s", merged.EnhancedOffers)
	}
	if string(merged.CuratedFlights) != `[{"id":"f1"}]` {
		t.Errorf("curated_flights = %s", merged.CuratedFlights)
	}
}

func TestApplyDeltaRecomputesMissing(t *testing.T) {
	now := time.Now()
	st := trip.NewState("sess-1", now)
	if !reflect.DeepEqual(st.Missing, trip.RequiredFields) {
		t.Fatalf("fresh state missing = %v, want %v", st.Missing, trip.RequiredFields)
	}

	st.ApplyDelta(trip.Delta{"destination": "Lisbon", "budget": 2500.0}, now)
	want := []string{"departure_date", "duration", "passengers", "travel_class"}
	if !reflect.DeepEqual(st.Missing, want) {
		t.Fatalf("missing = %v, want %v", st.Missing, want)
	}

	st.ApplyDelta(trip.Delta{
		"departure_date": "2026-10-05",
		"duration":       float64(5),
		"passengers":     float64(2),
		"travel_class":   "economy",
	}, now)
	if len(st.Missing) != 0 {
		t.Fatalf("missing = %v, want empty", st.Missing)
	}
}
