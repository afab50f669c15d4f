// Package profile defines the customer profile store port.
package profile

import "context"

// Profile is the read-only traveller context passed to task providers. It is
// never merged into the requirement fields.
type Profile struct {
	CustomerID     string   `json:"customer_id"`
	Email          string   `json:"email,omitempty"`
	Nationality    string   `json:"nationality,omitempty"`
	LoyaltyTier    string   `json:"loyalty_tier,omitempty"`
	HomeAirport    string   `json:"home_airport,omitempty"`
	SeatPreference string   `json:"seat_preference,omitempty"`
	DietaryNeeds   []string `json:"dietary_needs,omitempty"`
}

// Store looks up traveller profiles by identity (customer id or email).
// Implementations return domain.ErrNotFound for unknown identities.
type Store interface {
	Lookup(ctx context.Context, identity string) (*Profile, error)
}

// AdminStore adds the write side used by the profile management API. Task
// dispatch only ever sees Store, so providers cannot mutate profiles.
type AdminStore interface {
	Store
	UpsertProfile(ctx context.Context, p *Profile) error
}
