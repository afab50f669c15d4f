package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wayfarer-ai/wayfarer/internal/domain"
	"github.com/wayfarer-ai/wayfarer/internal/port/profile"
)

// Lookup resolves a traveller profile by customer ID or email.
func (s *Store) Lookup(ctx context.Context, identity string) (*profile.Profile, error) {
	var p profile.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT customer_id, email, nationality, loyalty_tier, home_airport, seat_preference, dietary_needs
		 FROM traveller_profiles WHERE customer_id = $1 OR email = $1`, identity).
		Scan(&p.CustomerID, &p.Email, &p.Nationality, &p.LoyaltyTier, &p.HomeAirport, &p.SeatPreference, &p.DietaryNeeds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lookup profile %s: %w", identity, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup profile %s: %w", identity, err)
	}
	return &p, nil
}

// UpsertProfile creates or refreshes a traveller profile.
func (s *Store) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO traveller_profiles (customer_id, email, nationality, loyalty_tier, home_airport, seat_preference, dietary_needs, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (customer_id)
		 DO UPDATE SET email = EXCLUDED.email, nationality = EXCLUDED.nationality,
		   loyalty_tier = EXCLUDED.loyalty_tier, home_airport = EXCLUDED.home_airport,
		   seat_preference = EXCLUDED.seat_preference, dietary_needs = EXCLUDED.dietary_needs,
		   updated_at = NOW()`,
		p.CustomerID, p.Email, p.Nationality, p.LoyaltyTier, p.HomeAirport, p.SeatPreference, pgTextArray(p.DietaryNeeds))
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", p.CustomerID, err)
	}
	return nil
}

// pgTextArray converts a string slice to a pgx-compatible text array.
// nil slices become empty arrays to avoid SQL NULL.
func pgTextArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
