package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wayfarer-ai/wayfarer/internal/domain"
	"github.com/wayfarer-ai/wayfarer/internal/domain/trip"
)

// Store implements the session and profile store ports using PostgreSQL.
// Session state is stored as one JSONB document per session; the confirmed
// flag is mirrored into its own column for cheap filtering.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Load fetches the session state document for sessionID.
func (s *Store) Load(ctx context.Context, sessionID string) (*trip.State, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM sessions WHERE session_id = $1`, sessionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("load session %s: %w", sessionID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var st trip.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	return &st, nil
}

// Save upserts the full session state document.
func (s *Store) Save(ctx context.Context, st *trip.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", st.SessionID, err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (session_id, state, confirmed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (session_id)
		 DO UPDATE SET state = EXCLUDED.state, confirmed = EXCLUDED.confirmed, updated_at = EXCLUDED.updated_at`,
		st.SessionID, raw, st.Confirmed, st.CreatedAt, st.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save session %s: %w", st.SessionID, err)
	}
	return nil
}
