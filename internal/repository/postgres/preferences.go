package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
)

// PreferenceRepo implements flows.PreferenceRepository against
// PostgreSQL. One row per (customer, location, channel); no row means
// not opted in.
type PreferenceRepo struct{ db *sql.DB }

// NewPreferenceRepo creates a Postgres-backed preference repository.
func NewPreferenceRepo(db *sql.DB) *PreferenceRepo { return &PreferenceRepo{db: db} }

func (r *PreferenceRepo) OptedInCustomerIDs(ctx context.Context, locationID uuid.UUID, channel domain.Channel) (map[uuid.UUID]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id
		FROM contact_preferences
		WHERE location_id = $1 AND channel = $2 AND opted_in = true
	`, locationID, channel)
	if err != nil {
		return nil, fmt.Errorf("load opted-in customers: %w", err)
	}
	defer rows.Close()
	return scanIDSet(rows)
}

// OptIn records consent, restoring it if the customer previously opted
// out.
func (r *PreferenceRepo) OptIn(ctx context.Context, customerID, locationID uuid.UUID, channel domain.Channel, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_preferences (customer_id, location_id, channel, opted_in, opted_in_at)
		VALUES ($1, $2, $3, true, $4)
		ON CONFLICT (customer_id, location_id, channel)
		DO UPDATE SET opted_in = true, opted_in_at = $4, opted_out_at = NULL
	`, customerID, locationID, channel, at)
	if err != nil {
		return fmt.Errorf("opt in: %w", err)
	}
	return nil
}

// OptOut withdraws consent. Idempotent; the first opt-out time is kept.
func (r *PreferenceRepo) OptOut(ctx context.Context, customerID, locationID uuid.UUID, channel domain.Channel, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO contact_preferences (customer_id, location_id, channel, opted_in, opted_out_at)
		VALUES ($1, $2, $3, false, $4)
		ON CONFLICT (customer_id, location_id, channel)
		DO UPDATE SET opted_in = false,
			opted_out_at = COALESCE(contact_preferences.opted_out_at, $4)
	`, customerID, locationID, channel, at)
	if err != nil {
		return fmt.Errorf("opt out: %w", err)
	}
	return nil
}

// Get returns the preference row, or nil when none exists.
func (r *PreferenceRepo) Get(ctx context.Context, customerID, locationID uuid.UUID, channel domain.Channel) (*domain.ContactPreference, error) {
	var p domain.ContactPreference
	err := r.db.QueryRowContext(ctx, `
		SELECT customer_id, location_id, channel, opted_in, opted_in_at, opted_out_at
		FROM contact_preferences
		WHERE customer_id = $1 AND location_id = $2 AND channel = $3
	`, customerID, locationID, channel).Scan(
		&p.CustomerID, &p.LocationID, &p.Channel, &p.OptedIn, &p.OptedInAt, &p.OptedOutAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get preference: %w", err)
	}
	return &p, nil
}
