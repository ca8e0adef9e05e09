package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
)

// LocationRepo implements flows.LocationReader against PostgreSQL.
type LocationRepo struct{ db *sql.DB }

// NewLocationRepo creates a Postgres-backed location repository.
func NewLocationRepo(db *sql.DB) *LocationRepo { return &LocationRepo{db: db} }

func (r *LocationRepo) GetLocation(ctx context.Context, id uuid.UUID) (*domain.Location, error) {
	var loc domain.Location
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, from_email, reply_to, max_email_frequency_days
		FROM locations
		WHERE id = $1
	`, id).Scan(&loc.ID, &loc.Name, &loc.FromEmail, &loc.ReplyTo, &loc.MaxEmailFrequencyDays)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &loc, nil
}

func (r *LocationRepo) ListLocations(ctx context.Context) ([]domain.Location, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, from_email, reply_to, max_email_frequency_days
		FROM locations
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		var loc domain.Location
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.FromEmail, &loc.ReplyTo, &loc.MaxEmailFrequencyDays); err != nil {
			return nil, fmt.Errorf("scan location: %w", err)
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}
