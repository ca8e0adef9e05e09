// Package postgres implements the service repository interfaces against
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dinelight/guestflow/internal/domain"
)

// CustomerRepo implements segments.CustomerSource and flows.CustomerReader.
type CustomerRepo struct{ db *sql.DB }

// NewCustomerRepo creates a Postgres-backed customer repository.
func NewCustomerRepo(db *sql.DB) *CustomerRepo { return &CustomerRepo{db: db} }

const customerColumns = `id, location_id, first_name, last_name, email,
	total_visits, no_show_count, average_spend, birthday, tags,
	dietary_preferences, created_at, last_visit_at`

func (r *CustomerRepo) ListByLocation(ctx context.Context, locationID uuid.UUID) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+customerColumns+`
		FROM customers
		WHERE location_id = $1
		ORDER BY id
	`, locationID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()
	return scanCustomers(rows)
}

func (r *CustomerRepo) ListConsentedByLocation(ctx context.Context, locationID uuid.UUID, channel domain.Channel) ([]domain.Customer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+qualifiedCustomerColumns+`
		FROM customers c
		JOIN contact_preferences p
		  ON p.customer_id = c.id
		 AND p.location_id = c.location_id
		 AND p.channel = $2
		 AND p.opted_in = true
		WHERE c.location_id = $1
		ORDER BY c.id
	`, locationID, channel)
	if err != nil {
		return nil, fmt.Errorf("list consented customers: %w", err)
	}
	defer rows.Close()
	return scanCustomers(rows)
}

const qualifiedCustomerColumns = `c.id, c.location_id, c.first_name, c.last_name, c.email,
	c.total_visits, c.no_show_count, c.average_spend, c.birthday, c.tags,
	c.dietary_preferences, c.created_at, c.last_visit_at`

// InvalidateEmail clears the address after a hard bounce. The customer
// row stays; only the contact point is gone.
func (r *CustomerRepo) InvalidateEmail(ctx context.Context, customerID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE customers SET email = '' WHERE id = $1`, customerID)
	if err != nil {
		return fmt.Errorf("invalidate email: %w", err)
	}
	return nil
}

func scanCustomers(rows *sql.Rows) ([]domain.Customer, error) {
	var out []domain.Customer
	for rows.Next() {
		var c domain.Customer
		if err := rows.Scan(
			&c.ID, &c.LocationID, &c.FirstName, &c.LastName, &c.Email,
			&c.TotalVisits, &c.NoShowCount, &c.AverageSpend, &c.Birthday,
			pq.Array(&c.Tags), pq.Array(&c.DietaryPreferences),
			&c.CreatedAt, &c.LastVisitAt,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
