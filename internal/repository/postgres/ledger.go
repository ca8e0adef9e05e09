package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dinelight/guestflow/internal/domain"
	"github.com/dinelight/guestflow/internal/service/flows"
)

// LedgerRepo implements flows.LedgerRepository against PostgreSQL. The
// send_ledger table carries a partial unique index on
// (flow_id, customer_id, period) for automated sends; ad-hoc sends
// (null flow_id) are outside dedup.
type LedgerRepo struct{ db *sql.DB }

// NewLedgerRepo creates a Postgres-backed ledger repository.
func NewLedgerRepo(db *sql.DB) *LedgerRepo { return &LedgerRepo{db: db} }

// Record inserts the attempt. A conflict on the dedup key replaces the
// existing row only when that row is a failed attempt; otherwise the key
// is consumed and the caller gets flows.ErrDuplicateSend.
func (r *LedgerRepo) Record(ctx context.Context, e *domain.SendLedgerEntry) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO send_ledger (id, flow_id, customer_id, location_id,
			period, status, provider_message_id, error_detail, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (flow_id, customer_id, period) WHERE flow_id IS NOT NULL
		DO UPDATE SET
			id = EXCLUDED.id,
			status = EXCLUDED.status,
			provider_message_id = EXCLUDED.provider_message_id,
			error_detail = EXCLUDED.error_detail,
			sent_at = EXCLUDED.sent_at
		WHERE send_ledger.status = 'failed'
	`, e.ID, e.FlowID, e.CustomerID, e.LocationID,
		e.Period, e.Status, e.ProviderMessageID, e.ErrorDetail, e.SentAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return flows.ErrDuplicateSend
		}
		return fmt.Errorf("record ledger entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record ledger entry: %w", err)
	}
	if n == 0 {
		return flows.ErrDuplicateSend
	}
	return nil
}

func (r *LedgerRepo) SentCustomerIDs(ctx context.Context, flowID uuid.UUID, period string) (map[uuid.UUID]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT customer_id
		FROM send_ledger
		WHERE flow_id = $1 AND period = $2 AND status <> 'failed'
	`, flowID, period)
	if err != nil {
		return nil, fmt.Errorf("load sent customers: %w", err)
	}
	defer rows.Close()
	return scanIDSet(rows)
}

func (r *LedgerRepo) MessagedCustomerIDs(ctx context.Context, locationID uuid.UUID, since time.Time) (map[uuid.UUID]bool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT customer_id
		FROM send_ledger
		WHERE location_id = $1 AND sent_at >= $2 AND status <> 'failed'
	`, locationID, since)
	if err != nil {
		return nil, fmt.Errorf("load recently messaged customers: %w", err)
	}
	defer rows.Close()
	return scanIDSet(rows)
}

func (r *LedgerRepo) GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.SendLedgerEntry, error) {
	var e domain.SendLedgerEntry
	err := r.db.QueryRowContext(ctx, `
		SELECT id, flow_id, customer_id, location_id, period, status,
			provider_message_id, error_detail, sent_at
		FROM send_ledger
		WHERE provider_message_id = $1
	`, providerMessageID).Scan(
		&e.ID, &e.FlowID, &e.CustomerID, &e.LocationID, &e.Period,
		&e.Status, &e.ProviderMessageID, &e.ErrorDetail, &e.SentAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &e, nil
}

func (r *LedgerRepo) UpdateStatusByProviderMessageID(ctx context.Context, providerMessageID string, status domain.LedgerStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE send_ledger SET status = $2 WHERE provider_message_id = $1`,
		providerMessageID, status)
	if err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}
	return nil
}

func scanIDSet(rows *sql.Rows) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan customer id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}
