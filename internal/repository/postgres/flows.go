package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
)

// FlowRepo implements flows.FlowRepository against PostgreSQL. The
// trigger config is stored as jsonb, the template inline.
type FlowRepo struct{ db *sql.DB }

// NewFlowRepo creates a Postgres-backed flow repository.
func NewFlowRepo(db *sql.DB) *FlowRepo { return &FlowRepo{db: db} }

const flowColumns = `id, location_id, flow_type, name, trigger_config,
	subject, html, is_active, sent_count, last_run_at, created_at, updated_at`

func (r *FlowRepo) ListActiveFlows(ctx context.Context) ([]domain.AutomationFlow, error) {
	return r.queryFlows(ctx, `
		SELECT `+flowColumns+`
		FROM automation_flows
		WHERE is_active = true
		ORDER BY created_at
	`)
}

func (r *FlowRepo) ListFlows(ctx context.Context, locationID uuid.UUID) ([]domain.AutomationFlow, error) {
	return r.queryFlows(ctx, `
		SELECT `+flowColumns+`
		FROM automation_flows
		WHERE location_id = $1
		ORDER BY created_at
	`, locationID)
}

func (r *FlowRepo) GetFlow(ctx context.Context, id uuid.UUID) (*domain.AutomationFlow, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+flowColumns+`
		FROM automation_flows
		WHERE id = $1
	`, id)

	flow, err := scanFlow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get flow: %w", err)
	}
	return flow, nil
}

func (r *FlowRepo) CreateFlow(ctx context.Context, f *domain.AutomationFlow) error {
	cfg, err := json.Marshal(f.TriggerConfig)
	if err != nil {
		return fmt.Errorf("encode trigger config: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO automation_flows (id, location_id, flow_type, name,
			trigger_config, subject, html, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, f.ID, f.LocationID, f.Type, f.Name, cfg,
		f.Template.Subject, f.Template.HTML, f.IsActive, f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create flow: %w", err)
	}
	return nil
}

func (r *FlowRepo) UpdateFlow(ctx context.Context, f *domain.AutomationFlow) error {
	cfg, err := json.Marshal(f.TriggerConfig)
	if err != nil {
		return fmt.Errorf("encode trigger config: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE automation_flows
		SET name = $2, flow_type = $3, trigger_config = $4,
			subject = $5, html = $6, updated_at = $7
		WHERE id = $1
	`, f.ID, f.Name, f.Type, cfg, f.Template.Subject, f.Template.HTML, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update flow: %w", err)
	}
	return nil
}

func (r *FlowRepo) SetFlowActive(ctx context.Context, id uuid.UUID, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE automation_flows SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active)
	if err != nil {
		return fmt.Errorf("set flow active: %w", err)
	}
	return nil
}

func (r *FlowRepo) AddFlowStats(ctx context.Context, id uuid.UUID, sentDelta int, ranAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE automation_flows
		SET sent_count = sent_count + $2, last_run_at = $3
		WHERE id = $1
	`, id, sentDelta, ranAt)
	if err != nil {
		return fmt.Errorf("update flow stats: %w", err)
	}
	return nil
}

func (r *FlowRepo) queryFlows(ctx context.Context, query string, args ...any) ([]domain.AutomationFlow, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query flows: %w", err)
	}
	defer rows.Close()

	var out []domain.AutomationFlow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flow: %w", err)
		}
		out = append(out, *flow)
	}
	return out, rows.Err()
}

func scanFlow(row rowScanner) (*domain.AutomationFlow, error) {
	var (
		f   domain.AutomationFlow
		cfg []byte
	)
	if err := row.Scan(
		&f.ID, &f.LocationID, &f.Type, &f.Name, &cfg,
		&f.Template.Subject, &f.Template.HTML, &f.IsActive,
		&f.Stats.SentCount, &f.Stats.LastRunAt, &f.CreatedAt, &f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(cfg) > 0 {
		if err := json.Unmarshal(cfg, &f.TriggerConfig); err != nil {
			return nil, fmt.Errorf("decode trigger config: %w", err)
		}
	}
	return &f, nil
}
