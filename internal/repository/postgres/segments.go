package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/segment"
)

// SegmentRepo implements segments.Repository against PostgreSQL. Rules
// are stored as jsonb.
type SegmentRepo struct{ db *sql.DB }

// NewSegmentRepo creates a Postgres-backed segment repository.
func NewSegmentRepo(db *sql.DB) *SegmentRepo { return &SegmentRepo{db: db} }

const segmentColumns = `id, location_id, name, description, rules, is_dynamic,
	is_system, cached_guest_count, cached_count_at, created_at, updated_at`

func (r *SegmentRepo) GetSegment(ctx context.Context, locationID, id uuid.UUID) (*segment.Segment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+segmentColumns+`
		FROM segments
		WHERE id = $1 AND location_id = $2
	`, id, locationID)

	seg, err := scanSegment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return seg, nil
}

func (r *SegmentRepo) ListSegments(ctx context.Context, locationID uuid.UUID) ([]segment.Segment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+segmentColumns+`
		FROM segments
		WHERE location_id = $1
		ORDER BY is_system DESC, name
	`, locationID)
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	var out []segment.Segment
	for rows.Next() {
		seg, err := scanSegment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		out = append(out, *seg)
	}
	return out, rows.Err()
}

func (r *SegmentRepo) CreateSegment(ctx context.Context, seg *segment.Segment) error {
	rules, err := json.Marshal(seg.Rules)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO segments (id, location_id, name, description, rules,
			is_dynamic, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, seg.ID, seg.LocationID, seg.Name, seg.Description, rules,
		seg.IsDynamic, seg.IsSystem, seg.CreatedAt, seg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	return nil
}

func (r *SegmentRepo) UpdateSegment(ctx context.Context, seg *segment.Segment) error {
	rules, err := json.Marshal(seg.Rules)
	if err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE segments
		SET name = $3, description = $4, rules = $5, updated_at = $6
		WHERE id = $1 AND location_id = $2
	`, seg.ID, seg.LocationID, seg.Name, seg.Description, rules, seg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update segment: %w", err)
	}
	return nil
}

func (r *SegmentRepo) DeleteSegment(ctx context.Context, locationID, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM segments WHERE id = $1 AND location_id = $2 AND is_system = false`,
		id, locationID)
	if err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	return nil
}

func (r *SegmentRepo) UpdateCachedCount(ctx context.Context, id uuid.UUID, count int, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE segments SET cached_guest_count = $2, cached_count_at = $3 WHERE id = $1`,
		id, count, at)
	if err != nil {
		return fmt.Errorf("update cached count: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSegment(row rowScanner) (*segment.Segment, error) {
	var (
		seg  segment.Segment
		raw  []byte
		desc sql.NullString
	)
	if err := row.Scan(
		&seg.ID, &seg.LocationID, &seg.Name, &desc, &raw, &seg.IsDynamic,
		&seg.IsSystem, &seg.CachedGuestCount, &seg.CachedCountAt,
		&seg.CreatedAt, &seg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	seg.Description = desc.String
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &seg.Rules); err != nil {
			return nil, fmt.Errorf("decode rules: %w", err)
		}
	}
	return &seg, nil
}
