package segments

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
	"github.com/dinelight/guestflow/internal/segment"
)

// Repository is the persistence contract for segment definitions.
// Implemented by repository/postgres.SegmentRepo.
type Repository interface {
	// GetSegment returns nil, nil when no segment matches.
	GetSegment(ctx context.Context, locationID, id uuid.UUID) (*segment.Segment, error)
	ListSegments(ctx context.Context, locationID uuid.UUID) ([]segment.Segment, error)
	CreateSegment(ctx context.Context, seg *segment.Segment) error
	UpdateSegment(ctx context.Context, seg *segment.Segment) error
	DeleteSegment(ctx context.Context, locationID, id uuid.UUID) error
	UpdateCachedCount(ctx context.Context, id uuid.UUID, count int, at time.Time) error
}

// CustomerSource provides the customer rows that rules are evaluated
// against. Both methods must return rows ordered by customer id so that
// paginated previews are stable across requests.
type CustomerSource interface {
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]domain.Customer, error)
	// ListConsentedByLocation returns only customers with an active
	// opt-in for the given channel.
	ListConsentedByLocation(ctx context.Context, locationID uuid.UUID, channel domain.Channel) ([]domain.Customer, error)
}

// CountCache holds recently computed preview counts so that repeated
// previews of the same rules do not rescan the customer table.
// Implemented by repository/rediscache.CountCache.
type CountCache interface {
	GetCount(ctx context.Context, key string) (int, bool)
	SetCount(ctx context.Context, key string, count int, ttl time.Duration)
}
