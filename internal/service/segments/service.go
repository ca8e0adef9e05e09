package segments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
	"github.com/dinelight/guestflow/internal/segment"
)

const (
	// DefaultPageSize is applied when a preview request does not set a limit.
	DefaultPageSize = 50
	// MaxPageSize bounds a single preview page.
	MaxPageSize = 500
)

// Service implements segment business logic. It is safe for concurrent use.
type Service struct {
	repo      Repository
	customers CustomerSource
	cache     CountCache
	cacheTTL  time.Duration
	now       func() time.Time
}

// NewService creates a segment service. cache may be nil, in which case
// every preview count is computed from scratch.
func NewService(repo Repository, customers CustomerSource, cache CountCache, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &Service{
		repo:      repo,
		customers: customers,
		cache:     cache,
		cacheTTL:  cacheTTL,
		now:       time.Now,
	}
}

// SetClock overrides the wall clock. Test hook.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// ListCustomers returns the page of customers matching the given rules,
// ordered by customer id. A nil rules pointer means the full contactable
// audience: every customer with an active email opt-in.
func (s *Service) ListCustomers(ctx context.Context, locationID uuid.UUID, rules *segment.Rules, limit, offset int) ([]domain.Customer, error) {
	matched, err := s.matchCustomers(ctx, locationID, rules)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []domain.Customer{}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

// CountCustomers returns the number of customers matching the given rules.
// The count always agrees with the total length of ListCustomers pages for
// the same rules and data.
func (s *Service) CountCustomers(ctx context.Context, locationID uuid.UUID, rules *segment.Rules) (int, error) {
	matched, err := s.matchCustomers(ctx, locationID, rules)
	if err != nil {
		return 0, err
	}
	return len(matched), nil
}

// PreviewCount is CountCustomers behind a short-lived cache, used by the
// segment builder preview endpoint where the same rules are counted
// repeatedly while an operator edits them.
func (s *Service) PreviewCount(ctx context.Context, locationID uuid.UUID, rules *segment.Rules) (int, error) {
	key := previewKey(locationID, rules)
	if s.cache != nil {
		if n, ok := s.cache.GetCount(ctx, key); ok {
			return n, nil
		}
	}
	n, err := s.CountCustomers(ctx, locationID, rules)
	if err != nil {
		return 0, err
	}
	if s.cache != nil {
		s.cache.SetCount(ctx, key, n, s.cacheTTL)
	}
	return n, nil
}

func (s *Service) matchCustomers(ctx context.Context, locationID uuid.UUID, rules *segment.Rules) ([]domain.Customer, error) {
	if rules == nil {
		all, err := s.customers.ListConsentedByLocation(ctx, locationID, domain.ChannelEmail)
		if err != nil {
			return nil, fmt.Errorf("list consented customers: %w", err)
		}
		sortByID(all)
		return all, nil
	}

	if errs := rules.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRules, errs[0])
	}

	all, err := s.customers.ListByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	now := s.now()
	matched := make([]domain.Customer, 0, len(all))
	for i := range all {
		if segment.Evaluate(&all[i], *rules, now) {
			matched = append(matched, all[i])
		}
	}
	sortByID(matched)
	return matched, nil
}

func sortByID(cs []domain.Customer) {
	sort.Slice(cs, func(i, j int) bool {
		return cs[i].ID.String() < cs[j].ID.String()
	})
}

func previewKey(locationID uuid.UUID, rules *segment.Rules) string {
	h := sha256.New()
	h.Write([]byte(locationID.String()))
	if rules != nil {
		raw, _ := json.Marshal(rules)
		h.Write(raw)
	}
	return "segpreview:" + hex.EncodeToString(h.Sum(nil))[:32]
}

// Get returns a segment by id scoped to a location.
func (s *Service) Get(ctx context.Context, locationID, id uuid.UUID) (*segment.Segment, error) {
	seg, err := s.repo.GetSegment(ctx, locationID, id)
	if err != nil {
		return nil, err
	}
	if seg == nil {
		return nil, ErrNotFound
	}
	return seg, nil
}

// List returns all segments for a location.
func (s *Service) List(ctx context.Context, locationID uuid.UUID) ([]segment.Segment, error) {
	return s.repo.ListSegments(ctx, locationID)
}

// Create validates and stores a new operator-defined segment.
func (s *Service) Create(ctx context.Context, seg *segment.Segment) error {
	if seg.Name == "" {
		return ErrNameRequired
	}
	if errs := seg.Rules.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRules, errs[0])
	}
	if seg.ID == uuid.Nil {
		seg.ID = uuid.New()
	}
	seg.IsSystem = false
	seg.CreatedAt = s.now()
	seg.UpdatedAt = seg.CreatedAt
	return s.repo.CreateSegment(ctx, seg)
}

// Update replaces the name, description and rules of an existing segment.
// System segments are read-only.
func (s *Service) Update(ctx context.Context, seg *segment.Segment) error {
	existing, err := s.Get(ctx, seg.LocationID, seg.ID)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemSegment
	}
	if seg.Name == "" {
		return ErrNameRequired
	}
	if errs := seg.Rules.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRules, errs[0])
	}
	seg.IsSystem = false
	seg.UpdatedAt = s.now()
	return s.repo.UpdateSegment(ctx, seg)
}

// Delete removes an operator-defined segment. System segments are kept.
func (s *Service) Delete(ctx context.Context, locationID, id uuid.UUID) error {
	existing, err := s.Get(ctx, locationID, id)
	if err != nil {
		return err
	}
	if existing.IsSystem {
		return ErrSystemSegment
	}
	return s.repo.DeleteSegment(ctx, locationID, id)
}

// RefreshCachedCount recomputes a segment's member count and stores it on
// the segment row for list views. Returns the fresh count.
func (s *Service) RefreshCachedCount(ctx context.Context, locationID, id uuid.UUID) (int, error) {
	seg, err := s.Get(ctx, locationID, id)
	if err != nil {
		return 0, err
	}
	n, err := s.CountCustomers(ctx, locationID, &seg.Rules)
	if err != nil {
		return 0, err
	}
	if err := s.repo.UpdateCachedCount(ctx, id, n, s.now()); err != nil {
		return 0, err
	}
	return n, nil
}
