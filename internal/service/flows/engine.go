package flows

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
	"github.com/dinelight/guestflow/internal/pkg/logger"
)

// Engine runs automation flows against the customer base. It is safe for
// concurrent use; RunBatch may overlap with API traffic but not with
// itself (the scheduler serializes runs).
type Engine struct {
	flows     FlowRepository
	customers CustomerReader
	ledger    LedgerRepository
	prefs     PreferenceRepository
	locations LocationReader
	deliver   Deliverer
	render    Renderer
	unsub     UnsubscribeLinker

	defaultFreqDays int
	parallelism     int
	now             func() time.Time
}

// Deps carries the engine's collaborators. All repository fields are
// required; Unsub may be nil to omit unsubscribe footers.
type Deps struct {
	Flows     FlowRepository
	Customers CustomerReader
	Ledger    LedgerRepository
	Prefs     PreferenceRepository
	Locations LocationReader
	Deliverer Deliverer
	Renderer  Renderer
	Unsub     UnsubscribeLinker

	// DefaultFreqDays is the cross-flow frequency cap applied when a
	// location does not set its own.
	DefaultFreqDays int
	// Parallelism bounds how many flows are processed concurrently.
	Parallelism int
}

// NewEngine creates a flow engine.
func NewEngine(d Deps) *Engine {
	if d.DefaultFreqDays <= 0 {
		d.DefaultFreqDays = domain.DefaultMaxEmailFrequencyDays
	}
	if d.Parallelism <= 0 {
		d.Parallelism = 4
	}
	return &Engine{
		flows:           d.Flows,
		customers:       d.Customers,
		ledger:          d.Ledger,
		prefs:           d.Prefs,
		locations:       d.Locations,
		deliver:         d.Deliverer,
		render:          d.Renderer,
		unsub:           d.Unsub,
		defaultFreqDays: d.DefaultFreqDays,
		parallelism:     d.Parallelism,
		now:             time.Now,
	}
}

// SetClock overrides the wall clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

// BatchSummary reports what one scheduled run did.
type BatchSummary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	FlowsProcessed int `json:"flows_processed"`
	FlowsSkipped   int `json:"flows_skipped"`
	Sent           int `json:"sent"`
	Failed         int `json:"failed"`

	Errors []FlowError `json:"errors,omitempty"`
}

// FlowError is one flow's fatal batch error. Per-customer send failures
// are not flow errors; they land in the ledger and the Failed counter.
type FlowError struct {
	FlowID uuid.UUID `json:"flow_id"`
	Err    string    `json:"error"`
}

// RunBatch processes every active flow once at the given run time and
// returns a summary. It never returns an error and never panics: a flow
// that fails to load its data is reported in Errors and the remaining
// flows still run.
func (e *Engine) RunBatch(ctx context.Context, now time.Time) BatchSummary {
	summary := BatchSummary{StartedAt: e.now()}

	active, err := e.flows.ListActiveFlows(ctx)
	if err != nil {
		summary.Errors = append(summary.Errors, FlowError{Err: fmt.Sprintf("list active flows: %v", err)})
		summary.FinishedAt = e.now()
		return summary
	}

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, e.parallelism)
	)

	for i := range active {
		flow := active[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					summary.Errors = append(summary.Errors, FlowError{FlowID: flow.ID, Err: fmt.Sprintf("panic: %v", r)})
					mu.Unlock()
					logger.Error("flow run panicked", "flow_id", flow.ID.String(), "panic", fmt.Sprint(r))
				}
			}()

			sent, failed, skipped, runErr := e.runFlow(ctx, &flow, now)

			mu.Lock()
			defer mu.Unlock()
			if runErr != nil {
				summary.Errors = append(summary.Errors, FlowError{FlowID: flow.ID, Err: runErr.Error()})
				return
			}
			if skipped {
				summary.FlowsSkipped++
				return
			}
			summary.FlowsProcessed++
			summary.Sent += sent
			summary.Failed += failed
		}()
	}
	wg.Wait()

	summary.FinishedAt = e.now()
	logger.Info("automation batch finished",
		"flows_processed", summary.FlowsProcessed,
		"flows_skipped", summary.FlowsSkipped,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"errors", len(summary.Errors))
	return summary
}

// runFlow processes one flow end to end: trigger match, eligibility,
// delivery, stats. skipped is true for flow types the engine has no
// matcher for.
func (e *Engine) runFlow(ctx context.Context, flow *domain.AutomationFlow, now time.Time) (sent, failed int, skipped bool, err error) {
	loc, err := e.locations.GetLocation(ctx, flow.LocationID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("load location %s: %w", flow.LocationID, err)
	}
	if loc == nil {
		return 0, 0, false, fmt.Errorf("location %s not found", flow.LocationID)
	}

	customers, err := e.customers.ListByLocation(ctx, flow.LocationID)
	if err != nil {
		return 0, 0, false, fmt.Errorf("list customers: %w", err)
	}

	candidates := matchCandidates(flow, customers, now)
	if candidates == nil && !knownFlowTypes[flow.Type] {
		logger.Warn("skipping flow with no trigger matcher",
			"flow_id", flow.ID.String(), "flow_type", string(flow.Type))
		return 0, 0, true, nil
	}

	eligible, err := e.filterEligible(ctx, flow, loc, candidates, now)
	if err != nil {
		return 0, 0, false, err
	}

	for i := range eligible {
		entry, recErr := e.deliverOne(ctx, flow, loc, &eligible[i], now)
		if recErr != nil {
			failed++
			logger.Error("delivery not recorded",
				"flow_id", flow.ID.String(),
				"customer_id", eligible[i].ID.String(),
				"error", recErr.Error())
			continue
		}
		if entry == nil {
			continue // duplicate, another run got there first
		}
		if entry.Status == domain.LedgerSent {
			sent++
		} else {
			failed++
		}
	}

	if err := e.flows.AddFlowStats(ctx, flow.ID, sent, now); err != nil {
		logger.Warn("flow stats update failed", "flow_id", flow.ID.String(), "error", err.Error())
	}
	return sent, failed, false, nil
}

// knownFlowTypes are the triggers the engine can match. Other types are
// accepted by the CRUD API but skipped by batches until a matcher exists.
var knownFlowTypes = map[domain.FlowType]bool{
	domain.FlowWelcome:  true,
	domain.FlowBirthday: true,
	domain.FlowWinback:  true,
}

// Get returns a flow by id.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*domain.AutomationFlow, error) {
	flow, err := e.flows.GetFlow(ctx, id)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, ErrFlowNotFound
	}
	return flow, nil
}

// List returns all flows for a location.
func (e *Engine) List(ctx context.Context, locationID uuid.UUID) ([]domain.AutomationFlow, error) {
	return e.flows.ListFlows(ctx, locationID)
}

// Create validates and stores a new flow. Flows start inactive unless the
// caller says otherwise.
func (e *Engine) Create(ctx context.Context, flow *domain.AutomationFlow) error {
	if err := validateFlow(flow); err != nil {
		return err
	}
	if flow.ID == uuid.Nil {
		flow.ID = uuid.New()
	}
	flow.CreatedAt = e.now()
	flow.UpdatedAt = flow.CreatedAt
	return e.flows.CreateFlow(ctx, flow)
}

// Update replaces a flow's configuration and template.
func (e *Engine) Update(ctx context.Context, flow *domain.AutomationFlow) error {
	if _, err := e.Get(ctx, flow.ID); err != nil {
		return err
	}
	if err := validateFlow(flow); err != nil {
		return err
	}
	flow.UpdatedAt = e.now()
	return e.flows.UpdateFlow(ctx, flow)
}

// SetActive toggles a flow without touching its configuration.
func (e *Engine) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if _, err := e.Get(ctx, id); err != nil {
		return err
	}
	return e.flows.SetFlowActive(ctx, id, active)
}

func validateFlow(flow *domain.AutomationFlow) error {
	switch flow.Type {
	case domain.FlowWelcome, domain.FlowBirthday, domain.FlowWinback,
		domain.FlowPostVisit, domain.FlowVIP, domain.FlowReviewRequest, domain.FlowCustom:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFlowType, flow.Type)
	}
	if flow.Template.Subject == "" || flow.Template.HTML == "" {
		return ErrTemplateRequired
	}
	return nil
}
