package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
)

// filterEligible narrows trigger candidates through the three suppression
// stages, in order: ledger dedup, consent, cross-flow frequency. The order
// matters for the ledger's meaning; a customer dropped by dedup must not
// be re-examined by later stages.
func (e *Engine) filterEligible(ctx context.Context, flow *domain.AutomationFlow, loc *domain.Location, candidates []domain.Customer, now time.Time) ([]domain.Customer, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	alreadySent, err := e.ledger.SentCustomerIDs(ctx, flow.ID, flow.Type.Period(now))
	if err != nil {
		return nil, fmt.Errorf("load sent ledger for flow %s: %w", flow.ID, err)
	}

	optedIn, err := e.prefs.OptedInCustomerIDs(ctx, flow.LocationID, domain.ChannelEmail)
	if err != nil {
		return nil, fmt.Errorf("load consent for location %s: %w", flow.LocationID, err)
	}

	freqDays := loc.MaxEmailFrequencyDays
	if freqDays <= 0 {
		freqDays = e.defaultFreqDays
	}
	recentlyMessaged, err := e.ledger.MessagedCustomerIDs(ctx, flow.LocationID, now.AddDate(0, 0, -freqDays))
	if err != nil {
		return nil, fmt.Errorf("load recent sends for location %s: %w", flow.LocationID, err)
	}

	var eligible []domain.Customer
	for _, c := range candidates {
		switch {
		case alreadySent[c.ID]:
		case !optedIn[c.ID]:
		case recentlyMessaged[c.ID]:
		default:
			eligible = append(eligible, c)
		}
	}
	return eligible, nil
}

// Unsubscribe records an opt-out for the email channel. Idempotent:
// repeating it for an already opted-out customer is a no-op.
func (e *Engine) Unsubscribe(ctx context.Context, customerID, locationID uuid.UUID) error {
	return e.prefs.OptOut(ctx, customerID, locationID, domain.ChannelEmail, e.now())
}
