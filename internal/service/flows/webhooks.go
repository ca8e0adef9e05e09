package flows

import (
	"context"
	"fmt"
	"time"

	"github.com/dinelight/guestflow/internal/domain"
	"github.com/dinelight/guestflow/internal/pkg/logger"
)

// ProviderEvent is one delivery-provider callback, already parsed from
// the webhook payload.
type ProviderEvent struct {
	Type              string    `json:"type"`
	ProviderMessageID string    `json:"message_id"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// eventStatus maps provider event names onto ledger statuses. Complaints
// map to unsubscribed because the opt-out is the durable consequence.
var eventStatus = map[string]domain.LedgerStatus{
	"delivered":  domain.LedgerDelivered,
	"open":       domain.LedgerOpened,
	"opened":     domain.LedgerOpened,
	"click":      domain.LedgerClicked,
	"clicked":    domain.LedgerClicked,
	"bounce":     domain.LedgerBounced,
	"bounced":    domain.LedgerBounced,
	"complaint":  domain.LedgerUnsubscribed,
	"complained": domain.LedgerUnsubscribed,
}

// HandleProviderEvent applies one provider callback: it updates the ledger
// row's status and, for bounces and complaints, mutates the customer
// record. Events for unknown message ids or of unknown types are dropped
// with a log line, not an error, so the provider does not retry them.
func (e *Engine) HandleProviderEvent(ctx context.Context, ev ProviderEvent) error {
	status, ok := eventStatus[ev.Type]
	if !ok {
		logger.Debug("ignoring provider event of unknown type", "type", ev.Type)
		return nil
	}

	entry, err := e.ledger.GetByProviderMessageID(ctx, ev.ProviderMessageID)
	if err != nil {
		return fmt.Errorf("look up ledger entry: %w", err)
	}
	if entry == nil {
		logger.Debug("provider event for unknown message", "message_id", ev.ProviderMessageID)
		return nil
	}

	if err := e.ledger.UpdateStatusByProviderMessageID(ctx, ev.ProviderMessageID, status); err != nil {
		return fmt.Errorf("update ledger status: %w", err)
	}

	switch status {
	case domain.LedgerBounced:
		// Hard bounce: the address is gone. Clearing it keeps the
		// customer out of future trigger candidate sets.
		if err := e.customers.InvalidateEmail(ctx, entry.CustomerID); err != nil {
			return fmt.Errorf("invalidate email: %w", err)
		}
	case domain.LedgerUnsubscribed:
		at := ev.OccurredAt
		if at.IsZero() {
			at = e.now()
		}
		if err := e.prefs.OptOut(ctx, entry.CustomerID, entry.LocationID, domain.ChannelEmail, at); err != nil {
			return fmt.Errorf("opt out after complaint: %w", err)
		}
	}
	return nil
}
