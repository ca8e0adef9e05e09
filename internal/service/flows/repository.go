package flows

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
)

// FlowRepository is the persistence contract for automation flows.
// Implemented by repository/postgres.FlowRepo.
type FlowRepository interface {
	ListActiveFlows(ctx context.Context) ([]domain.AutomationFlow, error)
	ListFlows(ctx context.Context, locationID uuid.UUID) ([]domain.AutomationFlow, error)
	// GetFlow returns nil, nil when no flow matches.
	GetFlow(ctx context.Context, id uuid.UUID) (*domain.AutomationFlow, error)
	CreateFlow(ctx context.Context, flow *domain.AutomationFlow) error
	UpdateFlow(ctx context.Context, flow *domain.AutomationFlow) error
	SetFlowActive(ctx context.Context, id uuid.UUID, active bool) error
	// AddFlowStats increments the persistent sent counter and stamps the
	// last run time after a batch.
	AddFlowStats(ctx context.Context, id uuid.UUID, sentDelta int, ranAt time.Time) error
}

// CustomerReader provides the customer rows trigger matching runs over.
type CustomerReader interface {
	ListByLocation(ctx context.Context, locationID uuid.UUID) ([]domain.Customer, error)
	// InvalidateEmail clears a customer's address after a hard bounce.
	InvalidateEmail(ctx context.Context, customerID uuid.UUID) error
}

// LedgerRepository is the send ledger, append-only from the engine's
// perspective; rows are never deleted, only their status updated. Record
// must fail with ErrDuplicateSend when a non-failed row already holds the
// (flow, customer, period) key. A failed row does not consume the key: a
// later attempt replaces it, which is what lets the next scheduled run
// retry a provider outage.
type LedgerRepository interface {
	Record(ctx context.Context, entry *domain.SendLedgerEntry) error
	// SentCustomerIDs returns every customer with a non-failed entry for
	// the flow in the given period.
	SentCustomerIDs(ctx context.Context, flowID uuid.UUID, period string) (map[uuid.UUID]bool, error)
	// MessagedCustomerIDs returns customers actually messaged (non-failed
	// entries) at or after since, across all flows of the location.
	MessagedCustomerIDs(ctx context.Context, locationID uuid.UUID, since time.Time) (map[uuid.UUID]bool, error)
	GetByProviderMessageID(ctx context.Context, providerMessageID string) (*domain.SendLedgerEntry, error)
	UpdateStatusByProviderMessageID(ctx context.Context, providerMessageID string, status domain.LedgerStatus) error
}

// PreferenceRepository is the consent store. Absence of a row means not
// opted in.
type PreferenceRepository interface {
	OptedInCustomerIDs(ctx context.Context, locationID uuid.UUID, channel domain.Channel) (map[uuid.UUID]bool, error)
	OptOut(ctx context.Context, customerID, locationID uuid.UUID, channel domain.Channel, at time.Time) error
}

// LocationReader resolves the sending identity and policy of a location.
type LocationReader interface {
	GetLocation(ctx context.Context, id uuid.UUID) (*domain.Location, error)
}

// Deliverer hands a rendered message to the delivery provider. A non-nil
// error means the provider did not accept the message; the engine records
// it as a failed attempt and moves on.
type Deliverer interface {
	Send(ctx context.Context, msg OutboundMessage) (providerMessageID string, err error)
}

// OutboundMessage is a fully rendered, ready-to-send email.
type OutboundMessage struct {
	To      string
	From    string
	ReplyTo string
	Subject string
	HTML    string
}

// Renderer expands template placeholders against a per-customer context.
// Implemented by mailing.TemplateService.
type Renderer interface {
	Render(cacheKey, tpl string, data map[string]any) (string, error)
}

// UnsubscribeLinker builds the signed one-click unsubscribe URL embedded
// in every automated message.
type UnsubscribeLinker interface {
	UnsubscribeURL(customerID, locationID uuid.UUID) string
}
