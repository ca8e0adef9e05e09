package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
	"github.com/dinelight/guestflow/internal/pkg/logger"
)

// deliverOne renders and sends a flow message to a single customer and
// records the attempt. Returns the recorded ledger entry, or nil when a
// concurrent run already consumed the dedup key. Render and provider
// failures are not errors at this level: they become failed ledger rows
// and the batch moves on to the next customer.
func (e *Engine) deliverOne(ctx context.Context, flow *domain.AutomationFlow, loc *domain.Location, c *domain.Customer, now time.Time) (*domain.SendLedgerEntry, error) {
	flowID := flow.ID
	entry := &domain.SendLedgerEntry{
		ID:         uuid.New(),
		FlowID:     &flowID,
		CustomerID: c.ID,
		LocationID: flow.LocationID,
		Period:     flow.Type.Period(now),
		SentAt:     now,
	}

	subject, html, err := e.renderMessage(flow, loc, c)
	if err != nil {
		entry.Status = domain.LedgerFailed
		entry.ErrorDetail = "render: " + err.Error()
		return e.record(ctx, entry)
	}

	providerID, sendErr := e.deliver.Send(ctx, OutboundMessage{
		To:      c.Email,
		From:    loc.FromEmail,
		ReplyTo: loc.ReplyTo,
		Subject: subject,
		HTML:    html,
	})
	if sendErr != nil {
		entry.Status = domain.LedgerFailed
		entry.ErrorDetail = sendErr.Error()
	} else {
		entry.Status = domain.LedgerSent
		entry.ProviderMessageID = providerID
	}

	return e.record(ctx, entry)
}

// record writes the ledger row. A duplicate key means another run handled
// this customer first; the attempt is dropped without counting anything.
func (e *Engine) record(ctx context.Context, entry *domain.SendLedgerEntry) (*domain.SendLedgerEntry, error) {
	err := e.ledger.Record(ctx, entry)
	if errors.Is(err, ErrDuplicateSend) {
		return nil, nil
	}
	if err != nil {
		if entry.Status == domain.LedgerSent {
			// The provider accepted the message but we could not record
			// it. The next run may repeat this send.
			logger.Warn("send accepted but ledger write failed",
				"customer_id", entry.CustomerID.String(),
				"error", err.Error())
		}
		return nil, fmt.Errorf("record ledger entry: %w", err)
	}
	return entry, nil
}

func (e *Engine) renderMessage(flow *domain.AutomationFlow, loc *domain.Location, c *domain.Customer) (subject, html string, err error) {
	data := renderContext(c, loc)

	// Cache keys carry the update stamp so editing a flow invalidates
	// its parsed templates.
	key := fmt.Sprintf("%s:%d", flow.ID, flow.UpdatedAt.Unix())
	subject, err = e.render.Render(key+":subject", flow.Template.Subject, data)
	if err != nil {
		return "", "", err
	}
	html, err = e.render.Render(key+":html", flow.Template.HTML, data)
	if err != nil {
		return "", "", err
	}

	if e.unsub != nil {
		html += fmt.Sprintf(
			`<p style="font-size:12px;color:#888"><a href="%s">Unsubscribe</a></p>`,
			e.unsub.UnsubscribeURL(c.ID, loc.ID))
	}
	return subject, html, nil
}

// renderContext exposes the customer and location attributes templates
// may reference.
func renderContext(c *domain.Customer, loc *domain.Location) map[string]any {
	return map[string]any{
		"first_name":    c.FirstName,
		"last_name":     c.LastName,
		"full_name":     c.FullName(),
		"email":         c.Email,
		"total_visits":  c.TotalVisits,
		"location_name": loc.Name,
	}
}
