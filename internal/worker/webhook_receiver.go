// Package worker holds the background pieces of the system: the webhook
// receiver for provider callbacks, the batch scheduler and the preview
// debouncer.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/pkg/logger"
	"github.com/dinelight/guestflow/internal/service/flows"
)

// EventSink consumes parsed provider events and unsubscribe requests.
// Implemented by flows.Engine.
type EventSink interface {
	HandleProviderEvent(ctx context.Context, ev flows.ProviderEvent) error
	Unsubscribe(ctx context.Context, customerID, locationID uuid.UUID) error
}

// TokenVerifier checks the signature on unsubscribe links.
// Implemented by mailing.UnsubscribeSigner.
type TokenVerifier interface {
	Verify(customerID, locationID uuid.UUID, token string) bool
}

// WebhookReceiver handles incoming delivery-provider webhook batches and
// guest-facing unsubscribe clicks.
type WebhookReceiver struct {
	sink     EventSink
	verifier TokenVerifier

	// Stats
	eventsReceived int64
	eventsApplied  int64
	errors         int64
}

// NewWebhookReceiver creates a webhook receiver.
func NewWebhookReceiver(sink EventSink, verifier TokenVerifier) *WebhookReceiver {
	return &WebhookReceiver{sink: sink, verifier: verifier}
}

// providerWebhookEvent is one entry of a provider webhook batch.
type providerWebhookEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	Timestamp int64  `json:"timestamp"`
}

// HandleProviderWebhook ingests a JSON array of provider events. Always
// answers 200 for parseable batches, even when individual events fail to
// apply, so the provider does not endlessly retry the whole batch.
func (w *WebhookReceiver) HandleProviderWebhook(rw http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 4<<20))
	if err != nil {
		http.Error(rw, "failed to read body", http.StatusBadRequest)
		return
	}

	var events []providerWebhookEvent
	if err := json.Unmarshal(body, &events); err != nil {
		http.Error(rw, "invalid JSON", http.StatusBadRequest)
		return
	}

	applied := 0
	for _, ev := range events {
		atomic.AddInt64(&w.eventsReceived, 1)

		var at time.Time
		if ev.Timestamp > 0 {
			at = time.Unix(ev.Timestamp, 0).UTC()
		}
		err := w.sink.HandleProviderEvent(r.Context(), flows.ProviderEvent{
			Type:              ev.Type,
			ProviderMessageID: ev.MessageID,
			OccurredAt:        at,
		})
		if err != nil {
			atomic.AddInt64(&w.errors, 1)
			logger.Error("webhook event failed", "type", ev.Type, "message_id", ev.MessageID, "error", err.Error())
			continue
		}
		atomic.AddInt64(&w.eventsApplied, 1)
		applied++
	}

	rw.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(rw, `{"received":%d,"applied":%d}`, len(events), applied)
}

// HandleUnsubscribe serves the one-click unsubscribe link from message
// footers. It is a GET, always idempotent, and always answers with a
// human-readable page; an invalid or tampered link gets a polite failure
// rather than a stack of JSON.
func (w *WebhookReceiver) HandleUnsubscribe(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customerID, errC := uuid.Parse(q.Get("c"))
	locationID, errL := uuid.Parse(q.Get("l"))
	token := q.Get("t")

	rw.Header().Set("Content-Type", "text/html; charset=utf-8")

	if errC != nil || errL != nil || token == "" || !w.verifier.Verify(customerID, locationID, token) {
		rw.WriteHeader(http.StatusBadRequest)
		io.WriteString(rw, unsubscribeFailPage)
		return
	}

	if err := w.sink.Unsubscribe(r.Context(), customerID, locationID); err != nil {
		logger.Error("unsubscribe failed", "customer_id", customerID.String(), "error", err.Error())
		rw.WriteHeader(http.StatusInternalServerError)
		io.WriteString(rw, unsubscribeFailPage)
		return
	}

	io.WriteString(rw, unsubscribeOKPage)
}

// Stats returns receiver counters for the health endpoint.
func (w *WebhookReceiver) Stats() (received, applied, errors int64) {
	return atomic.LoadInt64(&w.eventsReceived), atomic.LoadInt64(&w.eventsApplied), atomic.LoadInt64(&w.errors)
}

const unsubscribeOKPage = `<!DOCTYPE html>
<html><head><title>Unsubscribed</title></head>
<body style="font-family:sans-serif;max-width:480px;margin:80px auto;text-align:center">
<h2>You're unsubscribed</h2>
<p>You won't receive any more automated emails from this restaurant.</p>
</body></html>`

const unsubscribeFailPage = `<!DOCTYPE html>
<html><head><title>Link not valid</title></head>
<body style="font-family:sans-serif;max-width:480px;margin:80px auto;text-align:center">
<h2>This link isn't valid</h2>
<p>The unsubscribe link appears to be incomplete. Please use the link from your email.</p>
</body></html>`
