// Package api exposes the HTTP surface: segment building and preview,
// flow management, provider webhooks and the unsubscribe endpoint.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/dinelight/guestflow/internal/pkg/httputil"
	"github.com/dinelight/guestflow/internal/pkg/logger"
	"github.com/dinelight/guestflow/internal/service/flows"
	"github.com/dinelight/guestflow/internal/service/segments"
	"github.com/dinelight/guestflow/internal/worker"
)

// Handlers bundles the services the HTTP layer fronts.
type Handlers struct {
	segments *segments.Service
	engine   *flows.Engine
	receiver *worker.WebhookReceiver
	debounce *worker.Debouncer
}

// NewHandlers creates the handler set. debounce may be nil to disable
// preview debouncing (tests do this).
func NewHandlers(seg *segments.Service, engine *flows.Engine, receiver *worker.WebhookReceiver, debounce *worker.Debouncer) *Handlers {
	return &Handlers{segments: seg, engine: engine, receiver: receiver, debounce: debounce}
}

// HealthCheck reports liveness plus webhook counters.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if h.receiver != nil {
		received, applied, errs := h.receiver.Stats()
		resp["webhook_events"] = map[string]int64{
			"received": received,
			"applied":  applied,
			"errors":   errs,
		}
	}
	httputil.OK(w, resp)
}

// RunAutomation triggers one automation batch outside the schedule.
// Useful for operations and smoke tests; the run is synchronous.
func (h *Handlers) RunAutomation(w http.ResponseWriter, r *http.Request) {
	sum := h.engine.RunBatch(r.Context(), time.Now().UTC())
	logger.Info("manual automation batch",
		"flows_processed", sum.FlowsProcessed, "sent", sum.Sent, "failed", sum.Failed)
	httputil.OK(w, sum)
}

// background returns a detached context for work that outlives the
// request, bounded so a stuck recount cannot leak a goroutine forever.
func background() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
