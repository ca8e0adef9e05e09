package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/domain"
	"github.com/dinelight/guestflow/internal/pkg/httputil"
	"github.com/dinelight/guestflow/internal/service/flows"
)

func (h *Handlers) ListFlows(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryLocationID(w, r)
	if !ok {
		return
	}
	out, err := h.engine.List(r.Context(), locationID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, out)
}

func (h *Handlers) GetFlow(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	flow, err := h.engine.Get(r.Context(), id)
	if err != nil {
		flowError(w, err)
		return
	}
	httputil.OK(w, flow)
}

func (h *Handlers) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var flow domain.AutomationFlow
	if !httputil.Decode(w, r, &flow) {
		return
	}
	if flow.LocationID == uuid.Nil {
		httputil.BadRequest(w, "location_id is required")
		return
	}
	if err := h.engine.Create(r.Context(), &flow); err != nil {
		flowError(w, err)
		return
	}
	httputil.Created(w, flow)
}

func (h *Handlers) UpdateFlow(w http.ResponseWriter, r *http.Request) {
	var flow domain.AutomationFlow
	if !httputil.Decode(w, r, &flow) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	flow.ID = id
	if err := h.engine.Update(r.Context(), &flow); err != nil {
		flowError(w, err)
		return
	}
	httputil.OK(w, flow)
}

// SetFlowActive toggles a flow on or off.
func (h *Handlers) SetFlowActive(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if !httputil.Decode(w, r, &req) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.engine.SetActive(r.Context(), id, req.Active); err != nil {
		flowError(w, err)
		return
	}
	httputil.OK(w, map[string]any{"id": id, "active": req.Active})
}

func flowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, flows.ErrFlowNotFound):
		httputil.NotFound(w, "flow not found")
	case errors.Is(err, flows.ErrUnknownFlowType), errors.Is(err, flows.ErrTemplateRequired):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}
