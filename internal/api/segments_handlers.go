package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/pkg/httputil"
	"github.com/dinelight/guestflow/internal/segment"
	"github.com/dinelight/guestflow/internal/service/segments"
)

// previewRequest is the payload of the segment builder's live preview.
// Rules may be null, meaning the full consented audience. SessionID, when
// present, identifies the editing session for debouncing.
type previewRequest struct {
	LocationID uuid.UUID      `json:"location_id"`
	Rules      *segment.Rules `json:"filter_rules"`
	SessionID  string         `json:"session_id,omitempty"`
}

type previewResponse struct {
	Count   int  `json:"count"`
	Pending bool `json:"pending,omitempty"`
}

// PreviewCount serves the live guest count in the segment builder. Rapid
// edits within one session are debounced: only the first request of a
// burst is counted synchronously, later ones answer 202 and the final
// rule shape is recounted after the quiet period.
func (h *Handlers) PreviewCount(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.LocationID == uuid.Nil {
		httputil.BadRequest(w, "location_id is required")
		return
	}

	if h.debounce != nil && req.SessionID != "" {
		restarted := h.debounce.Trigger(req.SessionID, func() {
			ctx, cancel := background()
			defer cancel()
			if _, err := h.segments.PreviewCount(ctx, req.LocationID, req.Rules); err != nil {
				return
			}
		})
		if restarted {
			httputil.JSON(w, http.StatusAccepted, previewResponse{Pending: true})
			return
		}
	}

	count, err := h.segments.PreviewCount(r.Context(), req.LocationID, req.Rules)
	if err != nil {
		segmentError(w, err)
		return
	}
	httputil.OK(w, previewResponse{Count: count})
}

// ListSegmentCustomers pages through the customers matching a rule set.
func (h *Handlers) ListSegmentCustomers(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.LocationID == uuid.Nil {
		httputil.BadRequest(w, "location_id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	customers, err := h.segments.ListCustomers(r.Context(), req.LocationID, req.Rules, limit, offset)
	if err != nil {
		segmentError(w, err)
		return
	}
	count, err := h.segments.CountCustomers(r.Context(), req.LocationID, req.Rules)
	if err != nil {
		segmentError(w, err)
		return
	}
	httputil.OK(w, map[string]any{
		"customers": customers,
		"total":     count,
		"limit":     limit,
		"offset":    offset,
	})
}

// ListOperators returns the operator picker data for the rule builder.
func (h *Handlers) ListOperators(w http.ResponseWriter, _ *http.Request) {
	out := make(map[segment.Field][]segment.Operator, len(segment.Fields()))
	for _, f := range segment.Fields() {
		out[f] = segment.OperatorsFor(f)
	}
	httputil.OK(w, out)
}

func (h *Handlers) ListSegments(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryLocationID(w, r)
	if !ok {
		return
	}
	segs, err := h.segments.List(r.Context(), locationID)
	if err != nil {
		httputil.InternalError(w, err)
		return
	}
	httputil.OK(w, segs)
}

func (h *Handlers) GetSegment(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryLocationID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	seg, err := h.segments.Get(r.Context(), locationID, id)
	if err != nil {
		segmentError(w, err)
		return
	}
	httputil.OK(w, seg)
}

func (h *Handlers) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var seg segment.Segment
	if !httputil.Decode(w, r, &seg) {
		return
	}
	if seg.LocationID == uuid.Nil {
		httputil.BadRequest(w, "location_id is required")
		return
	}
	if err := h.segments.Create(r.Context(), &seg); err != nil {
		segmentError(w, err)
		return
	}
	httputil.Created(w, seg)
}

func (h *Handlers) UpdateSegment(w http.ResponseWriter, r *http.Request) {
	var seg segment.Segment
	if !httputil.Decode(w, r, &seg) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	seg.ID = id
	if err := h.segments.Update(r.Context(), &seg); err != nil {
		segmentError(w, err)
		return
	}
	httputil.OK(w, seg)
}

func (h *Handlers) DeleteSegment(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryLocationID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.segments.Delete(r.Context(), locationID, id); err != nil {
		segmentError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "deleted"})
}

// RefreshSegmentCount recomputes and stores a segment's cached count.
func (h *Handlers) RefreshSegmentCount(w http.ResponseWriter, r *http.Request) {
	locationID, ok := queryLocationID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	count, err := h.segments.RefreshCachedCount(r.Context(), locationID, id)
	if err != nil {
		segmentError(w, err)
		return
	}
	httputil.OK(w, map[string]int{"count": count})
}

func segmentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, segments.ErrNotFound):
		httputil.NotFound(w, "segment not found")
	case errors.Is(err, segments.ErrSystemSegment):
		httputil.Error(w, http.StatusForbidden, "system segments are read-only")
	case errors.Is(err, segments.ErrInvalidRules), errors.Is(err, segments.ErrNameRequired):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalError(w, err)
	}
}

func queryLocationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.URL.Query().Get("location_id"))
	if err != nil {
		httputil.BadRequest(w, "location_id is required")
		return uuid.Nil, false
	}
	return id, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.BadRequest(w, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
