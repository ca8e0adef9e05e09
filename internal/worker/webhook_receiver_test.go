package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/dinelight/guestflow/internal/service/flows"
)

type mockSink struct {
	mu       sync.Mutex
	events   []flows.ProviderEvent
	unsubbed []uuid.UUID
	eventErr error
	unsubErr error
}

func (m *mockSink) HandleProviderEvent(_ context.Context, ev flows.ProviderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.eventErr != nil {
		return m.eventErr
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *mockSink) Unsubscribe(_ context.Context, customerID, _ uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unsubErr != nil {
		return m.unsubErr
	}
	m.unsubbed = append(m.unsubbed, customerID)
	return nil
}

type mockVerifier struct{ ok bool }

func (m mockVerifier) Verify(_, _ uuid.UUID, _ string) bool { return m.ok }

func TestHandleProviderWebhook(t *testing.T) {
	sink := &mockSink{}
	recv := NewWebhookReceiver(sink, mockVerifier{ok: true})

	body := `[
		{"type":"delivered","message_id":"pm-1","timestamp":1750000000},
		{"type":"bounce","message_id":"pm-2","timestamp":1750000060}
	]`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", strings.NewReader(body))
	rw := httptest.NewRecorder()

	recv.HandleProviderWebhook(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("status = %d", rw.Code)
	}
	if len(sink.events) != 2 {
		t.Fatalf("sink got %d events, want 2", len(sink.events))
	}
	if sink.events[0].Type != "delivered" || sink.events[0].ProviderMessageID != "pm-1" {
		t.Errorf("first event = %+v", sink.events[0])
	}
	if sink.events[1].OccurredAt.IsZero() {
		t.Error("timestamp not parsed")
	}

	received, applied, errCount := recv.Stats()
	if received != 2 || applied != 2 || errCount != 0 {
		t.Errorf("stats = %d/%d/%d", received, applied, errCount)
	}
}

func TestHandleProviderWebhookBadJSON(t *testing.T) {
	recv := NewWebhookReceiver(&mockSink{}, mockVerifier{ok: true})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider", strings.NewReader("not json"))
	rw := httptest.NewRecorder()
	recv.HandleProviderWebhook(rw, req)

	if rw.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rw.Code)
	}
}

func TestHandleProviderWebhookSinkErrorsStillAnswer200(t *testing.T) {
	sink := &mockSink{eventErr: errors.New("db down")}
	recv := NewWebhookReceiver(sink, mockVerifier{ok: true})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/provider",
		strings.NewReader(`[{"type":"delivered","message_id":"pm-1"}]`))
	rw := httptest.NewRecorder()
	recv.HandleProviderWebhook(rw, req)

	if rw.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 so the provider does not retry the batch", rw.Code)
	}
	_, _, errCount := recv.Stats()
	if errCount != 1 {
		t.Errorf("error count = %d, want 1", errCount)
	}
}

func TestHandleUnsubscribe(t *testing.T) {
	sink := &mockSink{}
	recv := NewWebhookReceiver(sink, mockVerifier{ok: true})

	customer := uuid.New()
	location := uuid.New()
	url := "/u?c=" + customer.String() + "&l=" + location.String() + "&t=tok"

	// Clicking twice is fine; both answer with the confirmation page.
	for i := 0; i < 2; i++ {
		rw := httptest.NewRecorder()
		recv.HandleUnsubscribe(rw, httptest.NewRequest(http.MethodGet, url, nil))
		if rw.Code != http.StatusOK {
			t.Fatalf("click %d status = %d", i+1, rw.Code)
		}
		if !strings.Contains(rw.Body.String(), "unsubscribed") {
			t.Errorf("click %d body missing confirmation", i+1)
		}
	}
	if len(sink.unsubbed) != 2 || sink.unsubbed[0] != customer {
		t.Errorf("sink unsubscribes = %v", sink.unsubbed)
	}
}

func TestHandleUnsubscribeRejectsBadLinks(t *testing.T) {
	sink := &mockSink{}

	// Tampered token.
	recv := NewWebhookReceiver(sink, mockVerifier{ok: false})
	rw := httptest.NewRecorder()
	url := "/u?c=" + uuid.NewString() + "&l=" + uuid.NewString() + "&t=bad"
	recv.HandleUnsubscribe(rw, httptest.NewRequest(http.MethodGet, url, nil))
	if rw.Code != http.StatusBadRequest {
		t.Errorf("tampered token status = %d, want 400", rw.Code)
	}

	// Malformed customer id.
	recv = NewWebhookReceiver(sink, mockVerifier{ok: true})
	rw = httptest.NewRecorder()
	recv.HandleUnsubscribe(rw, httptest.NewRequest(http.MethodGet, "/u?c=nope&l="+uuid.NewString()+"&t=tok", nil))
	if rw.Code != http.StatusBadRequest {
		t.Errorf("malformed id status = %d, want 400", rw.Code)
	}
	if len(sink.unsubbed) != 0 {
		t.Errorf("bad links reached the sink: %v", sink.unsubbed)
	}
}
