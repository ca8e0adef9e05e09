package mailing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dinelight/guestflow/internal/service/flows"
)

func TestProviderClientSend(t *testing.T) {
	var got providerSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(providerSendResponse{MessageID: "pm-abc"})
	}))
	defer srv.Close()

	client := NewProviderClient("test-key", srv.URL, time.Second)
	id, err := client.Send(context.Background(), flows.OutboundMessage{
		To:      "guest@example.com",
		From:    "hello@harborbistro.test",
		Subject: "Welcome",
		HTML:    "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if id != "pm-abc" {
		t.Errorf("message id = %q", id)
	}
	if got.To != "guest@example.com" || got.Subject != "Welcome" {
		t.Errorf("provider saw %+v", got)
	}
}

func TestProviderClientRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(providerSendResponse{Error: "invalid recipient"})
	}))
	defer srv.Close()

	client := NewProviderClient("test-key", srv.URL, time.Second)
	_, err := client.Send(context.Background(), flows.OutboundMessage{To: "bad"})
	if err == nil {
		t.Fatal("rejection did not error")
	}
	if !strings.Contains(err.Error(), "invalid recipient") {
		t.Errorf("error %q missing provider detail", err)
	}
}

func TestProviderClientMissingMessageID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewProviderClient("test-key", srv.URL, time.Second)
	if _, err := client.Send(context.Background(), flows.OutboundMessage{To: "a@b.c"}); err == nil {
		t.Fatal("accepted response without message id")
	}
}
