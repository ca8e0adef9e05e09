package mailing

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestUnsubscribeTokenRoundTrip(t *testing.T) {
	signer := NewUnsubscribeSigner("https://guestflow.test", "secret-key")
	customer := uuid.New()
	location := uuid.New()

	token := signer.Token(customer, location)
	if token == "" {
		t.Fatal("empty token")
	}
	if token != signer.Token(customer, location) {
		t.Error("token is not deterministic")
	}
	if !signer.Verify(customer, location, token) {
		t.Error("valid token rejected")
	}
	if signer.Verify(uuid.New(), location, token) {
		t.Error("token accepted for a different customer")
	}
	if signer.Verify(customer, location, token+"00") {
		t.Error("tampered token accepted")
	}

	other := NewUnsubscribeSigner("https://guestflow.test", "different-key")
	if other.Verify(customer, location, token) {
		t.Error("token accepted under a different signing key")
	}
}

func TestUnsubscribeURL(t *testing.T) {
	signer := NewUnsubscribeSigner("https://guestflow.test", "secret-key")
	customer := uuid.New()
	location := uuid.New()

	u := signer.UnsubscribeURL(customer, location)
	for _, part := range []string{"https://guestflow.test/u?", "c=" + customer.String(), "l=" + location.String(), "t="} {
		if !strings.Contains(u, part) {
			t.Errorf("url %q missing %q", u, part)
		}
	}
}
