package mailing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// UnsubscribeSigner builds and verifies the signed one-click unsubscribe
// links embedded in every automated message. The token is deterministic
// for a (customer, location) pair, so links in old messages keep working.
type UnsubscribeSigner struct {
	baseURL    string
	signingKey []byte
}

// NewUnsubscribeSigner creates a signer. baseURL is the public address of
// the unsubscribe endpoint, without a trailing slash.
func NewUnsubscribeSigner(baseURL, signingKey string) *UnsubscribeSigner {
	return &UnsubscribeSigner{baseURL: baseURL, signingKey: []byte(signingKey)}
}

// Token returns the hex HMAC tying a customer to a location.
func (u *UnsubscribeSigner) Token(customerID, locationID uuid.UUID) string {
	h := hmac.New(sha256.New, u.signingKey)
	h.Write([]byte(customerID.String() + "|" + locationID.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// Verify reports whether token is valid for the pair. Constant-time.
func (u *UnsubscribeSigner) Verify(customerID, locationID uuid.UUID, token string) bool {
	want := u.Token(customerID, locationID)
	return hmac.Equal([]byte(want), []byte(token))
}

// UnsubscribeURL builds the full link for a message footer.
func (u *UnsubscribeSigner) UnsubscribeURL(customerID, locationID uuid.UUID) string {
	return fmt.Sprintf("%s/u?c=%s&l=%s&t=%s", u.baseURL, customerID, locationID, u.Token(customerID, locationID))
}
