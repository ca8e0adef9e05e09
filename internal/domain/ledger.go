package domain

import (
	"time"

	"github.com/google/uuid"
)

// LedgerStatus enumerates the lifecycle of a recorded send. The engine only
// ever writes sent or failed; later states arrive through provider webhooks.
type LedgerStatus string

const (
	LedgerSent         LedgerStatus = "sent"
	LedgerFailed       LedgerStatus = "failed"
	LedgerDelivered    LedgerStatus = "delivered"
	LedgerOpened       LedgerStatus = "opened"
	LedgerClicked      LedgerStatus = "clicked"
	LedgerBounced      LedgerStatus = "bounced"
	LedgerUnsubscribed LedgerStatus = "unsubscribed"
)

// SendLedgerEntry is the durable, append-only record of an attempted send.
// The (flow_id, customer_id, period) triple is the sole dedup key and must
// never be deleted by the engine; status fields may be updated later by
// delivery-provider callbacks.
type SendLedgerEntry struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	FlowID     *uuid.UUID `json:"flow_id" db:"flow_id"` // nil for ad-hoc sends
	CustomerID uuid.UUID  `json:"customer_id" db:"customer_id"`
	LocationID uuid.UUID  `json:"location_id" db:"location_id"`

	// Period partitions dedup for repeatable flows ("2025" for a birthday
	// send); empty for everything else.
	Period string `json:"period" db:"period"`

	Status            LedgerStatus `json:"status" db:"status"`
	ProviderMessageID string       `json:"provider_message_id" db:"provider_message_id"`
	ErrorDetail       string       `json:"error_detail,omitempty" db:"error_detail"`
	SentAt            time.Time    `json:"sent_at" db:"sent_at"`
}

// Channel identifies a messaging channel for consent purposes.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// ContactPreference is one consent row per (customer, location, channel).
// Absence of a row means NOT opted in; opt-in is never assumed.
type ContactPreference struct {
	CustomerID uuid.UUID  `json:"customer_id" db:"customer_id"`
	LocationID uuid.UUID  `json:"location_id" db:"location_id"`
	Channel    Channel    `json:"channel" db:"channel"`
	OptedIn    bool       `json:"opted_in" db:"opted_in"`
	OptedInAt  *time.Time `json:"opted_in_at" db:"opted_in_at"`
	OptedOutAt *time.Time `json:"opted_out_at" db:"opted_out_at"`
}
