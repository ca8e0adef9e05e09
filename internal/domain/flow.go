package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// FlowType enumerates the automation flow triggers the engine understands.
type FlowType string

const (
	FlowWelcome       FlowType = "welcome"
	FlowBirthday      FlowType = "birthday"
	FlowWinback       FlowType = "winback"
	FlowPostVisit     FlowType = "post_visit"
	FlowVIP           FlowType = "vip"
	FlowReviewRequest FlowType = "review_request"
	FlowCustom        FlowType = "custom"
)

// Repeatable reports whether the flow may message the same customer more than
// once, on a per-period basis. Birthday recurs annually; everything else
// sends at most once per customer, ever.
func (t FlowType) Repeatable() bool {
	return t == FlowBirthday
}

// Period returns the dedup period key for a send happening at now. Repeatable
// flows dedup within the calendar year; non-repeatable flows use the empty
// period, so the (flow, customer) pair dedups forever.
func (t FlowType) Period(now time.Time) string {
	if t.Repeatable() {
		return strconv.Itoa(now.Year())
	}
	return ""
}

// MessageTemplate is the already-resolved content for a flow. Template
// resolution (drafts, versioning, the builder UI) happens upstream; the
// engine only renders and sends.
type MessageTemplate struct {
	Subject string `json:"subject" db:"subject"`
	HTML    string `json:"html" db:"html"`
}

// FlowStats is the run bookkeeping mutated by each scheduled batch.
type FlowStats struct {
	SentCount int        `json:"sent_count" db:"sent_count"`
	LastRunAt *time.Time `json:"last_run_at" db:"last_run_at"`
}

// AutomationFlow is a recurring automated-messaging rule keyed to a customer
// lifecycle trigger.
type AutomationFlow struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	LocationID    uuid.UUID       `json:"location_id" db:"location_id"`
	Type          FlowType        `json:"flow_type" db:"flow_type"`
	Name          string          `json:"name" db:"name"`
	TriggerConfig map[string]any  `json:"trigger_config" db:"trigger_config"`
	Template      MessageTemplate `json:"template"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	Stats         FlowStats       `json:"stats"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// IntParam reads an integer trigger parameter, tolerating the JSON number
// and string encodings that survive a round-trip through storage.
func (f *AutomationFlow) IntParam(key string, def int) int {
	v, ok := f.TriggerConfig[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if parsed, err := strconv.Atoi(n); err == nil {
			return parsed
		}
	}
	return def
}

// Trigger parameter defaults.
const (
	DefaultWinbackDaysThreshold = 30
	DefaultBirthdayLeadDays     = 7
	DefaultWelcomeWindowHours   = 24
)
