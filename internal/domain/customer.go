package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Customer is a guest record as seen by the segmentation and automation
// engine. It is owned by the customer-management module; the engine only
// reads it.
type Customer struct {
	ID         uuid.UUID `json:"id" db:"id"`
	LocationID uuid.UUID `json:"location_id" db:"location_id"`
	FirstName  string    `json:"first_name" db:"first_name"`
	LastName   string    `json:"last_name" db:"last_name"`

	// Email is empty when the customer has no usable address (never provided,
	// or invalidated by a hard bounce).
	Email string `json:"email" db:"email"`

	TotalVisits        int        `json:"total_visits" db:"total_visits"`
	NoShowCount        int        `json:"no_show_count" db:"no_show_count"`
	AverageSpend       *float64   `json:"average_spend" db:"average_spend"`
	Birthday           *time.Time `json:"birthday" db:"birthday"`
	Tags               []string   `json:"tags" db:"tags"`
	DietaryPreferences []string   `json:"dietary_preferences" db:"dietary_preferences"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	LastVisitAt *time.Time `json:"last_visit_at" db:"last_visit_at"`
}

// FullName joins the first and last name, tolerating either being empty.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// DaysSinceLastVisit returns the whole days elapsed since the last visit.
// ok is false when the customer has never visited.
func (c *Customer) DaysSinceLastVisit(now time.Time) (days int, ok bool) {
	if c.LastVisitAt == nil {
		return 0, false
	}
	d := int(now.Sub(*c.LastVisitAt).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return d, true
}

// HasTag reports whether the customer carries the given tag (case-insensitive).
func (c *Customer) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Location holds the per-location settings the engine reads. Everything else
// about a location lives with the reservations module.
type Location struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	FromEmail string    `json:"from_email" db:"from_email"`
	ReplyTo   string    `json:"reply_to" db:"reply_to"`

	// MaxEmailFrequencyDays is the cross-flow cool-down: a customer who
	// received any message within this many days is not messaged again.
	MaxEmailFrequencyDays int `json:"max_email_frequency_days" db:"max_email_frequency_days"`
}

// DefaultMaxEmailFrequencyDays applies when a location has no explicit setting.
const DefaultMaxEmailFrequencyDays = 3
