package flows

import (
	"time"

	"github.com/dinelight/guestflow/internal/domain"
)

// matchCandidates selects the customers a flow's lifecycle trigger fires
// for at the given run time. Customers without an email address are never
// candidates. Flow types without a matcher return nil and the batch skips
// the flow.
func matchCandidates(flow *domain.AutomationFlow, customers []domain.Customer, now time.Time) []domain.Customer {
	var match func(c *domain.Customer) bool

	switch flow.Type {
	case domain.FlowWelcome:
		window := time.Duration(flow.IntParam("window_hours", domain.DefaultWelcomeWindowHours)) * time.Hour
		cutoff := now.Add(-window)
		match = func(c *domain.Customer) bool {
			return c.TotalVisits == 1 && !c.CreatedAt.Before(cutoff) && !c.CreatedAt.After(now)
		}

	case domain.FlowBirthday:
		lead := flow.IntParam("lead_days", domain.DefaultBirthdayLeadDays)
		target := now.AddDate(0, 0, lead)
		match = func(c *domain.Customer) bool {
			if c.Birthday == nil {
				return false
			}
			return c.Birthday.Month() == target.Month() && c.Birthday.Day() == target.Day()
		}

	case domain.FlowWinback:
		threshold := flow.IntParam("days_threshold", domain.DefaultWinbackDaysThreshold)
		// A single-day trailing window: a customer whose last visit
		// crossed the threshold since the previous daily run fires
		// exactly once, instead of on every run thereafter.
		windowEnd := now.AddDate(0, 0, -threshold)
		windowStart := windowEnd.AddDate(0, 0, -1)
		match = func(c *domain.Customer) bool {
			if c.LastVisitAt == nil {
				return false
			}
			return !c.LastVisitAt.Before(windowStart) && !c.LastVisitAt.After(windowEnd)
		}

	default:
		return nil
	}

	var out []domain.Customer
	for i := range customers {
		c := &customers[i]
		if c.Email == "" {
			continue
		}
		if match(c) {
			out = append(out, *c)
		}
	}
	return out
}
