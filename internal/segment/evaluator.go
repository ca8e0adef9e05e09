package segment

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/dinelight/guestflow/internal/domain"
)

// Evaluate reports whether the customer matches the rule set at the given
// instant. It is pure and total: unknown fields, unknown operators, and
// missing customer attributes all resolve to "condition fails", so one
// malformed record never aborts a segment-wide scan.
//
// An empty condition list matches every customer, regardless of logic.
func Evaluate(c *domain.Customer, rules Rules, now time.Time) bool {
	if len(rules.Conditions) == 0 {
		return true
	}

	for _, cond := range rules.Conditions {
		matched := evaluateCondition(c, cond, now)
		if rules.Logic == LogicOr && matched {
			return true
		}
		if rules.Logic != LogicOr && !matched {
			// AND (and any unrecognized logic) requires every condition.
			return false
		}
	}
	return rules.Logic != LogicOr
}

func evaluateCondition(c *domain.Customer, cond Condition, now time.Time) bool {
	switch cond.Field {
	case FieldTotalVisits:
		return compareNumeric(float64(c.TotalVisits), cond)
	case FieldNoShowCount:
		return compareNumeric(float64(c.NoShowCount), cond)
	case FieldAverageSpend:
		if c.AverageSpend == nil {
			return false
		}
		return compareNumeric(*c.AverageSpend, cond)
	case FieldDaysSinceLastVisit:
		days, ok := c.DaysSinceLastVisit(now)
		if !ok {
			return false
		}
		return compareNumeric(float64(days), cond)
	case FieldBirthdayMonth:
		if c.Birthday == nil || cond.Operator != OpEq {
			return false
		}
		want, ok := numericValue(cond.Value)
		if !ok {
			return false
		}
		return int(c.Birthday.Month()) == int(want)
	case FieldTags:
		return containsFold(c.Tags, cond)
	case FieldDietaryPreferences:
		return containsFold(c.DietaryPreferences, cond)
	default:
		return false
	}
}

func compareNumeric(have float64, cond Condition) bool {
	want, ok := numericValue(cond.Value)
	if !ok {
		return false
	}
	switch cond.Operator {
	case OpGte:
		return have >= want
	case OpLte:
		return have <= want
	case OpEq:
		return have == want
	default:
		return false
	}
}

func containsFold(set []string, cond Condition) bool {
	if cond.Operator != OpContains {
		return false
	}
	want, ok := cond.Value.(string)
	if !ok || want == "" {
		return false
	}
	for _, item := range set {
		if strings.EqualFold(item, want) {
			return true
		}
	}
	return false
}

// numericValue coerces a condition value to float64. JSON decoding yields
// float64 for numbers; integers and numeric strings appear after storage
// round-trips.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
