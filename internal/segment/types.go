// Package segment provides the filter rule model and the pure evaluator used
// for segment preview counts, segment materialization, and audience checks.
package segment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operator represents a comparison operator.
type Operator string

const (
	// Numeric operators
	OpGte Operator = "gte"
	OpLte Operator = "lte"
	OpEq  Operator = "eq"

	// Set/substring membership
	OpContains Operator = "contains"
)

// Field enumerates the customer attributes a condition may test.
type Field string

const (
	FieldTotalVisits        Field = "total_visits"
	FieldDaysSinceLastVisit Field = "days_since_last_visit"
	FieldAverageSpend       Field = "average_spend"
	FieldNoShowCount        Field = "no_show_count"
	FieldBirthdayMonth      Field = "birthday_month"
	FieldTags               Field = "tags"
	FieldDietaryPreferences Field = "dietary_preferences"
)

// FieldKind is the data type of a field, which constrains its operators.
type FieldKind string

const (
	KindNumeric FieldKind = "numeric"
	KindMonth   FieldKind = "month"
	KindSet     FieldKind = "set"
)

// fieldKinds maps every known field to its kind. Unknown fields evaluate to
// no-match rather than erroring, so this table only gates validation.
var fieldKinds = map[Field]FieldKind{
	FieldTotalVisits:        KindNumeric,
	FieldDaysSinceLastVisit: KindNumeric,
	FieldAverageSpend:       KindNumeric,
	FieldNoShowCount:        KindNumeric,
	FieldBirthdayMonth:      KindMonth,
	FieldTags:               KindSet,
	FieldDietaryPreferences: KindSet,
}

// operatorsByKind lists the operator set valid for each field kind.
var operatorsByKind = map[FieldKind][]Operator{
	KindNumeric: {OpGte, OpLte, OpEq},
	KindMonth:   {OpEq},
	KindSet:     {OpContains},
}

// Logic combines per-condition results.
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition is a single field/operator/value test.
type Condition struct {
	Field    Field    `json:"field"`
	Operator Operator `json:"operator"`
	// Value is a number for numeric/month fields and a string for set fields.
	Value any `json:"value"`
}

// Rules is an ordered condition list combined with AND/OR logic.
//
// An empty condition list matches every customer (the preview shows the whole
// guest book, the way an unfiltered list does); consent and suppression are
// enforced downstream by the eligibility pipeline, never by the rule model.
type Rules struct {
	Conditions []Condition `json:"conditions"`
	Logic      Logic       `json:"logic"`
}

// Validate checks every condition against the operator set valid for its
// field's kind. It returns one message per problem; an empty slice means the
// rules are well-formed.
func (r Rules) Validate() []string {
	var problems []string

	if r.Logic != LogicAnd && r.Logic != LogicOr {
		problems = append(problems, fmt.Sprintf("unknown logic operator: %q", r.Logic))
	}

	for i, cond := range r.Conditions {
		kind, ok := fieldKinds[cond.Field]
		if !ok {
			problems = append(problems, fmt.Sprintf("condition %d: unknown field %q", i, cond.Field))
			continue
		}
		if !operatorValid(kind, cond.Operator) {
			problems = append(problems, fmt.Sprintf(
				"condition %d: operator %q not valid for %s field %q", i, cond.Operator, kind, cond.Field))
		}
		switch kind {
		case KindNumeric, KindMonth:
			if _, ok := numericValue(cond.Value); !ok {
				problems = append(problems, fmt.Sprintf("condition %d: field %q requires a numeric value", i, cond.Field))
			}
		case KindSet:
			if _, ok := cond.Value.(string); !ok {
				problems = append(problems, fmt.Sprintf("condition %d: field %q requires a string value", i, cond.Field))
			}
		}
	}
	return problems
}

func operatorValid(kind FieldKind, op Operator) bool {
	for _, candidate := range operatorsByKind[kind] {
		if candidate == op {
			return true
		}
	}
	return false
}

// Fields returns every known field in a stable order. Used by the
// rule-builder API to populate pickers.
func Fields() []Field {
	return []Field{
		FieldTotalVisits,
		FieldDaysSinceLastVisit,
		FieldAverageSpend,
		FieldNoShowCount,
		FieldBirthdayMonth,
		FieldTags,
		FieldDietaryPreferences,
	}
}

// OperatorsFor returns the operators valid for a field, or nil for an
// unknown field. Used by the rule-builder API to populate pickers.
func OperatorsFor(f Field) []Operator {
	kind, ok := fieldKinds[f]
	if !ok {
		return nil
	}
	out := make([]Operator, len(operatorsByKind[kind]))
	copy(out, operatorsByKind[kind])
	return out
}

// Segment is a named, saved rule set with a cached guest count. The cached
// count is advisory only: it is recomputed lazily and never trusted for
// correctness-critical decisions.
type Segment struct {
	ID          uuid.UUID `json:"id" db:"id"`
	LocationID  uuid.UUID `json:"location_id" db:"location_id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Rules       Rules     `json:"filter_rules"`
	IsDynamic   bool      `json:"is_dynamic" db:"is_dynamic"`
	IsSystem    bool      `json:"is_system" db:"is_system"`

	CachedGuestCount int        `json:"cached_guest_count" db:"cached_guest_count"`
	CachedCountAt    *time.Time `json:"cached_count_at" db:"cached_count_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// RulesJSON serializes the rule set for storage.
func (s *Segment) RulesJSON() ([]byte, error) {
	return json.Marshal(s.Rules)
}
