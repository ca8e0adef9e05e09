package segment

import (
	"testing"
	"time"

	"github.com/dinelight/guestflow/internal/domain"
)

var testNow = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)

func visitedDaysAgo(days int) *time.Time {
	t := testNow.AddDate(0, 0, -days)
	return &t
}

func TestEvaluate_AndRequiresAllConditions(t *testing.T) {
	rules := Rules{
		Logic: LogicAnd,
		Conditions: []Condition{
			{Field: FieldTotalVisits, Operator: OpGte, Value: float64(5)},
			{Field: FieldTags, Operator: OpContains, Value: "vip"},
		},
	}

	// Six visits but no "vip" tag: AND must not match.
	c := &domain.Customer{TotalVisits: 6, Tags: []string{"regular"}}
	if Evaluate(c, rules, testNow) {
		t.Error("AND matched a customer failing one condition")
	}

	c.Tags = []string{"VIP"}
	if !Evaluate(c, rules, testNow) {
		t.Error("AND did not match a customer satisfying all conditions (tag match is case-insensitive)")
	}
}

func TestEvaluate_OrRequiresAnyCondition(t *testing.T) {
	rules := Rules{
		Logic: LogicOr,
		Conditions: []Condition{
			{Field: FieldTotalVisits, Operator: OpGte, Value: float64(5)},
			{Field: FieldTags, Operator: OpContains, Value: "vip"},
		},
	}

	c := &domain.Customer{TotalVisits: 6, Tags: []string{"regular"}}
	if !Evaluate(c, rules, testNow) {
		t.Error("OR did not match a customer satisfying one condition")
	}

	c = &domain.Customer{TotalVisits: 1, Tags: []string{"regular"}}
	if Evaluate(c, rules, testNow) {
		t.Error("OR matched a customer satisfying no condition")
	}
}

func TestEvaluate_EmptyConditionsMatchEveryone(t *testing.T) {
	for _, logic := range []Logic{LogicAnd, LogicOr} {
		if !Evaluate(&domain.Customer{}, Rules{Logic: logic}, testNow) {
			t.Errorf("empty condition list with logic %s should match all customers", logic)
		}
	}
}

func TestEvaluate_DaysSinceLastVisit(t *testing.T) {
	rules := Rules{
		Logic:      LogicAnd,
		Conditions: []Condition{{Field: FieldDaysSinceLastVisit, Operator: OpGte, Value: float64(30)}},
	}

	tests := []struct {
		name  string
		visit *time.Time
		want  bool
	}{
		{"visited 31 days ago", visitedDaysAgo(31), true},
		{"visited 30 days ago", visitedDaysAgo(30), true},
		{"visited yesterday", visitedDaysAgo(1), false},
		{"never visited", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &domain.Customer{LastVisitAt: tt.visit}
			if got := Evaluate(c, rules, testNow); got != tt.want {
				t.Errorf("Evaluate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_BirthdayMonth(t *testing.T) {
	july := time.Date(1990, 7, 14, 0, 0, 0, 0, time.UTC)
	rules := Rules{
		Logic:      LogicAnd,
		Conditions: []Condition{{Field: FieldBirthdayMonth, Operator: OpEq, Value: float64(7)}},
	}

	if !Evaluate(&domain.Customer{Birthday: &july}, rules, testNow) {
		t.Error("expected July birthday to match birthday_month eq 7")
	}
	if Evaluate(&domain.Customer{}, rules, testNow) {
		t.Error("customer without a birthday must not match a birthday_month condition")
	}
}

func TestEvaluate_AverageSpend(t *testing.T) {
	spend := 42.50
	rules := Rules{
		Logic:      LogicAnd,
		Conditions: []Condition{{Field: FieldAverageSpend, Operator: OpLte, Value: float64(50)}},
	}

	if !Evaluate(&domain.Customer{AverageSpend: &spend}, rules, testNow) {
		t.Error("expected average spend 42.50 to satisfy lte 50")
	}
	if Evaluate(&domain.Customer{}, rules, testNow) {
		t.Error("customer with no recorded spend must not match a spend condition")
	}
}

// Malformed rules and records resolve to no-match, never a panic.
func TestEvaluate_TotalOnMalformedInput(t *testing.T) {
	c := &domain.Customer{TotalVisits: 3}
	malformed := []Rules{
		{Logic: LogicAnd, Conditions: []Condition{{Field: "shoe_size", Operator: OpGte, Value: float64(1)}}},
		{Logic: LogicAnd, Conditions: []Condition{{Field: FieldTotalVisits, Operator: "between", Value: float64(1)}}},
		{Logic: LogicAnd, Conditions: []Condition{{Field: FieldTotalVisits, Operator: OpGte, Value: "not-a-number"}}},
		{Logic: LogicAnd, Conditions: []Condition{{Field: FieldTags, Operator: OpContains, Value: 7}}},
	}
	for i, rules := range malformed {
		if Evaluate(c, rules, testNow) {
			t.Errorf("malformed rules %d should not match", i)
		}
	}
}

func TestEvaluate_NumericStringValues(t *testing.T) {
	rules := Rules{
		Logic:      LogicAnd,
		Conditions: []Condition{{Field: FieldTotalVisits, Operator: OpEq, Value: "5"}},
	}
	if !Evaluate(&domain.Customer{TotalVisits: 5}, rules, testNow) {
		t.Error("numeric string values should compare after coercion")
	}
}

func TestValidate_RejectsOperatorFieldMismatches(t *testing.T) {
	rules := Rules{
		Logic: LogicAnd,
		Conditions: []Condition{
			{Field: FieldTags, Operator: OpGte, Value: "vip"},             // numeric op on set field
			{Field: FieldBirthdayMonth, Operator: OpContains, Value: "7"}, // set op on month field
			{Field: "shoe_size", Operator: OpEq, Value: float64(9)},       // unknown field
		},
	}
	problems := rules.Validate()
	if len(problems) != 3 {
		t.Fatalf("expected 3 validation problems, got %d: %v", len(problems), problems)
	}
}

func TestValidate_AcceptsWellFormedRules(t *testing.T) {
	rules := Rules{
		Logic: LogicOr,
		Conditions: []Condition{
			{Field: FieldTotalVisits, Operator: OpGte, Value: float64(5)},
			{Field: FieldBirthdayMonth, Operator: OpEq, Value: float64(12)},
			{Field: FieldDietaryPreferences, Operator: OpContains, Value: "vegan"},
		},
	}
	if problems := rules.Validate(); len(problems) != 0 {
		t.Errorf("expected no validation problems, got %v", problems)
	}
}

func TestOperatorsFor(t *testing.T) {
	if ops := OperatorsFor(FieldBirthdayMonth); len(ops) != 1 || ops[0] != OpEq {
		t.Errorf("birthday_month should only allow eq, got %v", ops)
	}
	if ops := OperatorsFor("unknown"); ops != nil {
		t.Errorf("unknown field should have no operators, got %v", ops)
	}
}
