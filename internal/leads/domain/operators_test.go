package domain

import "testing"

func ptr(f float64) *float64 { return &f }

func TestConditionOperators(t *testing.T) {
	lead := Lead{
		Name:           "Jane Doe",
		Company:        "Acme Corp",
		Source:         SourceReferral,
		Territory:      "East Coast",
		Score:          72,
		Tags:           []string{"vip", "enterprise"},
		EstimatedValue: ptr(15000),
		CustomFields:   map[string]any{"employees": 250},
	}

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals string", Condition{"territory", OpEquals, "East Coast"}, true},
		{"equals is case sensitive", Condition{"territory", OpEquals, "east coast"}, false},
		{"equals numeric", Condition{"estimatedValue", OpEquals, 15000}, true},
		{"contains case insensitive", Condition{"company", OpContains, "acme"}, true},
		{"contains on tags", Condition{"tags", OpContains, "VIP"}, true},
		{"greater than", Condition{"estimatedValue", OpGreaterThan, 10000}, true},
		{"greater than string value", Condition{"estimatedValue", OpGreaterThan, "20000"}, false},
		{"less than score", Condition{"score", OpLessThan, 80}, true},
		{"in list", Condition{"source", OpIn, []any{"Website", "Referral"}}, true},
		{"in csv", Condition{"source", OpIn, "Website, Event"}, false},
		{"not in", Condition{"source", OpNotIn, []string{"Cold Call"}}, true},
		{"missing field not in", Condition{"industry", OpNotIn, []string{"Retail"}}, true},
		{"missing field equals", Condition{"industry", OpEquals, "Retail"}, false},
		{"custom field", Condition{"employees", OpGreaterThan, 100}, true},
		{"unknown operator", Condition{"name", Operator("regex"), ".*"}, false},
	}

	for _, tc := range cases {
		if got := tc.cond.Matches(lead); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestMatchesAllRequiresEveryCondition(t *testing.T) {
	lead := Lead{Territory: "East Coast", EstimatedValue: ptr(5000)}
	conds := []Condition{
		{"territory", OpEquals, "East Coast"},
		{"estimatedValue", OpGreaterThan, 10000},
	}
	if MatchesAll(conds, lead) {
		t.Fatalf("expected conditions not to match for estimatedValue 5000")
	}
	lead.EstimatedValue = ptr(15000)
	if !MatchesAll(conds, lead) {
		t.Fatalf("expected conditions to match for estimatedValue 15000")
	}
	if !MatchesAll(nil, lead) {
		t.Fatalf("expected empty condition list to match")
	}
}

func TestCloneDoesNotShareState(t *testing.T) {
	orig := Lead{Tags: []string{"a"}, CustomFields: map[string]any{"k": 1}, EstimatedValue: ptr(1)}
	c := orig.Clone()
	c.Tags[0] = "b"
	c.CustomFields["k"] = 2
	*c.EstimatedValue = 2

	if orig.Tags[0] != "a" || orig.CustomFields["k"] != 1 || *orig.EstimatedValue != 1 {
		t.Fatalf("clone mutated original: %+v", orig)
	}
}
