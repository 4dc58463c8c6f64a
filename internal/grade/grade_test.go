package grade

import (
	"reflect"
	"testing"
)

func TestEvaluateEmptyIsF(t *testing.T) {
	got := Evaluate(Input{})
	if got.Grade != "F" {
		t.Fatalf("expected F, got %s", got.Grade)
	}
}

func TestEvaluateHeuristics(t *testing.T) {
	cases := []struct {
		name    string
		in      Input
		grade   string
		reasons []string
	}{
		{"all specific", Input{Entries: 10, Specific: 10}, "A", []string{}},
		{"invalid", Input{Entries: 10, Specific: 10, Invalid: 1}, "F", []string{"invalid_queries"}},
		{"unmarked generic", Input{Entries: 10, Specific: 9}, "D", []string{"generic_queries", "unmarked_generic"}},
		{"mostly generic", Input{Entries: 10, Specific: 5, Marked: 5}, "C", []string{"generic_queries", "pending_review"}},
		{"few pending", Input{Entries: 10, Specific: 9, Marked: 1}, "B", []string{"generic_queries", "pending_review"}},
		{"shared", Input{Entries: 10, Specific: 10, Shared: 2}, "B", []string{"shared_queries"}},
	}
	for _, tc := range cases {
		got := Evaluate(tc.in)
		if got.Grade != tc.grade {
			t.Fatalf("%s: expected %s, got %s reasons=%v", tc.name, tc.grade, got.Grade, got.Reasons)
		}
		if !reflect.DeepEqual(got.Reasons, tc.reasons) {
			t.Fatalf("%s: expected reasons %v, got %v", tc.name, tc.reasons, got.Reasons)
		}
	}
}
