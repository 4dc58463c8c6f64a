package grade

import (
	"sort"
)

// Result grades how far a policy document is from being fully enforceable.
type Result struct {
	Grade   string
	Reasons []string
}

// Input is the per-document tally produced by lint.
type Input struct {
	Entries  int
	Specific int
	Marked   int
	Invalid  int
	// Shared counts specific entries whose query text is also used by another entry.
	Shared int
}

func (in Input) Generic() int {
	return in.Entries - in.Specific
}

func Evaluate(in Input) Result {
	if in.Entries == 0 {
		return Result{Grade: "F", Reasons: []string{"no_entries"}}
	}

	found := map[string]bool{}
	if in.Invalid > 0 {
		found["invalid_queries"] = true
	}
	if in.Generic() > in.Marked {
		found["unmarked_generic"] = true
	}
	if in.Generic() > 0 {
		found["generic_queries"] = true
	}
	if in.Marked > 0 {
		found["pending_review"] = true
	}
	if in.Shared > 0 {
		found["shared_queries"] = true
	}

	// Heuristic grading.
	grade := "A"
	switch {
	case found["invalid_queries"]:
		grade = "F"
	case found["unmarked_generic"]:
		grade = "D"
	case in.Generic()*4 > in.Entries:
		grade = "C"
	case found["generic_queries"] || found["pending_review"] || found["shared_queries"]:
		grade = "B"
	}

	reasons := []string{}
	for k, v := range found {
		if v {
			reasons = append(reasons, k)
		}
	}
	sort.Strings(reasons)

	return Result{Grade: grade, Reasons: reasons}
}
