// Package mapping maps a policy title to a canonical query through an
// ordered rule table.
package mapping

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// CatchAll is the pattern every table must end with.
const CatchAll = ".*"

type Rule struct {
	ID      string
	Pattern *regexp.Regexp
	Query   string
}

type Match struct {
	RuleID   string
	Index    int
	Query    string
	CatchAll bool
}

// Table is evaluated by index: the first matching rule wins and the last rule
// always matches.
type Table struct {
	rules []Rule
}

// NewTable validates rules and copies them into a table.
func NewTable(rules []Rule) (*Table, error) {
	if len(rules) == 0 {
		return nil, ErrNoCatchAll
	}
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, fmt.Errorf("%w: rule %d (%s) has no pattern", ErrInvalidPattern, i, r.ID)
		}
		if strings.TrimSpace(r.Query) == "" {
			return nil, fmt.Errorf("%w: rule %d (%s) has no query", ErrInvalidPattern, i, r.ID)
		}
	}
	if !isCatchAll(rules[len(rules)-1].Pattern) {
		return nil, ErrNoCatchAll
	}

	out := make([]Rule, len(rules))
	copy(out, rules)
	return &Table{rules: out}, nil
}

// Compile builds a case-insensitive rule.
func Compile(id, pattern, query string) (Rule, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidPattern, id, err)
	}
	return Rule{ID: id, Pattern: re, Query: query}, nil
}

func mustCompile(id, pattern, query string) Rule {
	r, err := Compile(id, pattern, query)
	if err != nil {
		panic(err)
	}
	return r
}

// Match returns the first rule matching text. The catch-all guarantees a result.
func (t *Table) Match(text string) Match {
	normalized := Normalize(text)
	last := len(t.rules) - 1
	for i := 0; i < len(t.rules); i++ {
		if t.rules[i].Pattern.MatchString(normalized) {
			return Match{RuleID: t.rules[i].ID, Index: i, Query: t.rules[i].Query, CatchAll: i == last}
		}
	}
	// unreachable with a validated table
	return Match{RuleID: t.rules[last].ID, Index: last, Query: t.rules[last].Query, CatchAll: true}
}

// Rules returns a copy of the rules in evaluation order.
func (t *Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func (t *Table) Len() int {
	return len(t.rules)
}

// Normalize composes text to NFC and case-folds it.
func Normalize(text string) string {
	return cases.Fold().String(norm.NFC.String(text))
}

func isCatchAll(re *regexp.Regexp) bool {
	return strings.TrimPrefix(re.String(), "(?i)") == CatchAll
}
