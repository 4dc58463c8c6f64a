package policy

import (
	"github.com/davidahmann/fleetpolicy/internal/extract"
	"github.com/davidahmann/fleetpolicy/internal/mapping"
	"github.com/davidahmann/fleetpolicy/internal/query"
	"github.com/davidahmann/fleetpolicy/internal/rules"
)

type Synthesis struct {
	Query string
	// Strategy is the extractor strategy that produced Query, or "" when the
	// title table did.
	Strategy string
	// TitleRuleID is set when a title rule produced Query.
	TitleRuleID string
	Class       query.Class
}

// Synthesize picks the query for a rule. A specific extraction wins outright;
// otherwise a non catch-all title rule overrides it; otherwise the extraction
// stands, which is the placeholder when no idiom was recognized.
func Synthesize(table *mapping.Table, r rules.Rule) Synthesis {
	ex := extract.Extract(r.Check, r.ID)
	if ex.Recognized() && query.IsSpecific(ex.Query) {
		return Synthesis{Query: ex.Query, Strategy: ex.Strategy, Class: query.Specific}
	}

	if table != nil {
		title := r.Title
		if title == "" {
			title = r.ID
		}
		if m := table.Match(title); !m.CatchAll {
			return Synthesis{Query: m.Query, TitleRuleID: m.RuleID, Class: query.Classify(m.Query).Class}
		}
	}

	return Synthesis{Query: ex.Query, Strategy: ex.Strategy, Class: query.Classify(ex.Query).Class}
}
