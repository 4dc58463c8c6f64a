package policy

import (
	"strings"

	"github.com/davidahmann/fleetpolicy/internal/mapping"
	"github.com/davidahmann/fleetpolicy/internal/rules"
)

// Assembler turns rule definitions into policy entries.
type Assembler struct {
	table *mapping.Table
}

// NewAssembler uses table for title overrides; nil disables them.
func NewAssembler(table *mapping.Table) *Assembler {
	return &Assembler{table: table}
}

// Assemble builds the entry for r within the named baseline.
func (a *Assembler) Assemble(r rules.Rule, baseline string) (*Entry, Synthesis) {
	s := Synthesize(a.table, r)

	name := r.Title
	if name == "" {
		name = r.ID
	}

	return NewEntry(Policy{
		APIVersion: APIVersion,
		Kind:       Kind,
		Spec: Spec{
			Name:         NamePrefix + name,
			Platforms:    Platforms,
			Platform:     Platform,
			Description:  rules.CleanText(r.Discussion),
			Resolution:   rules.CleanText(r.Fix),
			Query:        strings.TrimSpace(s.Query),
			Purpose:      Purpose,
			Tags:         Tags(r, baseline),
			Contributors: Contributors,
		},
	}), s
}

// Tags returns the fixed tags, CIS tags when referenced, and the baseline tag.
func Tags(r rules.Rule, baseline string) []string {
	tags := append([]string(nil), baseTags...)
	benchmark, level := r.Benchmark()
	if benchmark != "" {
		tags = append(tags, "CIS_"+benchmark)
	}
	if level != "" {
		tags = append(tags, "CIS_Level"+level)
	}
	return append(tags, strings.ReplaceAll(baseline, "-", "_"))
}
