// Package repair converges generated policy documents toward specific
// queries. Every pass edits one entry at a time and leaves specific queries
// alone, so running a pass on its own output changes nothing.
package repair

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/davidahmann/fleetpolicy/internal/mapping"
	"github.com/davidahmann/fleetpolicy/internal/policy"
	"github.com/davidahmann/fleetpolicy/internal/query"
)

type Mode string

const (
	ModeDetect Mode = "detect"
	ModeRepair Mode = "repair"
	ModeRemap  Mode = "remap"
	ModeRun    Mode = "run"
)

// Report counts what a pass did to a document.
type Report struct {
	// Annotated entries gained a marker.
	Annotated int
	// Resolved entries got a specific query and lost their marker.
	Resolved int
	// Unresolved entries kept their marker after a repair attempt.
	Unresolved int
	// Remapped entries had their query replaced by the title table.
	Remapped int
	// Pending is the number of marked entries after the pass.
	Pending int
}

// Changes is the number of entry edits the pass made.
func (r Report) Changes() int {
	return r.Annotated + r.Resolved + r.Remapped
}

func (r *Report) Add(o Report) {
	r.Annotated += o.Annotated
	r.Resolved += o.Resolved
	r.Unresolved += o.Unresolved
	r.Remapped += o.Remapped
	r.Pending += o.Pending
}

type Pipeline struct {
	table         *mapping.Table
	titleFallback bool
	rewrites      []Rewrite
	log           *zap.Logger
}

type Option func(*Pipeline)

// WithTitleFallback controls whether Repair consults the title table after
// the shape rewrites fail. It is on by default.
func WithTitleFallback(enabled bool) Option {
	return func(p *Pipeline) { p.titleFallback = enabled }
}

func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

func New(table *mapping.Table, opts ...Option) *Pipeline {
	p := &Pipeline{table: table, titleFallback: true, log: zap.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	p.rewrites = defaultRewrites(table, p.titleFallback)
	return p
}

// Rewrites returns the repair strategies in the order they are tried.
func (p *Pipeline) Rewrites() []Rewrite {
	return append([]Rewrite(nil), p.rewrites...)
}

// Pass returns the document transform for mode.
func (p *Pipeline) Pass(mode Mode) (func(*policy.Document) Report, error) {
	switch mode {
	case ModeDetect:
		return p.Detect, nil
	case ModeRepair:
		return p.Repair, nil
	case ModeRemap:
		return p.Remap, nil
	case ModeRun:
		return p.Run, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

// Detect marks every unmarked entry whose query is generic.
func (p *Pipeline) Detect(doc *policy.Document) Report {
	var rep Report
	for i, e := range doc.Entries {
		c := query.Classify(e.Query())
		if c.Class == query.Generic && !e.Marked() {
			e.Mark(policy.MarkerFor(c.Shape))
			rep.Annotated++
			p.log.Debug("marked generic query",
				zap.Int("entry", i),
				zap.String("name", e.Policy.Spec.Name),
				zap.String("shape", string(c.Shape)))
		}
	}
	rep.Pending = pending(doc)
	return rep
}

// Repair tries each rewrite on every marked entry. The first rewrite that
// yields a specific query wins and clears the marker.
func (p *Pipeline) Repair(doc *policy.Document) Report {
	var rep Report
	for i, e := range doc.Entries {
		if !e.Marked() {
			continue
		}
		c := query.Classify(e.Query())
		if c.Class == query.Specific {
			e.ClearMarker()
			rep.Resolved++
			continue
		}

		name, q, ok := p.rewrite(e, c)
		if !ok {
			rep.Unresolved++
			p.log.Debug("entry left for manual review",
				zap.Int("entry", i),
				zap.String("name", e.Policy.Spec.Name),
				zap.String("shape", string(c.Shape)))
			continue
		}
		e.SetQuery(q)
		e.ClearMarker()
		rep.Resolved++
		p.log.Debug("repaired entry",
			zap.Int("entry", i),
			zap.String("name", e.Policy.Spec.Name),
			zap.String("rewrite", name))
	}
	rep.Pending = pending(doc)
	return rep
}

func (p *Pipeline) rewrite(e *policy.Entry, c query.Classification) (string, string, bool) {
	for _, rw := range p.rewrites {
		q, ok := rw.Apply(e, c)
		if ok && query.IsSpecific(q) {
			return rw.Name, q, true
		}
	}
	return "", "", false
}

// Remap replaces every generic query with the title table's query, including
// the catch-all. The marker is cleared only when the new query is specific;
// otherwise it is reset to match the new query's shape.
func (p *Pipeline) Remap(doc *policy.Document) Report {
	var rep Report
	if p.table == nil {
		rep.Pending = pending(doc)
		return rep
	}
	for i, e := range doc.Entries {
		if query.IsSpecific(e.Query()) {
			continue
		}
		m := p.table.Match(e.Title())
		changed := m.Query != e.Query()
		if changed {
			e.SetQuery(m.Query)
			rep.Remapped++
			p.log.Debug("remapped entry",
				zap.Int("entry", i),
				zap.String("name", e.Policy.Spec.Name),
				zap.String("rule", m.RuleID))
		}
		if !e.Marked() {
			continue
		}
		if c := query.Classify(e.Query()); c.Class == query.Specific {
			e.ClearMarker()
		} else if want := policy.MarkerFor(c.Shape); e.Marker() != want {
			// the marker follows the shape of the query it now sits on
			e.Mark(want)
			if !changed {
				rep.Annotated++
			}
		}
	}
	rep.Pending = pending(doc)
	return rep
}

// Run is Detect followed by Repair.
func (p *Pipeline) Run(doc *policy.Document) Report {
	rep := p.Detect(doc)
	rep.Add(p.Repair(doc))
	rep.Pending = pending(doc)
	return rep
}

func pending(doc *policy.Document) int {
	n := 0
	for _, e := range doc.Entries {
		if e.Marked() {
			n++
		}
	}
	return n
}
