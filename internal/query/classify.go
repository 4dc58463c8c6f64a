package query

import (
	"regexp"
	"strings"
)

// Placeholder is the always-true query emitted when nothing better is known.
const Placeholder = "SELECT 1;"

type Class int

const (
	Generic Class = iota
	Specific
)

func (c Class) String() string {
	if c == Specific {
		return "specific"
	}
	return "generic"
}

// Shape names the broad form of a Generic query. Specific queries have ShapeNone.
type Shape string

const (
	ShapeNone           Shape = ""
	ShapePlaceholder    Shape = "placeholder"
	ShapeNoTable        Shape = "no_table"
	ShapeUnscoped       Shape = "unscoped"
	ShapeDomainOnly     Shape = "domain_only"
	ShapeFilePrefix     Shape = "file_prefix"
	ShapeServicePattern Shape = "service_pattern"
)

type Classification struct {
	Class Class
	Shape Shape
	// Table is the first table named in a FROM clause, if any.
	Table string
	// Predicate is the WHERE clause of a file_prefix or service_pattern query.
	Predicate string
}

var (
	fromRe           = regexp.MustCompile(`(?i)\bFROM\s+([a-z_][a-z0-9_]*)`)
	unscopedRe       = regexp.MustCompile(`(?i)^SELECT\s+1\s+FROM\s+[a-z_][a-z0-9_]*\s*;?$`)
	domainOnlyRe     = regexp.MustCompile(`(?i)^SELECT\s+1\s+FROM\s+managed_policies\s+WHERE\s+domain\s*=\s*'[^']*'\s*;?$`)
	filePrefixRe     = regexp.MustCompile(`(?i)^SELECT\s+1\s+FROM\s+file\s+WHERE\s+(path\s+LIKE\s+'[^'%]+%'(?:\s+OR\s+path\s+LIKE\s+'[^'%]+%')*)\s*;?$`)
	servicePatternRe = regexp.MustCompile(`(?i)^SELECT\s+1\s+FROM\s+launchd\s+WHERE\s+(name\s+LIKE\s+'%[^'%]+%')\s*;?$`)
)

// Classify decides whether q is Specific or Generic.
//
// A query is Generic when it has no FROM clause, is the placeholder, scans a
// table without a WHERE clause, filters managed_policies by domain only,
// filters file by path prefixes only, or filters launchd by a name pattern
// only. Every other query is Specific.
func Classify(q string) Classification {
	n := Normalize(q)
	if strings.EqualFold(strings.TrimSpace(strings.TrimSuffix(n, ";")), "SELECT 1") {
		return Classification{Class: Generic, Shape: ShapePlaceholder}
	}

	m := fromRe.FindStringSubmatch(n)
	if m == nil {
		return Classification{Class: Generic, Shape: ShapeNoTable}
	}
	c := Classification{Table: strings.ToLower(m[1])}

	switch {
	case unscopedRe.MatchString(n):
		c.Shape = ShapeUnscoped
	case domainOnlyRe.MatchString(n):
		c.Shape = ShapeDomainOnly
	default:
		if p := filePrefixRe.FindStringSubmatch(n); p != nil {
			c.Shape = ShapeFilePrefix
			c.Predicate = p[1]
		} else if p := servicePatternRe.FindStringSubmatch(n); p != nil {
			c.Shape = ShapeServicePattern
			c.Predicate = p[1]
		}
	}

	if c.Shape == ShapeNone {
		c.Class = Specific
	}
	return c
}

// IsSpecific reports whether q must be left untouched by every rewrite.
func IsSpecific(q string) bool {
	return Classify(q).Class == Specific
}

// Normalize trims q and collapses runs of whitespace.
func Normalize(q string) string {
	return strings.Join(strings.Fields(q), " ")
}
