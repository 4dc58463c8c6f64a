package query

import (
	"fmt"
	"strings"
)

// Select builds "SELECT 1 FROM table [WHERE p1 AND p2 ...];".
func Select(table string, predicates ...string) string {
	if len(predicates) == 0 {
		return fmt.Sprintf("SELECT 1 FROM %s;", table)
	}
	return fmt.Sprintf("SELECT 1 FROM %s WHERE %s;", table, strings.Join(predicates, " AND "))
}

// ManagedSetting checks that a managed preference key is set to a truthy value.
func ManagedSetting(domain, name string) string {
	return fmt.Sprintf("SELECT 1 WHERE EXISTS (SELECT 1 FROM managed_policies WHERE domain='%s' AND name='%s' AND (value = 1 OR value = 'true'));",
		quote(domain), quote(name))
}

// ManagedDomain filters managed_policies by domain only.
func ManagedDomain(domain string) string {
	return Select(TableManagedPolicies, fmt.Sprintf("domain = '%s'", quote(domain)))
}

// PathPrefixes ORs together "path LIKE '<prefix>%'" for each prefix.
func PathPrefixes(prefixes ...string) string {
	parts := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		parts = append(parts, fmt.Sprintf("path LIKE '%s%%'", quote(p)))
	}
	return strings.Join(parts, " OR ")
}

// Narrow appends predicates to a file_prefix or service_pattern query.
// The existing predicate is parenthesized when it contains OR.
func Narrow(c Classification, predicates ...string) (string, bool) {
	if c.Predicate == "" || c.Table == "" {
		return "", false
	}
	base := c.Predicate
	if strings.Contains(strings.ToUpper(base), " OR ") {
		base = "(" + base + ")"
	}
	return Select(c.Table, append([]string{base}, predicates...)...), true
}

func quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
