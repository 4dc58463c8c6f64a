package mapping

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/fleetpolicy/internal/query"
)

func TestDefaultTableEndsWithCatchAll(t *testing.T) {
	table := DefaultTable()
	rules := table.Rules()
	require.NotEmpty(t, rules)

	last := rules[len(rules)-1]
	assert.True(t, isCatchAll(last.Pattern))
	for _, r := range rules[:len(rules)-1] {
		assert.False(t, isCatchAll(r.Pattern), "rule %s is a catch-all before the end", r.ID)
	}
}

func TestMatchIsTotal(t *testing.T) {
	table := DefaultTable()
	for _, title := range []string{
		"",
		"   ",
		"macOS Security - Disable Siri",
		"Ensure Ærødynamic Ünïcode Títles Work",
		"\x00\xff",
		"Enable Security Auditing",
	} {
		m := table.Match(title)
		assert.NotEmpty(t, m.Query, "title %q", title)
		assert.GreaterOrEqual(t, m.Index, 0)
		assert.Less(t, m.Index, table.Len())
	}
}

func TestMatchScenarios(t *testing.T) {
	table := DefaultTable()

	m := table.Match("macOS Security - Audit Log Files Must Be Owned By Root")
	assert.Equal(t, "audit-files-owner", m.RuleID)
	assert.Equal(t, "SELECT 1 FROM file WHERE path LIKE '/var/audit/%' AND uid = 0;", m.Query)
	assert.False(t, m.CatchAll)

	m = table.Match("Enable Security Auditing")
	assert.Equal(t, "SELECT 1 FROM launchd WHERE name = 'com.apple.auditd' AND state = 'running';", m.Query)

	m = table.Match("Disable Siri")
	assert.True(t, m.CatchAll)
	assert.Equal(t, "SELECT 1 FROM managed_policies WHERE domain = 'com.apple.applicationaccess';", m.Query)
	assert.Equal(t, query.Generic, query.Classify(m.Query).Class)
}

func TestMatchEarlierRuleWins(t *testing.T) {
	table := DefaultTable()

	// matches both auditd-enabled and firewall-enabled
	m := table.Match("Enable Security Auditing and Firewall Enabled")
	assert.Equal(t, "auditd-enabled", m.RuleID)

	// matches both audit-files-acl and audit-folder-acl
	m = table.Match("Audit Log Files and Folder Do Not Contain Access Control Lists")
	assert.Equal(t, "audit-files-acl", m.RuleID)
}

func TestMatchIsCaseAndNormalizationInsensitive(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, "bluetooth", table.Match("BLUETOOTH MUST BE DISABLED").RuleID)
	assert.Equal(t, "bluetooth", table.Match("bluetooth is disabled").RuleID)
	assert.Equal(t, "guest-account", table.Match("Re\u0301sume\u0301: Guest Account Disabled").RuleID)
	assert.Equal(t, Normalize("r\u00e9sum\u00e9"), Normalize("Re\u0301sume\u0301"))
}

func TestNewTableRejectsMissingCatchAll(t *testing.T) {
	r, err := Compile("only", "foo", "SELECT 1 FROM system_info;")
	require.NoError(t, err)

	_, err = NewTable([]Rule{r})
	assert.ErrorIs(t, err, ErrNoCatchAll)

	_, err = NewTable(nil)
	assert.ErrorIs(t, err, ErrNoCatchAll)
}

func TestNewTableRejectsInvalidRules(t *testing.T) {
	_, err := Compile("bad", "(", "SELECT 1;")
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = NewTable([]Rule{{ID: "nil"}})
	assert.ErrorIs(t, err, ErrInvalidPattern)

	_, err = NewTable([]Rule{{ID: "empty", Pattern: regexp.MustCompile(CatchAll)}})
	assert.ErrorIs(t, err, ErrInvalidPattern)
}

func TestNewTableCopiesRules(t *testing.T) {
	catchAll, err := Compile("all", CatchAll, "SELECT 1 FROM system_info;")
	require.NoError(t, err)
	rules := []Rule{catchAll}

	table, err := NewTable(rules)
	require.NoError(t, err)
	rules[0].Query = "mutated"

	assert.Equal(t, "SELECT 1 FROM system_info;", table.Match("x").Query)
}

func TestDefaultQueriesAreValidStatements(t *testing.T) {
	v, err := query.NewValidator()
	require.NoError(t, err)
	defer v.Close()

	for _, r := range DefaultTable().Rules() {
		assert.NoError(t, v.Validate(context.Background(), r.Query), r.ID)
	}
}

func TestDefaultNonCatchAllQueriesAreSpecific(t *testing.T) {
	rules := DefaultTable().Rules()
	for _, r := range rules[:len(rules)-1] {
		assert.True(t, query.IsSpecific(r.Query), r.ID)
	}
}
