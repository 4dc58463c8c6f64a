// Package extract infers a query from a rule's manual check procedure.
//
// Only a handful of shell idioms are recognized. Each idiom is a Strategy;
// strategies run in a fixed order and the first one that applies wins.
package extract

import (
	"regexp"
	"strings"

	"github.com/davidahmann/fleetpolicy/internal/query"
)

const (
	StrategyPreferenceSuite = "preference-suite"
	StrategyFilesystemPath  = "filesystem-path"
	StrategyServiceManager  = "service-manager"
	StrategySystemProfile   = "system-profile"
	StrategySoftwareUpdate  = "software-update"
	StrategyPreferenceRead  = "preference-read"
	StrategyRuleDomain      = "rule-domain"
	StrategyNone            = "none"
)

const (
	auditDaemon      = "com.apple.auditd"
	auditLogDir      = "/var/audit/"
	auditSecurityDir = "/etc/security/"
)

// Strategy recognizes one idiom. Apply returns false when the idiom is absent.
type Strategy struct {
	Name  string
	Apply func(check, ruleID string) (string, bool)
}

type Result struct {
	Query    string
	Strategy string
}

// Recognized reports whether any strategy applied.
func (r Result) Recognized() bool {
	return r.Strategy != StrategyNone
}

var strategies = []Strategy{
	{Name: StrategyPreferenceSuite, Apply: preferenceSuite},
	{Name: StrategyFilesystemPath, Apply: filesystemPath},
	{Name: StrategyServiceManager, Apply: serviceManager},
	{Name: StrategySystemProfile, Apply: keyword("system_profiler", query.Select(query.TableSystemInfo))},
	{Name: StrategySoftwareUpdate, Apply: keyword("softwareupdate", query.Select(query.TableSoftwareUpdate, "software_update_required = '0'"))},
	{Name: StrategyPreferenceRead, Apply: keyword("defaults", query.Select(query.TableManagedPolicies))},
	{Name: StrategyRuleDomain, Apply: ruleDomain},
}

// Strategies returns the strategies in evaluation order.
func Strategies() []Strategy {
	out := make([]Strategy, len(strategies))
	copy(out, strategies)
	return out
}

// Extract never fails: when no idiom applies it returns the placeholder.
func Extract(check, ruleID string) Result {
	for i := 0; i < len(strategies); i++ {
		if q, ok := strategies[i].Apply(check, ruleID); ok {
			return Result{Query: q, Strategy: strategies[i].Name}
		}
	}
	return Result{Query: query.Placeholder, Strategy: StrategyNone}
}

var (
	suiteRe = regexp.MustCompile(`initWithSuiteName\('([^']+)'\)`)
	keyRe   = regexp.MustCompile(`objectForKey\('([^']+)'\)`)
)

func preferenceSuite(check, _ string) (string, bool) {
	if !strings.Contains(check, "osascript") || !strings.Contains(check, "objectForKey") {
		return "", false
	}
	suite := suiteRe.FindStringSubmatch(check)
	key := keyRe.FindStringSubmatch(check)
	if suite == nil || key == nil {
		return "", false
	}
	return query.ManagedSetting(suite[1], key[1]), true
}

func filesystemPath(check, ruleID string) (string, bool) {
	var referenced []string
	for _, dir := range []string{"/etc/", "/var/"} {
		if strings.Contains(check, dir) {
			referenced = append(referenced, dir)
		}
	}
	if len(referenced) == 0 {
		return "", false
	}

	if strings.Contains(strings.ToLower(ruleID), "audit") {
		return query.Select(query.TableFile, query.PathPrefixes(auditLogDir, auditSecurityDir)), true
	}
	if strings.Contains(check, "chmod") || strings.Contains(check, "chown") {
		return query.Select(query.TableFile, query.PathPrefixes(referenced...)), true
	}
	return query.Select(query.TableFile, query.PathPrefixes("/etc/", "/var/")), true
}

func serviceManager(check, ruleID string) (string, bool) {
	if !strings.Contains(check, "launchctl") {
		return "", false
	}
	if strings.Contains(strings.ToLower(ruleID), "audit") {
		return query.Select(query.TableLaunchd, "name = '"+auditDaemon+"'"), true
	}
	return query.Select(query.TableLaunchd, "name LIKE '%audit%'"), true
}

// ruleDomains maps a rule identifier fragment to its managed preference domain.
var ruleDomains = []struct {
	fragment string
	domain   string
}{
	{"firewall", "com.apple.security.firewall"},
	{"gatekeeper", "com.apple.systempolicy.control"},
	{"filevault", "com.apple.MCX"},
}

func ruleDomain(_, ruleID string) (string, bool) {
	id := strings.ToLower(ruleID)
	for _, rd := range ruleDomains {
		if strings.Contains(id, rd.fragment) {
			return query.ManagedDomain(rd.domain), true
		}
	}
	return "", false
}

func keyword(word, q string) func(string, string) (string, bool) {
	return func(check, _ string) (string, bool) {
		if strings.Contains(check, word) {
			return q, true
		}
		return "", false
	}
}
