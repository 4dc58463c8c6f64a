package policy

import (
	"testing"

	"github.com/davidahmann/fleetpolicy/internal/extract"
	"github.com/davidahmann/fleetpolicy/internal/mapping"
	"github.com/davidahmann/fleetpolicy/internal/query"
	"github.com/davidahmann/fleetpolicy/internal/rules"
)

const loginWindowCheck = `/usr/bin/osascript -l JavaScript << EOS
$.NSUserDefaults.alloc.initWithSuiteName('com.apple.loginwindow')\
.objectForKey('DisableFDEAutoLogin').js
EOS`

func TestSynthesizeUsesSpecificExtraction(t *testing.T) {
	r := rules.Rule{
		ID:    "system_settings_filevault_autologin_disable",
		Title: "Disable Unrelated Thing",
		Check: loginWindowCheck,
	}

	s := Synthesize(mapping.DefaultTable(), r)
	want := "SELECT 1 WHERE EXISTS (SELECT 1 FROM managed_policies WHERE domain='com.apple.loginwindow' AND name='DisableFDEAutoLogin' AND (value = 1 OR value = 'true'));"
	if s.Query != want {
		t.Fatalf("expected %q, got %q", want, s.Query)
	}
	if s.Strategy != extract.StrategyPreferenceSuite {
		t.Fatalf("expected preference-suite strategy, got %q", s.Strategy)
	}
	if s.Class != query.Specific {
		t.Fatalf("expected specific, got %s", s.Class)
	}
}

func TestSynthesizeTitleOverridesGenericExtraction(t *testing.T) {
	r := rules.Rule{
		ID:    "audit_auditd_enabled",
		Title: "Enable Security Auditing",
		Check: "/bin/launchctl list | /usr/bin/grep -c com.apple.auditd",
	}
	// exact daemon name is already specific
	s := Synthesize(mapping.DefaultTable(), r)
	if s.Query != "SELECT 1 FROM launchd WHERE name = 'com.apple.auditd';" {
		t.Fatalf("unexpected query %q", s.Query)
	}

	r.ID = "os_something"
	s = Synthesize(mapping.DefaultTable(), r)
	if s.TitleRuleID != "auditd-enabled" {
		t.Fatalf("expected title override, got %+v", s)
	}
	if s.Query != "SELECT 1 FROM launchd WHERE name = 'com.apple.auditd' AND state = 'running';" {
		t.Fatalf("unexpected query %q", s.Query)
	}
}

func TestSynthesizeStructuralResultBeatsCatchAll(t *testing.T) {
	r := rules.Rule{
		ID:    "os_sip_enable",
		Title: "Ensure System Integrity Protection Is Enabled",
		Check: "/usr/sbin/system_profiler SPSoftwareDataType",
	}
	s := Synthesize(mapping.DefaultTable(), r)
	if s.Query != "SELECT 1 FROM system_info;" {
		t.Fatalf("expected extractor result, got %q", s.Query)
	}
	if s.Strategy != extract.StrategySystemProfile {
		t.Fatalf("expected system-profile strategy, got %q", s.Strategy)
	}
}

func TestSynthesizeFallsBackToPlaceholder(t *testing.T) {
	r := rules.Rule{ID: "os_sip_enable", Title: "Enable System Integrity Protection", Check: "/usr/bin/csrutil status"}
	s := Synthesize(mapping.DefaultTable(), r)
	if s.Query != query.Placeholder {
		t.Fatalf("expected placeholder, got %q", s.Query)
	}

	s = Synthesize(nil, rules.Rule{ID: "x", Title: "Enable Security Auditing"})
	if s.Query != query.Placeholder {
		t.Fatalf("expected placeholder without a table, got %q", s.Query)
	}
}

func TestAssemble(t *testing.T) {
	r := rules.Rule{
		ID:         "audit_files_owner_configure",
		Title:      "Audit Log Files Must Be Owned By Root",
		Discussion: "Audit log files *must* be owned by root.",
		Fix:        "[source,bash]\n----\n/usr/sbin/chown root /var/audit/*\n----",
		References: rules.References{CIS: &rules.CISReference{Benchmark: []string{"3.5"}, Level: []string{"1"}}},
	}

	e, _ := NewAssembler(mapping.DefaultTable()).Assemble(r, "cis-lvl1")
	spec := e.Policy.Spec
	if e.Policy.APIVersion != "v1" || e.Policy.Kind != "policy" {
		t.Fatalf("unexpected header fields: %+v", e.Policy)
	}
	if spec.Name != "macOS Security - Audit Log Files Must Be Owned By Root" {
		t.Fatalf("unexpected name %q", spec.Name)
	}
	if spec.Description != "Audit log files must be owned by root." {
		t.Fatalf("unexpected description %q", spec.Description)
	}
	if spec.Resolution != "/usr/sbin/chown root /var/audit/*" {
		t.Fatalf("unexpected resolution %q", spec.Resolution)
	}
	if spec.Query != "SELECT 1 FROM file WHERE path LIKE '/var/audit/%' AND uid = 0;" {
		t.Fatalf("unexpected query %q", spec.Query)
	}
	if spec.Purpose != "Informational" || spec.Contributors != Contributors {
		t.Fatalf("unexpected constants: %+v", spec)
	}

	want := []string{"compliance", "macOS_Security_Compliance", "CIS_3.5", "CIS_Level1", "cis_lvl1"}
	if len(spec.Tags) != len(want) {
		t.Fatalf("expected tags %v, got %v", want, spec.Tags)
	}
	for i := range want {
		if spec.Tags[i] != want[i] {
			t.Fatalf("expected tags %v, got %v", want, spec.Tags)
		}
	}
}

func TestAssembleUsesIDWhenTitleMissing(t *testing.T) {
	e, _ := NewAssembler(nil).Assemble(rules.Rule{ID: "os_x"}, "b")
	if e.Policy.Spec.Name != "macOS Security - os_x" {
		t.Fatalf("unexpected name %q", e.Policy.Spec.Name)
	}
	if len(e.Policy.Spec.Tags) != 3 {
		t.Fatalf("expected 3 tags, got %v", e.Policy.Spec.Tags)
	}
}
