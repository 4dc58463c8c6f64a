package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidahmann/fleetpolicy/internal/query"
)

const loginWindowCheck = `/usr/bin/osascript -l JavaScript << EOS
$.NSUserDefaults.alloc.initWithSuiteName('com.apple.loginwindow')\
.objectForKey('DisableFDEAutoLogin').js
EOS`

func TestExtractPreferenceSuite(t *testing.T) {
	res := Extract(loginWindowCheck, "system_settings_filevault_autologin_disable")
	assert.Equal(t, StrategyPreferenceSuite, res.Strategy)
	assert.Equal(t,
		"SELECT 1 WHERE EXISTS (SELECT 1 FROM managed_policies WHERE domain='com.apple.loginwindow' AND name='DisableFDEAutoLogin' AND (value = 1 OR value = 'true'));",
		res.Query)
	assert.True(t, query.IsSpecific(res.Query))
}

func TestExtractPreferenceSuiteNeedsBothTokens(t *testing.T) {
	check := `/usr/bin/osascript -l JavaScript -e "$.NSUserDefaults.standardUserDefaults.objectForKey('x')" /var/db/foo`
	res := Extract(check, "os_something")
	assert.Equal(t, StrategyFilesystemPath, res.Strategy)
}

func TestExtractFilesystemPath(t *testing.T) {
	tests := []struct {
		name  string
		check string
		id    string
		want  string
	}{
		{
			name:  "audit rule",
			check: "/bin/ls -le /var/audit | /usr/bin/awk '{print $1}'",
			id:    "audit_files_owner_configure",
			want:  "SELECT 1 FROM file WHERE path LIKE '/var/audit/%' OR path LIKE '/etc/security/%';",
		},
		{
			name:  "permission change scoped to referenced prefix",
			check: "/bin/chmod 644 /etc/ssh/sshd_config",
			id:    "os_sshd_permissions",
			want:  "SELECT 1 FROM file WHERE path LIKE '/etc/%';",
		},
		{
			name:  "plain path reference",
			check: "/bin/cat /etc/pam.d/sudo",
			id:    "os_sudo_timeout_configure",
			want:  "SELECT 1 FROM file WHERE path LIKE '/etc/%' OR path LIKE '/var/%';",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.check, tt.id)
			assert.Equal(t, StrategyFilesystemPath, res.Strategy)
			assert.Equal(t, tt.want, res.Query)
		})
	}
}

func TestExtractServiceManager(t *testing.T) {
	res := Extract("/bin/launchctl list | /usr/bin/grep -c com.apple.auditd", "audit_auditd_enabled")
	assert.Equal(t, "SELECT 1 FROM launchd WHERE name = 'com.apple.auditd';", res.Query)

	res = Extract("/bin/launchctl print-disabled system", "os_ssh_disable")
	assert.Equal(t, "SELECT 1 FROM launchd WHERE name LIKE '%audit%';", res.Query)
}

func TestExtractSimpleKeywords(t *testing.T) {
	assert.Equal(t, "SELECT 1 FROM system_info;", Extract("/usr/sbin/system_profiler SPBluetoothDataType", "x").Query)
	assert.Equal(t, "SELECT 1 FROM software_update WHERE software_update_required = '0';", Extract("/usr/sbin/softwareupdate -l", "x").Query)
	assert.Equal(t, "SELECT 1 FROM managed_policies;", Extract("/usr/bin/defaults read com.apple.x", "x").Query)
}

func TestExtractRuleDomain(t *testing.T) {
	assert.Equal(t, "SELECT 1 FROM managed_policies WHERE domain = 'com.apple.security.firewall';", Extract("", "os_firewall_log_enable").Query)
	assert.Equal(t, "SELECT 1 FROM managed_policies WHERE domain = 'com.apple.systempolicy.control';", Extract("", "os_gatekeeper_enable").Query)
	assert.Equal(t, "SELECT 1 FROM managed_policies WHERE domain = 'com.apple.MCX';", Extract("", "system_settings_filevault_enforce").Query)
}

func TestExtractFallsBackToPlaceholder(t *testing.T) {
	res := Extract("/usr/bin/csrutil status", "os_sip_enable")
	assert.Equal(t, query.Placeholder, res.Query)
	assert.Equal(t, StrategyNone, res.Strategy)
	assert.False(t, res.Recognized())
}

func TestExtractPrecedenceFirstStrategyWins(t *testing.T) {
	// matches preference-suite, filesystem-path, service-manager and defaults
	check := loginWindowCheck + "\n/bin/launchctl list; /usr/bin/defaults read /etc/foo"
	res := Extract(check, "audit_firewall")
	assert.Equal(t, StrategyPreferenceSuite, res.Strategy)

	check = "/bin/launchctl list; /usr/bin/defaults read com.apple.x"
	res = Extract(check, "firewall")
	assert.Equal(t, StrategyServiceManager, res.Strategy)
}

func TestStrategiesOrderIsFixed(t *testing.T) {
	var names []string
	for _, s := range Strategies() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		StrategyPreferenceSuite,
		StrategyFilesystemPath,
		StrategyServiceManager,
		StrategySystemProfile,
		StrategySoftwareUpdate,
		StrategyPreferenceRead,
		StrategyRuleDomain,
	}, names)
}

func TestStrategiesIndependently(t *testing.T) {
	for _, s := range Strategies() {
		_, ok := s.Apply("", "")
		assert.False(t, ok, "%s applied to empty input", s.Name)
	}
}

func TestExtractedQueriesAreValidStatements(t *testing.T) {
	v, err := query.NewValidator()
	require.NoError(t, err)
	defer v.Close()

	inputs := []struct{ check, id string }{
		{loginWindowCheck, "x"},
		{"/var/audit", "audit_x"},
		{"chown root /etc/x", "os_x"},
		{"launchctl", "audit_x"},
		{"launchctl", "os_x"},
		{"system_profiler", "x"},
		{"softwareupdate", "x"},
		{"defaults", "x"},
		{"", "firewall"},
		{"", "x"},
	}
	for _, in := range inputs {
		q := Extract(in.check, in.id).Query
		assert.NoError(t, v.Validate(context.Background(), q), q)
	}
}
