package mapping

import "github.com/davidahmann/fleetpolicy/internal/query"

const auditControl = "/etc/security/audit_control"

// DefaultTable returns the built-in title table. Order is significant.
func DefaultTable() *Table {
	t, err := NewTable(defaultRules())
	if err != nil {
		panic(err)
	}
	return t
}

func defaultRules() []Rule {
	return []Rule{
		// audit storage
		mustCompile("audit-files-acl", `audit.*files.*not.*contain.*access.*control.*lists`,
			"SELECT 1 FROM file WHERE (path LIKE '/var/audit/%' OR path LIKE '/etc/security/%') AND extended_attributes LIKE '%com.apple.acl%';"),
		mustCompile("audit-folder-acl", `audit.*folder.*not.*contain.*access.*control.*lists`,
			"SELECT 1 FROM file WHERE (path LIKE '/var/audit/%' OR path LIKE '/etc/security/%') AND type = 'directory' AND extended_attributes LIKE '%com.apple.acl%';"),
		mustCompile("auditd-enabled", `enable.*security.*auditing`,
			"SELECT 1 FROM launchd WHERE name = 'com.apple.auditd' AND state = 'running';"),
		mustCompile("audit-capacity-warning", `audit.*capacity.*warning`,
			"SELECT 1 FROM file WHERE path = '"+auditControl+"' AND content LIKE '%minfree%';"),
		mustCompile("audit-failure-halt", `shut.*down.*upon.*audit.*failure`,
			"SELECT 1 FROM file WHERE path = '"+auditControl+"' AND content LIKE '%policy: ahlt%';"),
		mustCompile("audit-files-group", `audit.*log.*files.*group.*wheel`,
			"SELECT 1 FROM file WHERE path LIKE '/var/audit/%' AND gid = 0;"),
		mustCompile("audit-files-mode", `audit.*log.*files.*mode.*440`,
			"SELECT 1 FROM file WHERE path LIKE '/var/audit/%' AND mode <= '440';"),
		mustCompile("audit-files-owner", `audit.*log.*files.*owned.*root`,
			"SELECT 1 FROM file WHERE path LIKE '/var/audit/%' AND uid = 0;"),
		mustCompile("audit-folders-group", `audit.*folders.*group.*wheel`,
			"SELECT 1 FROM file WHERE path = '/var/audit' AND type = 'directory' AND gid = 0;"),
		mustCompile("audit-folders-owner", `audit.*folders.*owned.*root`,
			"SELECT 1 FROM file WHERE path = '/var/audit' AND type = 'directory' AND uid = 0;"),
		mustCompile("audit-folders-mode", `audit.*folders.*mode.*700`,
			"SELECT 1 FROM file WHERE path = '/var/audit' AND type = 'directory' AND mode <= '700';"),

		// audit event classes
		mustCompile("audit-flag-aa", `audit.*authorization.*authentication.*events`, auditFlag("aa")),
		mustCompile("audit-flag-ad", `audit.*administrative.*action.*events`, auditFlag("ad")),
		mustCompile("audit-flag-ex", `audit.*failed.*program.*execution`, auditFlag("-ex")),
		mustCompile("audit-flag-fd", `audit.*deletions.*object.*attributes`, auditFlag("-fd")),
		mustCompile("audit-flag-fm", `audit.*failed.*change.*object.*attributes`, auditFlag("-fm")),
		mustCompile("audit-flag-fr", `audit.*failed.*read.*actions`, auditFlag("-fr")),
		mustCompile("audit-flag-fw", `audit.*failed.*write.*actions`, auditFlag("-fw")),
		mustCompile("audit-flag-lo", `audit.*log.*in.*log.*out.*events`, auditFlag("lo")),

		// FileVault
		mustCompile("filevault-enabled", `filevault.*enabled`,
			"SELECT 1 FROM disk_encryption WHERE name = 'FileVault' AND encrypted = 1;"),
		mustCompile("filevault-autologin", `filevault.*auto.*login.*disabled`,
			query.ManagedSetting("com.apple.loginwindow", "DisableFDEAutoLogin")),

		// firewall
		mustCompile("firewall-enabled", `firewall.*enabled`,
			query.ManagedSetting("com.apple.security.firewall", "EnableFirewall")),
		mustCompile("firewall-stealth", `firewall.*stealth.*mode`,
			query.ManagedSetting("com.apple.security.firewall", "EnableStealthMode")),

		// screen saver
		mustCompile("screensaver-password", `screen.*saver.*password.*required`,
			query.ManagedSetting("com.apple.screensaver", "askForPassword")),
		mustCompile("screensaver-timeout", `screen.*saver.*timeout`,
			query.ManagedSetting("com.apple.screensaver", "idleTime")),

		mustCompile("location-services", `location.*services.*disabled`,
			query.ManagedSetting("com.apple.locationd", "LocationServicesEnabled")),
		mustCompile("bluetooth", `bluetooth.*disabled`,
			query.ManagedSetting("com.apple.MCXBluetooth", "DisableBluetooth")),
		mustCompile("guest-account", `guest.*account.*disabled`,
			query.ManagedSetting("com.apple.MCX", "DisableGuestAccount")),
		mustCompile("software-update", `software.*update.*automatic`,
			"SELECT 1 FROM software_update WHERE software_update_required = '0';"),

		mustCompile("managed-policy", CatchAll,
			"SELECT 1 FROM managed_policies WHERE domain = 'com.apple.applicationaccess';"),
	}
}

func auditFlag(flag string) string {
	return "SELECT 1 FROM file WHERE path = '" + auditControl + "' AND content LIKE '%" + flag + "%';"
}
