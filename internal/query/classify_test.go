package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyShapes(t *testing.T) {
	tests := []struct {
		name  string
		query string
		class Class
		shape Shape
	}{
		{"placeholder", "SELECT 1;", Generic, ShapePlaceholder},
		{"placeholder spacing", "  SELECT   1 ; ", Generic, ShapePlaceholder},
		{"placeholder no semicolon", "SELECT 1", Generic, ShapePlaceholder},
		{"no table", "SELECT 2;", Generic, ShapeNoTable},
		{"empty", "", Generic, ShapeNoTable},
		{"unscoped", "SELECT 1 FROM managed_policies;", Generic, ShapeUnscoped},
		{"unscoped system info", "SELECT 1 FROM system_info;", Generic, ShapeUnscoped},
		{"domain only", "SELECT 1 FROM managed_policies WHERE domain = 'com.apple.applicationaccess';", Generic, ShapeDomainOnly},
		{"file prefix", "SELECT 1 FROM file WHERE path LIKE '/etc/%';", Generic, ShapeFilePrefix},
		{"file prefixes", "SELECT 1 FROM file WHERE path LIKE '/var/audit/%' OR path LIKE '/etc/security/%';", Generic, ShapeFilePrefix},
		{"service pattern", "SELECT 1 FROM launchd WHERE name LIKE '%audit%';", Generic, ShapeServicePattern},
		{"service exact", "SELECT 1 FROM launchd WHERE name = 'com.apple.auditd';", Specific, ShapeNone},
		{"service running", "SELECT 1 FROM launchd WHERE name LIKE '%audit%' AND state = 'running';", Specific, ShapeNone},
		{"file uid", "SELECT 1 FROM file WHERE path LIKE '/var/audit/%' AND uid = 0;", Specific, ShapeNone},
		{"managed setting", ManagedSetting("com.apple.loginwindow", "DisableFDEAutoLogin"), Specific, ShapeNone},
		{"software update", "SELECT 1 FROM software_update WHERE software_update_required = '0';", Specific, ShapeNone},
		{"lowercase", "select 1 from file where path like '/etc/%';", Generic, ShapeFilePrefix},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Classify(tt.query)
			assert.Equal(t, tt.class, c.Class)
			assert.Equal(t, tt.shape, c.Shape)
		})
	}
}

func TestClassifyPlaceholderIsNotSpecific(t *testing.T) {
	assert.False(t, IsSpecific(Placeholder))
	assert.True(t, IsSpecific("SELECT 1 FROM file WHERE path = '/var/audit' AND type = 'directory' AND uid = 0;"))
}

func TestClassifyCapturesTableAndPredicate(t *testing.T) {
	c := Classify("SELECT 1 FROM file WHERE path LIKE '/etc/%' OR path LIKE '/var/%';")
	assert.Equal(t, TableFile, c.Table)
	assert.Equal(t, "path LIKE '/etc/%' OR path LIKE '/var/%'", c.Predicate)

	c = Classify("SELECT 1 FROM launchd WHERE name LIKE '%audit%';")
	assert.Equal(t, TableLaunchd, c.Table)
	assert.Equal(t, "name LIKE '%audit%'", c.Predicate)
}

func TestNarrow(t *testing.T) {
	got, ok := Narrow(Classify("SELECT 1 FROM file WHERE path LIKE '/etc/%' OR path LIKE '/var/%';"), "type = 'directory'")
	require.True(t, ok)
	assert.Equal(t, "SELECT 1 FROM file WHERE (path LIKE '/etc/%' OR path LIKE '/var/%') AND type = 'directory';", got)
	assert.True(t, IsSpecific(got))

	got, ok = Narrow(Classify("SELECT 1 FROM launchd WHERE name LIKE '%audit%';"), "state = 'running'")
	require.True(t, ok)
	assert.Equal(t, "SELECT 1 FROM launchd WHERE name LIKE '%audit%' AND state = 'running';", got)

	_, ok = Narrow(Classify(Placeholder), "uid = 0")
	assert.False(t, ok)
}

func TestBuildersProduceValidStatements(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	defer v.Close()

	for _, q := range []string{
		Placeholder,
		Select(TableSystemInfo),
		ManagedDomain("com.apple.MCX"),
		ManagedSetting("com.apple.screensaver", "askForPassword"),
		Select(TableFile, PathPrefixes("/etc/", "/var/")),
		Select(TableLaunchd, "name = 'com.apple.auditd'", "state = 'running'"),
	} {
		assert.NoError(t, v.Validate(context.Background(), q), q)
	}
}

func TestValidatorRejectsUnknownTablesAndColumns(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)
	defer v.Close()

	ctx := context.Background()
	assert.ErrorIs(t, v.Validate(ctx, "SELECT 1 FROM processes;"), ErrInvalidQuery)
	assert.ErrorIs(t, v.Validate(ctx, "SELECT 1 FROM file WHERE owner = 'root';"), ErrInvalidQuery)
	assert.ErrorIs(t, v.Validate(ctx, "SELEC 1;"), ErrInvalidQuery)
	assert.ErrorIs(t, v.Validate(ctx, "  "), ErrInvalidQuery)
}
