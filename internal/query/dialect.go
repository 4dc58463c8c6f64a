package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

const (
	TableManagedPolicies = "managed_policies"
	TableFile            = "file"
	TableLaunchd         = "launchd"
	TableSystemInfo      = "system_info"
	TableSoftwareUpdate  = "software_update"
	TableDiskEncryption  = "disk_encryption"
)

// Table describes one virtual table exposed by the agent.
type Table struct {
	Name    string
	Columns []string
}

// Tables is the subset of the agent schema that synthesized queries may use.
var Tables = []Table{
	{Name: TableManagedPolicies, Columns: []string{"domain", "name", "value"}},
	{Name: TableFile, Columns: []string{"path", "type", "mode", "uid", "gid", "extended_attributes", "content"}},
	{Name: TableLaunchd, Columns: []string{"name", "state"}},
	{Name: TableSystemInfo, Columns: []string{"hostname", "hardware_model", "cpu_brand"}},
	{Name: TableSoftwareUpdate, Columns: []string{"software_update_required"}},
	{Name: TableDiskEncryption, Columns: []string{"name", "encrypted"}},
}

// Validator prepares statements against an empty in-memory copy of the
// dialect schema. It catches syntax errors and unknown tables or columns; it
// says nothing about whether a query is a correct compliance check.
type Validator struct {
	db *sql.DB
}

func NewValidator() (*Validator, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open schema db: %w", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	for _, t := range Tables {
		stmt := fmt.Sprintf("CREATE TABLE %s (%s)", t.Name, strings.Join(t.Columns, ", "))
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return &Validator{db: db}, nil
}

// Validate returns ErrInvalidQuery wrapping the engine's message when q does
// not prepare against the schema.
func (v *Validator) Validate(ctx context.Context, q string) error {
	if strings.TrimSpace(q) == "" {
		return fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}
	stmt, err := v.db.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	return stmt.Close()
}

func (v *Validator) Close() error {
	return v.db.Close()
}
