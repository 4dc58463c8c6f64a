package repair

import (
	"regexp"
	"strings"

	"github.com/davidahmann/fleetpolicy/internal/mapping"
	"github.com/davidahmann/fleetpolicy/internal/policy"
	"github.com/davidahmann/fleetpolicy/internal/query"
)

const (
	RewriteAuditFile     = "audit-file"
	RewriteFilePrefix    = "file-prefix"
	RewriteServiceState  = "service-state"
	RewriteTitleFallback = "title-fallback"
)

const (
	aclPredicate       = "extended_attributes LIKE '%com.apple.acl%'"
	directoryPredicate = "type = 'directory'"
	runningPredicate   = "state = 'running'"
)

// Rewrite turns one generic entry into a specific one. Apply sees a single
// entry and never touches its siblings.
type Rewrite struct {
	Name  string
	Apply func(e *policy.Entry, c query.Classification) (string, bool)
}

func defaultRewrites(table *mapping.Table, titleFallback bool) []Rewrite {
	rw := []Rewrite{
		{Name: RewriteAuditFile, Apply: auditFile},
		{Name: RewriteFilePrefix, Apply: narrowWhen(query.ShapeFilePrefix, directoryPredicate, aclPredicate)},
		{Name: RewriteServiceState, Apply: narrowWhen(query.ShapeServicePattern, runningPredicate)},
	}
	if titleFallback && table != nil {
		rw = append(rw, Rewrite{Name: RewriteTitleFallback, Apply: titleMatch(table)})
	}
	return rw
}

var (
	auditLogPaths = query.PathPrefixes("/var/audit/")
	auditSecurity = "(" + query.PathPrefixes("/var/audit/", "/etc/security/") + ")"
	aclWord       = regexp.MustCompile(`\bacls?\b`)
)

const auditFolder = "path = '/var/audit'"

// auditFile replaces a bare placeholder on an audit entry with a file
// metadata check picked from the entry's title. Folder titles check the
// audit directory itself; all others check the log files under it.
func auditFile(e *policy.Entry, c query.Classification) (string, bool) {
	if c.Shape != query.ShapePlaceholder {
		return "", false
	}
	title := strings.ToLower(e.Title())
	if !strings.Contains(title, "audit") {
		return "", false
	}

	folder := containsAny(title, "folder", "director")
	target := []string{auditLogPaths}
	mode := "mode <= '440'"
	if folder {
		target = []string{auditFolder, directoryPredicate}
		mode = "mode <= '700'"
	}

	switch {
	case aclWord.MatchString(title) || strings.Contains(title, "access control"):
		preds := []string{auditSecurity}
		if folder {
			preds = append(preds, directoryPredicate)
		}
		return query.Select(query.TableFile, append(preds, aclPredicate)...), true
	case strings.Contains(title, "group"):
		return query.Select(query.TableFile, append(target, "gid = 0")...), true
	case containsAny(title, "owner", "owned"):
		return query.Select(query.TableFile, append(target, "uid = 0")...), true
	case containsAny(title, "mode", "permission"):
		return query.Select(query.TableFile, append(target, mode)...), true
	}
	return "", false
}

func narrowWhen(shape query.Shape, predicates ...string) func(*policy.Entry, query.Classification) (string, bool) {
	return func(_ *policy.Entry, c query.Classification) (string, bool) {
		if c.Shape != shape {
			return "", false
		}
		return query.Narrow(c, predicates...)
	}
}

func titleMatch(table *mapping.Table) func(*policy.Entry, query.Classification) (string, bool) {
	return func(e *policy.Entry, _ query.Classification) (string, bool) {
		m := table.Match(e.Title())
		if m.CatchAll {
			return "", false
		}
		return m.Query, true
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
