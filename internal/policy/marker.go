package policy

import (
	"strings"

	"github.com/davidahmann/fleetpolicy/internal/query"
)

// Marker flags an entry whose query is still generic and awaits review. It is
// stored as a line comment on the query value.
type Marker string

const (
	MarkerNone    Marker = ""
	MarkerQuery   Marker = "TODO: Replace with specific query for this policy"
	MarkerFile    Marker = "TODO: Replace with specific file validation query"
	MarkerService Marker = "TODO: Replace with specific service validation query"
	MarkerManaged Marker = "TODO: Replace with specific managed policy query"
)

const markerPrefix = "TODO:"

// MarkerFor picks the marker text for a generic shape.
func MarkerFor(shape query.Shape) Marker {
	switch shape {
	case query.ShapeFilePrefix:
		return MarkerFile
	case query.ShapeServicePattern:
		return MarkerService
	case query.ShapeUnscoped, query.ShapeDomainOnly:
		return MarkerManaged
	default:
		return MarkerQuery
	}
}

func parseMarker(comment string) Marker {
	m, _ := splitComment(comment)
	return m
}

// splitComment separates a marker from any other comment on the same line.
// "# TODO: ... # note" yields the marker and "# note"; a comment that is not
// a marker is returned whole as the note.
func splitComment(comment string) (Marker, string) {
	comment = strings.TrimSpace(comment)
	text := strings.TrimSpace(strings.TrimLeft(comment, "#"))
	if !strings.HasPrefix(text, markerPrefix) {
		return MarkerNone, comment
	}
	if i := strings.Index(text, " #"); i >= 0 {
		return Marker(strings.TrimSpace(text[:i])), strings.TrimSpace(text[i+1:])
	}
	return Marker(text), ""
}

func joinComment(m Marker, note string) string {
	switch {
	case m == MarkerNone:
		return note
	case note == "":
		return m.comment()
	default:
		return m.comment() + " " + note
	}
}

func (m Marker) comment() string {
	if m == MarkerNone {
		return ""
	}
	return "# " + string(m)
}
