package policy

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Delimiter terminates every entry in a policy document.
const Delimiter = "---"

// Entry is one policy record. Only the query and its marker change after
// creation; every other field round-trips through the parsed node untouched.
type Entry struct {
	Policy Policy

	marker Marker
	// note is any other comment found on the query line.
	note string
	node *yaml.Node
}

func NewEntry(p Policy) *Entry {
	return &Entry{Policy: p}
}

func (e *Entry) Query() string {
	return e.Policy.Spec.Query
}

func (e *Entry) SetQuery(q string) {
	e.Policy.Spec.Query = q
}

func (e *Entry) Marker() Marker {
	return e.marker
}

func (e *Entry) Marked() bool {
	return e.marker != MarkerNone
}

func (e *Entry) Mark(m Marker) {
	e.marker = m
}

func (e *Entry) ClearMarker() {
	e.marker = MarkerNone
}

// Title is the policy name without the generated prefix.
func (e *Entry) Title() string {
	return strings.TrimPrefix(e.Policy.Spec.Name, NamePrefix)
}

// Document is an ordered list of entries with a comment header.
type Document struct {
	Header  []string
	Entries []*Entry
}

// NewDocument returns an empty document with the standard generated header.
func NewDocument(title string) *Document {
	return &Document{Header: []string{
		"# Fleet policies for " + title,
		"# Generated from macOS Security Compliance Project",
	}}
}

// ParseDocument splits data on delimiter lines and decodes each segment as
// its own record, so no edit can cross an entry boundary.
func ParseDocument(data []byte) (*Document, error) {
	doc := &Document{}
	for i, seg := range splitSegments(string(data)) {
		if i == 0 {
			doc.Header, seg = splitHeader(seg)
		}
		if isBlank(seg) {
			continue
		}

		var root yaml.Node
		if err := yaml.Unmarshal([]byte(seg), &root); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedEntry, len(doc.Entries), err)
		}
		if root.Kind != yaml.DocumentNode || len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
			return nil, fmt.Errorf("%w: entry %d: not a mapping", ErrMalformedEntry, len(doc.Entries))
		}
		m := root.Content[0]

		var p Policy
		if err := m.Decode(&p); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedEntry, len(doc.Entries), err)
		}

		e := &Entry{Policy: p, node: m}
		if key, value := lookup(m, "spec", "query"); value != nil {
			e.marker, e.note = splitComment(value.LineComment)
			if e.marker == MarkerNone {
				e.marker = parseMarker(key.LineComment)
			}
		}
		doc.Entries = append(doc.Entries, e)
	}
	return doc, nil
}

// Marshal writes the header, then each entry followed by a delimiter line.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	for _, line := range d.Header {
		if !strings.HasPrefix(line, "#") {
			line = "# " + line
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	if len(d.Header) > 0 {
		buf.WriteByte('\n')
	}

	for i, e := range d.Entries {
		n, err := e.syncNode()
		if err != nil {
			return nil, fmt.Errorf("encode entry %d: %w", i, err)
		}
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(n); err != nil {
			return nil, fmt.Errorf("encode entry %d: %w", i, err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode entry %d: %w", i, err)
		}
		buf.WriteString(Delimiter)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// syncNode copies the query and marker into the entry's node, building the
// node from Policy for entries that were never parsed.
func (e *Entry) syncNode() (*yaml.Node, error) {
	if e.node == nil {
		n := &yaml.Node{}
		if err := n.Encode(e.Policy); err != nil {
			return nil, err
		}
		e.node = n
	}

	key, value := ensure(e.node, "spec", "query")
	if parseMarker(key.LineComment) != MarkerNone {
		key.LineComment = ""
	}
	value.Kind = yaml.ScalarNode
	value.Tag = "!!str"
	value.Value = e.Policy.Spec.Query
	if value.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 {
		value.Style = 0
	}
	value.LineComment = joinComment(e.marker, e.note)
	return e.node, nil
}

// lookup follows a path of mapping keys and returns the final key and value nodes.
func lookup(m *yaml.Node, path ...string) (*yaml.Node, *yaml.Node) {
	var key *yaml.Node
	cur := m
	for _, name := range path {
		if cur == nil || cur.Kind != yaml.MappingNode {
			return nil, nil
		}
		key, cur = child(cur, name)
	}
	return key, cur
}

// ensure is lookup that creates missing keys along the path.
func ensure(m *yaml.Node, path ...string) (*yaml.Node, *yaml.Node) {
	var key *yaml.Node
	cur := m
	for i, name := range path {
		k, v := child(cur, name)
		if v == nil {
			k = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name}
			if i == len(path)-1 {
				v = &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str"}
			} else {
				v = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			}
			cur.Content = append(cur.Content, k, v)
		} else if i < len(path)-1 && v.Kind != yaml.MappingNode {
			*v = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		key, cur = k, v
	}
	return key, cur
}

func child(m *yaml.Node, name string) (*yaml.Node, *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == name {
			return m.Content[i], m.Content[i+1]
		}
	}
	return nil, nil
}

func splitSegments(s string) []string {
	var segments []string
	var cur []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimRight(line, " \t\r") == Delimiter {
			segments = append(segments, strings.Join(cur, "\n"))
			cur = nil
			continue
		}
		cur = append(cur, line)
	}
	return append(segments, strings.Join(cur, "\n"))
}

// splitHeader removes the leading comment block of the first segment.
func splitHeader(seg string) ([]string, string) {
	var header []string
	lines := strings.Split(seg, "\n")
	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "#") {
			break
		}
		header = append(header, line)
	}
	return header, strings.Join(lines[i:], "\n")
}

func isBlank(seg string) bool {
	for _, line := range strings.Split(seg, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return false
		}
	}
	return true
}
