package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Categories are searched in order; the first existing file wins.
var Categories = []string{
	"os",
	"system_settings",
	"audit",
	"auth",
	"icloud",
	"pwpolicy",
	"supplemental",
}

// Store loads rule documents from <root>/<category>/<id>.yaml and caches
// them. It is not safe for concurrent use.
type Store struct {
	root  string
	cache map[string]*Rule
}

func NewStore(root string) *Store {
	return &Store{root: root, cache: make(map[string]*Rule)}
}

// Load returns the rule for id or an error wrapping ErrRuleNotFound.
func (s *Store) Load(id string) (*Rule, error) {
	if r, ok := s.cache[id]; ok {
		return r, nil
	}
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return nil, fmt.Errorf("%w: invalid id %q", ErrRuleNotFound, id)
	}

	for _, category := range Categories {
		path := filepath.Join(s.root, category, id+".yaml")
		// #nosec G304 -- path is built from the configured rules directory.
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read rule %s: %w", id, err)
		}

		var r Rule
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedRule, path, err)
		}
		if r.ID == "" {
			r.ID = id
		}
		s.cache[id] = &r
		return &r, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrRuleNotFound, id)
}

// LoadBaseline parses a baseline document.
func LoadBaseline(path string) (*Baseline, error) {
	// #nosec G304 -- path comes from operator-configured baselines directory.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBaseline(data)
}

func ParseBaseline(data []byte) (*Baseline, error) {
	var b Baseline
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBaseline, err)
	}
	if len(b.Profile) == 0 {
		return nil, fmt.Errorf("%w: no profile sections", ErrMalformedBaseline)
	}
	return &b, nil
}

// BaselineName is the file name without its extension.
func BaselineName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
