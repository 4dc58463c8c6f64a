package rules

// Rule is one compliance rule document.
type Rule struct {
	ID         string     `yaml:"id"`
	Title      string     `yaml:"title"`
	Discussion string     `yaml:"discussion"`
	Fix        string     `yaml:"fix"`
	Check      string     `yaml:"check"`
	References References `yaml:"references"`
}

type References struct {
	CIS *CISReference `yaml:"cis"`
}

type CISReference struct {
	Benchmark []string `yaml:"benchmark"`
	Level     []string `yaml:"level"`
}

// Benchmark returns the first CIS benchmark name and level, if present.
func (r Rule) Benchmark() (name string, level string) {
	if r.References.CIS == nil {
		return "", ""
	}
	if len(r.References.CIS.Benchmark) > 0 {
		name = r.References.CIS.Benchmark[0]
	}
	if len(r.References.CIS.Level) > 0 {
		level = r.References.CIS.Level[0]
	}
	return name, level
}

// Baseline groups rule identifiers into ordered sections.
type Baseline struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Profile     []Section `yaml:"profile"`
}

type Section struct {
	Section string   `yaml:"section"`
	Rules   []string `yaml:"rules"`
}

// RuleIDs returns every rule identifier in section order.
func (b Baseline) RuleIDs() []string {
	var ids []string
	for _, s := range b.Profile {
		ids = append(ids, s.Rules...)
	}
	return ids
}
