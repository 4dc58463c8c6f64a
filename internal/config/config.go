package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/davidahmann/fleetpolicy/internal/logging"
)

// EnvPrefix marks environment overrides: FLEETPOLICY_PATHS_OUTPUT_DIR sets
// paths.output_dir.
const EnvPrefix = "FLEETPOLICY_"

const defaults = `
paths:
  project_root: ""
  rules_dir: ""
  baselines_dir: ""
  output_dir: ""
output:
  pattern: "*-fleet-policies.yml"
  backup_suffixes: [".bak"]
repair:
  title_fallback: true
ledger:
  dsn: ""
logging:
  level: info
  format: console
`

type Config struct {
	Paths   PathsConfig    `koanf:"paths"`
	Output  OutputConfig   `koanf:"output"`
	Repair  RepairConfig   `koanf:"repair"`
	Ledger  LedgerConfig   `koanf:"ledger"`
	Logging logging.Config `koanf:"logging"`
}

// PathsConfig locates the rule library and the generated documents. Empty
// directories are derived from ProjectRoot.
type PathsConfig struct {
	ProjectRoot  string `koanf:"project_root"`
	RulesDir     string `koanf:"rules_dir"`
	BaselinesDir string `koanf:"baselines_dir"`
	OutputDir    string `koanf:"output_dir"`
}

type OutputConfig struct {
	Pattern        string   `koanf:"pattern"`
	BackupSuffixes []string `koanf:"backup_suffixes"`
}

type RepairConfig struct {
	TitleFallback bool `koanf:"title_fallback"`
}

// LedgerConfig enables the run history when DSN names a sqlite database.
type LedgerConfig struct {
	DSN string `koanf:"dsn"`
}

// Load layers defaults, the optional YAML file at path, and environment
// overrides, then validates the result.
func Load(path string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider([]byte(defaults)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		// #nosec G304 -- path is operator-provided config path.
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		expanded := os.ExpandEnv(string(raw))
		expanded = strings.ReplaceAll(expanded, "\r\n", "\n")
		if err := k.Load(rawbytes.Provider([]byte(expanded)), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.applyDerived()
	return cfg, cfg.Validate()
}

// envKey maps FLEETPOLICY_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func (c *Config) applyDerived() {
	p := &c.Paths
	if p.ProjectRoot != "" {
		if p.RulesDir == "" {
			p.RulesDir = filepath.Join(p.ProjectRoot, "rules")
		}
		if p.BaselinesDir == "" {
			p.BaselinesDir = filepath.Join(p.ProjectRoot, "baselines")
		}
		if p.OutputDir == "" {
			p.OutputDir = filepath.Join(p.ProjectRoot, "fleet")
		}
	}
	if p.OutputDir == "" {
		p.OutputDir = "."
	}
}

func (c Config) Validate() error {
	if c.Output.Pattern == "" {
		return fmt.Errorf("output.pattern is required")
	}
	if !doublestar.ValidatePattern(c.Output.Pattern) {
		return fmt.Errorf("output.pattern %q is not a valid glob", c.Output.Pattern)
	}
	if c.Paths.OutputDir == "" {
		return fmt.Errorf("paths.output_dir is required")
	}
	return c.Logging.Validate()
}

// ValidateConvert checks the settings only conversion needs.
func (c Config) ValidateConvert() error {
	if c.Paths.RulesDir == "" || c.Paths.BaselinesDir == "" {
		return fmt.Errorf("paths.project_root or both paths.rules_dir and paths.baselines_dir are required")
	}
	for _, dir := range []string{c.Paths.RulesDir, c.Paths.BaselinesDir} {
		info, err := os.Stat(dir)
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("directory not found: %s", dir)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("not a directory: %s", dir)
		}
	}
	return nil
}
