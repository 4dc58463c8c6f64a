// Package convert turns rule baselines into policy documents.
package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidahmann/fleetpolicy/internal/policy"
	"github.com/davidahmann/fleetpolicy/internal/query"
	"github.com/davidahmann/fleetpolicy/internal/rules"
)

const (
	baselinePattern = "*.yaml"
	outputSuffix    = "-fleet-policies.yml"
)

// OutputName is the document file name for a baseline.
func OutputName(baseline string) string {
	return baseline + outputSuffix
}

type Config struct {
	BaselinesDir string
	OutputDir    string
	Logger       *zap.Logger
}

type Converter struct {
	store        *rules.Store
	assembler    *policy.Assembler
	baselinesDir string
	outputDir    string
	log          *zap.Logger
}

func New(store *rules.Store, assembler *policy.Assembler, cfg Config) *Converter {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Converter{
		store:        store,
		assembler:    assembler,
		baselinesDir: cfg.BaselinesDir,
		outputDir:    cfg.OutputDir,
		log:          log,
	}
}

type BaselineResult struct {
	Name   string
	Path   string
	Output string
	Hash   string
	// Policies is the number of entries written.
	Policies int
	// Specific counts entries whose synthesized query is specific.
	Specific int
	// Skipped counts rules that could not be loaded.
	Skipped int
	Err     error
}

type Summary struct {
	RunID     string
	Baselines []BaselineResult
	Policies  int
	Failed    int
}

// ConvertAll converts every baseline in the baselines directory. A baseline
// that fails is recorded and the rest still run.
func (c *Converter) ConvertAll(ctx context.Context) (Summary, error) {
	// #nosec G301 -- generated policies are meant to be shared.
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("output dir: %w", err)
	}
	matches, err := doublestar.Glob(os.DirFS(c.baselinesDir), baselinePattern, doublestar.WithFilesOnly())
	if err != nil {
		return Summary{}, fmt.Errorf("find baselines: %w", err)
	}

	sum := Summary{RunID: uuid.NewString()}
	log := c.log.With(zap.String("run_id", sum.RunID))
	for _, m := range matches {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := c.convert(log, filepath.Join(c.baselinesDir, filepath.FromSlash(m)))
		if err != nil {
			res.Err = err
			sum.Failed++
			log.Error("baseline conversion failed", zap.String("baseline", res.Name), zap.Error(err))
		}
		sum.Policies += res.Policies
		sum.Baselines = append(sum.Baselines, res)
	}
	log.Info("conversion complete",
		zap.Int("baselines", len(matches)),
		zap.Int("policies", sum.Policies),
		zap.Int("failed", sum.Failed),
		zap.String("output_dir", c.outputDir))
	return sum, nil
}

// ConvertBaseline writes the policy document for one baseline file.
func (c *Converter) ConvertBaseline(path string) (BaselineResult, error) {
	return c.convert(c.log, path)
}

func (c *Converter) convert(log *zap.Logger, path string) (BaselineResult, error) {
	name := rules.BaselineName(path)
	res := BaselineResult{Name: name, Path: path, Output: filepath.Join(c.outputDir, OutputName(name))}

	baseline, err := rules.LoadBaseline(path)
	if err != nil {
		return res, fmt.Errorf("load baseline %s: %w", path, err)
	}

	title := baseline.Title
	if title == "" {
		title = name
	}
	doc := policy.NewDocument(title)

	for _, id := range baseline.RuleIDs() {
		r, err := c.store.Load(id)
		if err != nil {
			res.Skipped++
			if errors.Is(err, rules.ErrRuleNotFound) {
				log.Warn("rule not found", zap.String("baseline", name), zap.String("rule", id))
			} else {
				log.Error("rule load failed", zap.String("baseline", name), zap.String("rule", id), zap.Error(err))
			}
			continue
		}

		e, s := c.assembler.Assemble(*r, name)
		if s.Class == query.Specific {
			res.Specific++
		}
		log.Debug("synthesized query",
			zap.String("rule", r.ID),
			zap.String("strategy", s.Strategy),
			zap.String("title_rule", s.TitleRuleID),
			zap.Stringer("class", s.Class))
		doc.Entries = append(doc.Entries, e)
	}

	hash, err := policy.WriteDocument(res.Output, doc)
	if err != nil {
		return res, err
	}
	res.Hash = hash
	res.Policies = len(doc.Entries)
	log.Info("converted baseline",
		zap.String("baseline", name),
		zap.Int("policies", res.Policies),
		zap.Int("specific", res.Specific),
		zap.Int("skipped", res.Skipped),
		zap.String("output", res.Output))
	return res, nil
}
