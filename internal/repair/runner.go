package repair

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davidahmann/fleetpolicy/internal/policy"
)

// DefaultPattern matches generated policy documents.
const DefaultPattern = "*-fleet-policies.yml"

type FileResult struct {
	Path    string
	Report  Report
	Written bool
	Hash    string
	Err     error
}

type Summary struct {
	RunID   string
	Files   []FileResult
	Total   Report
	Skipped int
}

// Runner applies a pass to every policy document in a directory.
type Runner struct {
	pipeline     *Pipeline
	pattern      string
	skipSuffixes []string
	log          *zap.Logger
}

type RunnerConfig struct {
	// Pattern is a doublestar glob relative to the directory.
	Pattern string
	// SkipSuffixes excludes backups and other copies from discovery.
	SkipSuffixes []string
	Logger       *zap.Logger
}

func NewRunner(p *Pipeline, cfg RunnerConfig) (*Runner, error) {
	pattern := cfg.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{pipeline: p, pattern: pattern, skipSuffixes: cfg.SkipSuffixes, log: log}, nil
}

// Discover lists the documents under dir matching the runner's pattern.
func (r *Runner) Discover(dir string) ([]string, error) {
	base, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	// globbing the fs keeps meta characters in base literal
	matches, err := doublestar.Glob(os.DirFS(base), r.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("glob error: %w", err)
	}

	var files []string
	for _, m := range matches {
		if r.skipped(m) {
			continue
		}
		files = append(files, filepath.Join(base, filepath.FromSlash(m)))
	}
	return files, nil
}

func (r *Runner) skipped(path string) bool {
	for _, suffix := range r.skipSuffixes {
		if suffix != "" && strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

// Resolve expands paths into document files. Directories are searched with
// the runner's pattern; files are taken as given.
func (r *Runner) Resolve(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		found, err := r.Discover(p)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			r.log.Warn("no policy documents found", zap.String("dir", p), zap.String("pattern", r.pattern))
		}
		files = append(files, found...)
	}
	return files, nil
}

// RunDir applies mode to every discovered document in dir.
func (r *Runner) RunDir(ctx context.Context, dir string, mode Mode) (Summary, error) {
	return r.RunPaths(ctx, []string{dir}, mode)
}

// RunPaths applies mode to every document named by paths. A failing file is
// logged and counted as skipped; it never stops the batch.
func (r *Runner) RunPaths(ctx context.Context, paths []string, mode Mode) (Summary, error) {
	pass, err := r.pipeline.Pass(mode)
	if err != nil {
		return Summary{}, err
	}
	files, err := r.Resolve(paths)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{RunID: uuid.NewString()}
	log := r.log.With(zap.String("run_id", sum.RunID), zap.String("mode", string(mode)))

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res := r.runFile(path, pass)
		sum.Files = append(sum.Files, res)
		if res.Err != nil {
			sum.Skipped++
			log.Error("processing failed", zap.String("file", path), zap.Error(res.Err))
			continue
		}
		sum.Total.Add(res.Report)
		log.Info("processed",
			zap.String("file", path),
			zap.Int("changes", res.Report.Changes()),
			zap.Int("pending", res.Report.Pending),
			zap.Bool("written", res.Written))
	}
	return sum, nil
}

// RunFile applies mode to a single document.
func (r *Runner) RunFile(path string, mode Mode) FileResult {
	pass, err := r.pipeline.Pass(mode)
	if err != nil {
		return FileResult{Path: path, Err: err}
	}
	return r.runFile(path, pass)
}

func (r *Runner) runFile(path string, pass func(*policy.Document) Report) FileResult {
	res := FileResult{Path: path}
	loaded, err := policy.LoadDocument(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Hash = loaded.Hash

	res.Report = pass(loaded.Document)
	if res.Report.Changes() == 0 {
		return res
	}

	hash, err := policy.WriteDocument(path, loaded.Document)
	if err != nil {
		res.Err = err
		return res
	}
	res.Hash = hash
	res.Written = true
	return res
}
