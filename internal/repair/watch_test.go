package repair

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/davidahmann/fleetpolicy/internal/logging"
	"github.com/davidahmann/fleetpolicy/internal/query"
)

func TestWatchRepairsChangedDocuments(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	existing := filepath.Join(dir, "a-fleet-policies.yml")
	writeDoc(t, existing, entry("Disable Siri", "", query.Placeholder))

	tl := logging.NewTestLogger()
	r := newRunner(t, RunnerConfig{Logger: tl.Logger})

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan FileResult, 16)
	done := make(chan error, 1)
	go func() {
		done <- r.Watch(ctx, dir, ModeRun, 20*time.Millisecond, func(res FileResult) { results <- res })
	}()
	require.Eventually(t, func() bool { return tl.FilterMessage("watching").Len() == 1 }, 2*time.Second, 10*time.Millisecond)
	tl.AssertField(t, "watching", "documents", int64(1))

	changed := filepath.Join(dir, "b-fleet-policies.yml")
	writeDoc(t, changed, entry("Audit Log Files Must Be Owned By Root", "", query.Placeholder))

	var res FileResult
	select {
	case res = <-results:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected a result for the new document")
	}
	require.NoError(t, res.Err)
	assert.Equal(t, changed, res.Path)
	assert.True(t, res.Written)
	assert.Equal(t, 1, res.Report.Resolved)

	// our own write must not trigger another pass
	assert.Never(t, func() bool { return len(results) > 0 }, 200*time.Millisecond, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatalf("watch did not stop on cancel")
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	r := newRunner(t, RunnerConfig{SkipSuffixes: []string{".bak"}})
	base := t.TempDir()
	assert.True(t, r.matches(base, filepath.Join(base, "x-fleet-policies.yml")))
	assert.False(t, r.matches(base, filepath.Join(base, "notes.txt")))
	assert.False(t, r.matches(base, filepath.Join(base, ".x-fleet-policies.yml.123.tmp")))
	assert.False(t, r.matches(base, filepath.Join(filepath.Dir(base), "x-fleet-policies.yml")))
}

func TestWatchRejectsUnknownMode(t *testing.T) {
	r := newRunner(t, RunnerConfig{})
	err := r.Watch(context.Background(), t.TempDir(), Mode("bogus"), 0, nil)
	assert.ErrorIs(t, err, ErrUnknownMode)
}
