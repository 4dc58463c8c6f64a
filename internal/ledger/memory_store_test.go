package ledger

import (
	"errors"
	"testing"
)

func sampleRun(id, startedAt string) RunRecord {
	return RunRecord{RunID: id, Mode: "run", StartedAt: startedAt, Files: 2, Counts: Counts{Annotated: 3, Resolved: 2, Unresolved: 1, Pending: 1}}
}

func TestInMemoryStoreRecord(t *testing.T) {
	s := NewInMemoryStore()
	files := []FileRecord{
		{Path: "b.yml", Hash: "sha256:b", Written: true, Counts: Counts{Resolved: 2}},
		{Path: "a.yml", Hash: "sha256:a"},
	}
	if err := Record(s, sampleRun("r1", "2026-01-01T00:00:00Z"), files); err != nil {
		t.Fatalf("record: %v", err)
	}

	run, ok := s.GetRun("r1")
	if !ok || run.Resolved != 2 || run.Files != 2 {
		t.Fatalf("get run mismatch: ok=%v run=%+v", ok, run)
	}
	got, err := s.ListFiles("r1")
	if err != nil {
		t.Fatalf("list files: %v", err)
	}
	if len(got) != 2 || got[0].Path != "a.yml" || got[1].RunID != "r1" {
		t.Fatalf("unexpected files: %+v", got)
	}
}

func TestInMemoryStoreRejectsDuplicateRun(t *testing.T) {
	s := NewInMemoryStore()
	if err := Record(s, sampleRun("r1", "2026-01-01T00:00:00Z"), nil); err != nil {
		t.Fatalf("record: %v", err)
	}
	err := Record(s, sampleRun("r1", "2026-01-02T00:00:00Z"), []FileRecord{{Path: "x.yml"}})
	if !errors.Is(err, ErrDuplicateRun) {
		t.Fatalf("expected ErrDuplicateRun, got %v", err)
	}
	// failed transaction leaves nothing behind
	if files, _ := s.ListFiles("r1"); len(files) != 0 {
		t.Fatalf("expected no files, got %+v", files)
	}
}

func TestInMemoryStoreListRuns(t *testing.T) {
	s := NewInMemoryStore()
	for _, r := range []RunRecord{
		sampleRun("old", "2026-01-01T00:00:00Z"),
		sampleRun("new", "2026-03-01T00:00:00Z"),
		sampleRun("mid", "2026-02-01T00:00:00Z"),
	} {
		if err := Record(s, r, nil); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != "new" || runs[1].RunID != "mid" {
		t.Fatalf("unexpected order: %+v", runs)
	}
}
