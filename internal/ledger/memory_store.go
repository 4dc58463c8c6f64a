package ledger

import (
	"sort"
	"sync"
)

type InMemoryStore struct {
	mu sync.Mutex

	runs  map[string]RunRecord
	files map[string][]FileRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		runs:  make(map[string]RunRecord),
		files: make(map[string][]FileRecord),
	}
}

// WithTx stages writes and applies them only when fn succeeds.
func (s *InMemoryStore) WithTx(fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	for _, r := range tx.runs {
		s.runs[r.RunID] = r
	}
	for _, f := range tx.files {
		s.files[f.RunID] = append(s.files[f.RunID], f)
	}
	return nil
}

type memTx struct {
	store *InMemoryStore
	runs  []RunRecord
	files []FileRecord
}

func (t *memTx) PutRun(run RunRecord) error {
	if _, ok := t.store.runs[run.RunID]; ok {
		return ErrDuplicateRun
	}
	for _, r := range t.runs {
		if r.RunID == run.RunID {
			return ErrDuplicateRun
		}
	}
	t.runs = append(t.runs, run)
	return nil
}

func (t *memTx) PutFile(file FileRecord) error {
	t.files = append(t.files, file)
	return nil
}

func (s *InMemoryStore) GetRun(runID string) (RunRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[runID]
	return run, ok
}

func (s *InMemoryStore) ListRuns(limit int) ([]RunRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RunRecord, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt != out[j].StartedAt {
			return out[i].StartedAt > out[j].StartedAt
		}
		return out[i].RunID < out[j].RunID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) ListFiles(runID string) ([]FileRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]FileRecord(nil), s.files[runID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
