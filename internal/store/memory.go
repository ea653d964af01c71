package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu   sync.Mutex
	runs map[string][]RunResult // instance -> runs, newest first
}

func NewMemory() *Memory {
	return &Memory{runs: map[string][]RunResult{}}
}

func (m *Memory) SaveRunResult(ctx context.Context, res RunResult) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	m.runs[res.Instance] = append([]RunResult{res}, m.runs[res.Instance]...)
	return res.ID, nil
}

func (m *Memory) ListRunResults(ctx context.Context, instance string, limit int) ([]RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	runs := m.runs[instance]
	if len(runs) > limit {
		runs = runs[:limit]
	}
	out := make([]RunResult, len(runs))
	copy(out, runs)
	return out, nil
}

func (m *Memory) BestRunResult(ctx context.Context, instance string) (RunResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := m.runs[instance]
	if len(runs) == 0 {
		return RunResult{}, ErrNotFound
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if r.Cost < best.Cost {
			best = r
		}
	}
	return best, nil
}

func (m *Memory) Close() error { return nil }

// Instances lists the known instance names, sorted. Test helper surface.
func (m *Memory) Instances() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.runs))
	for name := range m.runs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
