package mcp

import (
	"fmt"
	"sync"

	"podracer/internal/report"
)

type run struct {
	report   *report.Report
	keywords map[string]int
}

// runStore keeps the most recent finished audits, evicting the oldest once
// limit is reached.
type runStore struct {
	mu    sync.Mutex
	limit int
	order []string
	runs  map[string]*run
}

func newRunStore(limit int) *runStore {
	if limit < 1 {
		limit = 1
	}
	return &runStore{limit: limit, runs: make(map[string]*run)}
}

func (s *runStore) put(id string, rep *report.Report, keywords map[string]int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[id]; !ok {
		s.order = append(s.order, id)
	}
	s.runs[id] = &run{report: rep, keywords: keywords}
	for len(s.order) > s.limit {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *runStore) get(id string) (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		return nil, fmt.Errorf("run_id is required (call audit_manifest first)")
	}
	r, ok := s.runs[id]
	if !ok {
		return nil, fmt.Errorf("unknown run_id %s (only the last %d runs are kept)", id, s.limit)
	}
	return r, nil
}

// Len returns the number of runs currently kept.
func (s *runStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs)
}
