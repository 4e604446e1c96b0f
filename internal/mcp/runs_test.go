package mcp

import (
	"context"
	"fmt"
	"testing"
	"time"

	"podracer/internal/report"
)

func TestRunStore_EvictsOldest(t *testing.T) {
	s := newRunStore(2)
	for i := 0; i < 3; i++ {
		s.put(fmt.Sprintf("run-%d", i), &report.Report{}, nil)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	if _, err := s.get("run-0"); err == nil {
		t.Error("run-0 should have been evicted")
	}
	if _, err := s.get("run-2"); err != nil {
		t.Errorf("get(run-2): %v", err)
	}
}

func TestRunStore_ReplaceKeepsPosition(t *testing.T) {
	s := newRunStore(2)
	s.put("a", &report.Report{ManifestID: "first"}, nil)
	s.put("a", &report.Report{ManifestID: "second"}, nil)
	s.put("b", &report.Report{}, nil)

	r, err := s.get("a")
	if err != nil {
		t.Fatalf("get(a): %v", err)
	}
	if r.report.ManifestID != "second" {
		t.Errorf("ManifestID = %q, want second", r.report.ManifestID)
	}
}

func TestRunStore_EmptyID(t *testing.T) {
	if _, err := newRunStore(1).get(""); err == nil {
		t.Error("expected error for empty run_id")
	}
}

func TestWatchParent_StopsWhenContextCanceled(t *testing.T) {
	old := WatchParentInterval
	WatchParentInterval = 10 * time.Millisecond
	defer func() { WatchParentInterval = old }()

	ctx, cancel := context.WithCancel(context.Background())
	WatchParent(ctx, cancel)
	cancel()

	// The goroutine must neither panic nor cancel anything else after exit.
	time.Sleep(50 * time.Millisecond)
	if ctx.Err() != context.Canceled {
		t.Errorf("ctx.Err() = %v, want Canceled", ctx.Err())
	}
}
