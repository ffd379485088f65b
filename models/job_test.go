package models

import (
	"testing"
)

func TestJobTransitions(t *testing.T) {
	j := NewJob("1", "hello world", Settings{})
	if j.Status != StatusPending {
		t.Fatalf("new job status = %q, want %q", j.Status, StatusPending)
	}

	if err := j.SetProcessing(); err != nil {
		t.Fatalf("SetProcessing: %v", err)
	}
	if j.Status != StatusProcessing {
		t.Fatalf("status = %q, want %q", j.Status, StatusProcessing)
	}

	// Re-delivery while processing is tolerated.
	if err := j.SetProcessing(); err != nil {
		t.Fatalf("SetProcessing twice: %v", err)
	}

	if err := j.MarkCompleted(Output{VideoURL: "u"}); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if j.Progress != 100 || j.CompletedAt == nil {
		t.Fatalf("completed job: progress=%d completedAt=%v", j.Progress, j.CompletedAt)
	}

	// No transition out of a terminal state.
	if err := j.SetProcessing(); err != ErrTerminalState {
		t.Fatalf("SetProcessing after completed = %v, want ErrTerminalState", err)
	}
	if err := j.MarkFailed("x"); err != ErrTerminalState {
		t.Fatalf("MarkFailed after completed = %v, want ErrTerminalState", err)
	}
	if err := j.ApplyProgress(50, "late"); err != ErrTerminalState {
		t.Fatalf("ApplyProgress after completed = %v, want ErrTerminalState", err)
	}
	if j.Progress != 100 {
		t.Fatalf("progress mutated after terminal state: %d", j.Progress)
	}
}

func TestJobFailedTerminal(t *testing.T) {
	j := NewJob("2", "text", Settings{})
	_ = j.SetProcessing()
	if err := j.MarkFailed("boom"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if j.Status != StatusFailed || j.Error != "boom" {
		t.Fatalf("failed job: status=%q error=%q", j.Status, j.Error)
	}
	if err := j.MarkCompleted(Output{}); err != ErrTerminalState {
		t.Fatalf("MarkCompleted after failed = %v, want ErrTerminalState", err)
	}
}

func TestApplyProgressMonotonic(t *testing.T) {
	j := NewJob("3", "text", Settings{})
	_ = j.SetProcessing()

	steps := []struct {
		pct  int
		want int
	}{
		{10, 10},
		{15, 15},
		{12, 15}, // regressions are ignored
		{40, 40},
		{120, 100}, // clamped
	}
	for _, s := range steps {
		if err := j.ApplyProgress(s.pct, "step"); err != nil {
			t.Fatalf("ApplyProgress(%d): %v", s.pct, err)
		}
		if j.Progress != s.want {
			t.Fatalf("ApplyProgress(%d): progress=%d, want %d", s.pct, j.Progress, s.want)
		}
	}
}
