package crewstore

import (
	"testing"
)

func TestNextTaskIDIncreases(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	id, err := s.NextTaskID()
	if err != nil || id != "task-1" {
		t.Fatalf("expected task-1, got %q err=%v", id, err)
	}

	if err := s.SaveTask(&Task{ID: "task-1", Title: "first", Status: StatusTodo}); err != nil {
		t.Fatalf("save: %v", err)
	}

	id, err = s.NextTaskID()
	if err != nil || id != "task-2" {
		t.Fatalf("expected task-2, got %q err=%v", id, err)
	}
}

func TestSaveTaskInvariants(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)

	err := s.SaveTask(&Task{ID: "task-1", Status: StatusDone})
	if err == nil {
		t.Fatal("expected error: done task requires summary")
	}

	err = s.SaveTask(&Task{ID: "task-1", Status: StatusBlocked})
	if err == nil {
		t.Fatal("expected error: blocked task requires blockedReason")
	}

	if err := s.SaveTask(&Task{ID: "task-1", Status: StatusTodo, AttemptCount: 2}); err != nil {
		t.Fatalf("initial save: %v", err)
	}
	if err := s.SaveTask(&Task{ID: "task-1", Status: StatusTodo, AttemptCount: 1}); err == nil {
		t.Fatal("expected error: attemptCount must not decrease")
	}
}

func TestValidateGraphDetectsCycle(t *testing.T) {
	tasks := []*Task{
		{ID: "task-1", DependsOn: []string{"task-2"}},
		{ID: "task-2", DependsOn: []string{"task-1"}},
	}
	if err := ValidateGraph(tasks); err == nil {
		t.Fatal("expected cycle_detected error")
	}
}

func TestValidateGraphUnknownDependency(t *testing.T) {
	tasks := []*Task{
		{ID: "task-1", DependsOn: []string{"task-99"}},
	}
	if err := ValidateGraph(tasks); err == nil {
		t.Fatal("expected dependency_unmet error")
	}
}

func TestValidateGraphAcceptsDiamond(t *testing.T) {
	tasks := []*Task{
		{ID: "task-1"},
		{ID: "task-2", DependsOn: []string{"task-1"}},
		{ID: "task-3", DependsOn: []string{"task-1"}},
		{ID: "task-4", DependsOn: []string{"task-2", "task-3"}},
	}
	if err := ValidateGraph(tasks); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestParseVerdict(t *testing.T) {
	md := `# Review

Verdict: SHIP

This change looks correct and well tested.

## Issues

- none

## Suggestions

- consider adding a benchmark
`
	rv := ParseVerdict(md)
	if rv.Verdict != VerdictShip {
		t.Fatalf("expected SHIP, got %s", rv.Verdict)
	}
	if rv.Summary == "" {
		t.Fatal("expected non-empty summary")
	}
	if len(rv.Suggestions) != 1 || rv.Suggestions[0] != "consider adding a benchmark" {
		t.Fatalf("unexpected suggestions: %+v", rv.Suggestions)
	}
}

func TestParseVerdictMalformedDefaultsNeedsWork(t *testing.T) {
	rv := ParseVerdict("not a review at all")
	if rv.Verdict != VerdictNeedsWork {
		t.Fatalf("expected NEEDS_WORK default, got %s", rv.Verdict)
	}
	if len(rv.Issues) != 0 {
		t.Fatalf("expected no issues, got %+v", rv.Issues)
	}
}
