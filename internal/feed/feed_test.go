package feed

import (
	"testing"
)

func TestAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	f := New(dir)

	if err := f.Append("alice", "join", nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.Append("alice", "send", map[string]any{"to": "bob"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Kind != "join" || events[1].Kind != "send" {
		t.Fatalf("unexpected order: %+v", events)
	}
}

func TestPruneKeepsMostRecent(t *testing.T) {
	dir := t.TempDir()
	f := New(dir)

	for i := 0; i < 10; i++ {
		if err := f.Append("agent", "tick", map[string]any{"i": i}); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	if err := f.Prune(3); err != nil {
		t.Fatalf("prune: %v", err)
	}

	events, err := f.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events after prune, got %d", len(events))
	}
	last := events[len(events)-1].Fields["i"]
	if last != float64(9) {
		t.Fatalf("expected most recent event preserved, got %v", last)
	}
}

func TestReadMissingFile(t *testing.T) {
	dir := t.TempDir()
	f := New(dir)
	events, err := f.Read()
	if err != nil {
		t.Fatalf("read on missing file should not error: %v", err)
	}
	if events != nil {
		t.Fatalf("expected nil events, got %v", events)
	}
}

func TestPruneNoop(t *testing.T) {
	dir := t.TempDir()
	f := New(dir)
	if err := f.Append("a", "join", nil); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := f.Prune(0); err != nil {
		t.Fatalf("prune(0): %v", err)
	}
	events, _ := f.Read()
	if len(events) != 1 {
		t.Fatalf("prune(0) should be a no-op, got %d events", len(events))
	}
}
