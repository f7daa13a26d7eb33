package inbox

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type recordingDeliverer struct {
	mu       sync.Mutex
	messages []Message
	notices  []string
}

func (d *recordingDeliverer) Deliver(msg Message) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, msg)
}

func (d *recordingDeliverer) Notify(kind, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notices = append(d.notices, kind+": "+text)
}

func TestSendAndDrain(t *testing.T) {
	dir := t.TempDir()
	if _, err := Send(dir, "alice", "bob", "hello", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := Send(dir, "alice", "bob", "again", ""); err != nil {
		t.Fatalf("send: %v", err)
	}

	mb := New(dir, "bob")
	count, err := mb.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pending, got %d", count)
	}

	rec := &recordingDeliverer{}
	n, err := mb.Drain(rec.Deliver)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 drained, got %d", n)
	}
	if len(rec.messages) != 2 {
		t.Fatalf("expected 2 delivered, got %d", len(rec.messages))
	}
	if rec.messages[0].Text != "hello" || rec.messages[1].Text != "again" {
		t.Fatalf("unexpected delivery order: %+v", rec.messages)
	}

	count, _ = mb.Count()
	if count != 0 {
		t.Fatalf("expected empty inbox after drain, got %d", count)
	}
}

func TestDrainDropsPoisonMessage(t *testing.T) {
	dir := t.TempDir()
	mb := New(dir, "carol")
	if err := writePoison(mb.Dir(), "0000000001-aaaa.json"); err != nil {
		t.Fatalf("seed poison: %v", err)
	}
	if _, err := Send(dir, "dave", "carol", "clean", ""); err != nil {
		t.Fatalf("send: %v", err)
	}

	rec := &recordingDeliverer{}
	n, err := mb.Drain(rec.Deliver)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected both files consumed (poison dropped), got %d", n)
	}
	if len(rec.messages) != 1 || rec.messages[0].Text != "clean" {
		t.Fatalf("expected only the clean message delivered, got %+v", rec.messages)
	}

	count, _ := mb.Count()
	if count != 0 {
		t.Fatalf("poison message should be removed, not retried, got %d remaining", count)
	}
}

func TestMigrate(t *testing.T) {
	dir := t.TempDir()
	if _, err := Send(dir, "x", "old", "hi", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	mb := New(dir, "old")
	if _, err := mb.Drain(func(Message) {}); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if err := Migrate(dir, "old", "new"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	newMb := New(dir, "new")
	count, err := newMb.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected empty migrated inbox, got %d", count)
	}
}

func writePoison(dir, name string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), []byte("{not json"), 0644)
}
