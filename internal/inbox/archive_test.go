package inbox

import "testing"

func TestDrainArchivesDeliveredMessages(t *testing.T) {
	dir := t.TempDir()
	if _, err := Send(dir, "alice", "bob", "hello there", ""); err != nil {
		t.Fatalf("send: %v", err)
	}
	mb := New(dir, "bob")
	var delivered []Message
	if _, err := mb.Drain(func(m Message) { delivered = append(delivered, m) }); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(delivered) != 1 {
		t.Fatalf("expected 1 delivered message, got %d", len(delivered))
	}

	archived, err := mb.ListArchived()
	if err != nil {
		t.Fatalf("listArchived: %v", err)
	}
	if len(archived) != 1 || archived[0].Text != "hello there" {
		t.Fatalf("unexpected archive contents: %+v", archived)
	}
}

func TestSearchMatchesTextAndFrom(t *testing.T) {
	dir := t.TempDir()
	Send(dir, "alice", "bob", "the build is green", "")
	Send(dir, "carol", "bob", "unrelated message", "")
	mb := New(dir, "bob")

	results, err := mb.Search(SearchOptions{Query: "build"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].From != "alice" {
		t.Fatalf("unexpected search results: %+v", results)
	}

	none, err := mb.Search(SearchOptions{Query: "build", From: "carol"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches combining from+query, got %+v", none)
	}
}

func TestPurgeArchiveRemovesAll(t *testing.T) {
	dir := t.TempDir()
	Send(dir, "alice", "bob", "one", "")
	mb := New(dir, "bob")
	mb.Drain(func(Message) {})

	n, err := mb.PurgeArchive(0)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 purged, got %d", n)
	}
	archived, _ := mb.ListArchived()
	if len(archived) != 0 {
		t.Fatalf("expected empty archive, got %+v", archived)
	}
}
