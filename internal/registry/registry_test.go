package registry

import (
	"os"
	"testing"
)

type fakeFeed struct {
	events []string
}

func (f *fakeFeed) Append(agent, kind string, fields map[string]any) error {
	f.events = append(f.events, agent+":"+kind)
	return nil
}

func TestJoinExplicitName(t *testing.T) {
	dir := t.TempDir()
	feed := &fakeFeed{}
	reg := New(dir, feed)

	rec, err := reg.Join(JoinOptions{Name: "alice", PID: os.Getpid(), SessionID: "s1", Cwd: "/tmp"})
	if err != nil {
		t.Fatalf("Join failed: %v", err)
	}
	if rec.Name != "alice" {
		t.Fatalf("expected name alice, got %s", rec.Name)
	}
	if reg.SelfName() != "alice" {
		t.Fatalf("SelfName not set")
	}
	if len(feed.events) != 1 || feed.events[0] != "alice:join" {
		t.Fatalf("expected join feed event, got %v", feed.events)
	}
}

func TestJoinExplicitNameLiveCollision(t *testing.T) {
	dir := t.TempDir()
	reg1 := New(dir, nil)
	if _, err := reg1.Join(JoinOptions{Name: "bob", PID: os.Getpid(), SessionID: "s1"}); err != nil {
		t.Fatalf("first join failed: %v", err)
	}

	reg2 := New(dir, nil)
	_, err := reg2.Join(JoinOptions{Name: "bob", PID: os.Getpid() + 1, SessionID: "s2"})
	if err == nil {
		t.Fatal("expected name_taken error")
	}
}

func TestJoinAutoNameSuffix(t *testing.T) {
	dir := t.TempDir()
	reg1 := New(dir, nil)
	if _, err := reg1.Join(JoinOptions{Base: "scout", PID: os.Getpid(), SessionID: "s1"}); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if reg1.SelfName() != "scout" {
		t.Fatalf("expected scout, got %s", reg1.SelfName())
	}

	reg2 := New(dir, nil)
	if _, err := reg2.Join(JoinOptions{Base: "scout", PID: os.Getpid(), SessionID: "s2"}); err != nil {
		t.Fatalf("second join: %v", err)
	}
	if reg2.SelfName() != "scout2" {
		t.Fatalf("expected scout2, got %s", reg2.SelfName())
	}
}

func TestRenameAndLeave(t *testing.T) {
	dir := t.TempDir()
	feed := &fakeFeed{}
	reg := New(dir, feed)
	if _, err := reg.Join(JoinOptions{Name: "carol", PID: os.Getpid(), SessionID: "s1"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	res, err := reg.Rename("carol2")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if res.NewName != "carol2" {
		t.Fatalf("unexpected rename result: %+v", res)
	}
	if _, err := os.Stat(reg.path("carol")); !os.IsNotExist(err) {
		t.Fatalf("old record should be gone")
	}

	if err := reg.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, err := os.Stat(reg.path("carol2")); !os.IsNotExist(err) {
		t.Fatalf("record should be removed after leave")
	}
}

func TestListEvictsDeadPID(t *testing.T) {
	dir := t.TempDir()
	feed := &fakeFeed{}
	reg := New(dir, feed)

	// Write a record for an obviously dead PID directly, bypassing Join's
	// liveness checks, to simulate a crashed agent.
	dead := &Record{Name: "ghost", PID: 999999, SessionID: "s1"}
	if err := writeRecord(reg.path("ghost"), dead); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	live, err := reg.Join(JoinOptions{Name: "watcher", PID: os.Getpid(), SessionID: "s2"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	records, err := reg.List(true, false, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, rec := range records {
		if rec.Name == "ghost" {
			t.Fatal("dead record should have been evicted")
		}
	}
	_ = live

	found := false
	for _, ev := range feed.events {
		if ev == "ghost:leave" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected ghost:leave feed event, got %v", feed.events)
	}
}

func TestListScopeToCwd(t *testing.T) {
	dir := t.TempDir()
	reg := New(dir, nil)
	if _, err := reg.Join(JoinOptions{Name: "a", PID: os.Getpid(), SessionID: "s1", Cwd: "/work/a"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	reg2 := New(dir, nil)
	if _, err := reg2.Join(JoinOptions{Name: "b", PID: os.Getpid(), SessionID: "s2", Cwd: "/work/b"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	records, err := reg.List(false, true, "/work/a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(records) != 1 || records[0].Name != "a" {
		t.Fatalf("expected only 'a' scoped to /work/a, got %+v", records)
	}
}
