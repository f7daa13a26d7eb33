package reservations

import (
	"testing"

	"github.com/pimesh/messenger/internal/registry"
)

func TestMatchesExactAndPrefix(t *testing.T) {
	cases := []struct {
		pattern, path string
		want          bool
	}{
		{"src/main.go", "src/main.go", true},
		{"src", "src/main.go", true},
		{"src", "srcfoo/main.go", false},
		{"src/main.go", "src/main2.go", false},
	}
	for _, c := range cases {
		if got := Matches(c.pattern, c.path); got != c.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.pattern, c.path, got, c.want)
		}
	}
}

func TestCheckConflictExcludesSelf(t *testing.T) {
	peers := []*registry.Record{
		{Name: "alice", Cwd: "/work", Reservations: []registry.Reservation{{Pattern: "src", Reason: "refactor"}}},
		{Name: "bob", Reservations: []registry.Reservation{{Pattern: "docs"}}},
	}

	conflicts := CheckConflict(peers, "alice", "src/main.go")
	if len(conflicts) != 0 {
		t.Fatalf("self reservation should never conflict, got %+v", conflicts)
	}

	conflicts = CheckConflict(peers, "carol", "src/main.go")
	if len(conflicts) != 1 || conflicts[0].Agent != "alice" {
		t.Fatalf("expected one conflict from alice, got %+v", conflicts)
	}
	if msg := Message(conflicts); msg == "" {
		t.Fatal("expected non-empty conflict message")
	}
}
