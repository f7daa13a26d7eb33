package swarm

import (
	"os"
	"testing"

	"github.com/pimesh/messenger/internal/resultkind"
)

func alwaysFound(sessionID string) sessionLookup {
	return func(agent string) (string, bool) { return sessionID, true }
}

func TestClaimSingleClaimRule(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	lookup := alwaysFound("s1")

	if _, err := store.Claim(lookup, "spec.md", "T-1", "alice", "s1", os.Getpid(), ""); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	_, err := store.Claim(lookup, "spec.md", "T-2", "alice", "s1", os.Getpid(), "")
	if !resultkind.Is(err, resultkind.AlreadyHaveClaim) {
		t.Fatalf("expected already_have_claim, got %v", err)
	}
}

func TestClaimContentionAndCompleteDurability(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	lookup := alwaysFound("s1")

	if _, err := store.Claim(lookup, "spec.md", "T-7", "alice", "s1", os.Getpid(), ""); err != nil {
		t.Fatalf("claim: %v", err)
	}

	bobLookup := func(agent string) (string, bool) {
		if agent == "alice" {
			return "s1", true
		}
		return "s2", true
	}
	_, err := store.Claim(bobLookup, "spec.md", "T-7", "bob", "s2", os.Getpid()+1, "")
	if !resultkind.Is(err, resultkind.AlreadyClaimed) {
		t.Fatalf("expected already_claimed, got %v", err)
	}

	if err := store.Complete(lookup, "spec.md", "T-7", "alice", "done"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// A subsequent claim on the same (spec, taskId) must report
	// already_completed, not already_claimed (S5).
	_, err = store.Claim(bobLookup, "spec.md", "T-7", "bob", "s2", os.Getpid()+1, "")
	if !resultkind.Is(err, resultkind.AlreadyCompleted) {
		t.Fatalf("expected already_completed, got %v", err)
	}
}

func TestUnclaimWrongAgent(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)
	lookup := alwaysFound("s1")

	if _, err := store.Claim(lookup, "spec.md", "T-1", "alice", "s1", os.Getpid(), ""); err != nil {
		t.Fatalf("claim: %v", err)
	}
	err := store.Unclaim(lookup, "spec.md", "T-1", "bob")
	if !resultkind.Is(err, resultkind.NotYourClaim) {
		t.Fatalf("expected not_your_claim, got %v", err)
	}
	if err := store.Unclaim(lookup, "spec.md", "T-1", "alice"); err != nil {
		t.Fatalf("unclaim by owner: %v", err)
	}
}

func TestStaleClaimPurgedByDeadPID(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	deadLookup := func(agent string) (string, bool) { return "s1", true }
	if _, err := store.Claim(deadLookup, "spec.md", "T-9", "ghost", "s1", 999999, ""); err != nil {
		t.Fatalf("seed claim: %v", err)
	}

	claims, err := store.Claims(alwaysFound("s1"))
	if err != nil {
		t.Fatalf("claims: %v", err)
	}
	if _, ok := claims["spec.md"]; ok {
		t.Fatalf("expected stale claim to be purged, got %+v", claims)
	}
}
