package action

import (
	"testing"

	"github.com/pimesh/messenger/internal/config"
	"github.com/pimesh/messenger/internal/mesh"
	"github.com/pimesh/messenger/internal/resultkind"
)

func newCoordinator(t *testing.T, dir string) *mesh.Coordinator {
	t.Helper()
	return mesh.New(dir, "/work", config.Defaults(), nil, nil)
}

func TestJoinSendListDispatch(t *testing.T) {
	dir := t.TempDir()
	alice := newCoordinator(t, dir)
	bob := newCoordinator(t, dir)

	if res := Dispatch(alice, JoinRequest{ExplicitName: "alice", SessionID: "s1"}); res.Err != nil {
		t.Fatalf("join alice: %v", res.Err)
	}
	if res := Dispatch(bob, JoinRequest{ExplicitName: "bob", SessionID: "s2"}); res.Err != nil {
		t.Fatalf("join bob: %v", res.Err)
	}

	res := Dispatch(alice, ListRequest{ExcludeSelf: true})
	if res.Err != nil {
		t.Fatalf("list: %v", res.Err)
	}

	sendRes := Dispatch(bob, SendRequest{To: "alice", Text: "hi"})
	if sendRes.Err != nil {
		t.Fatalf("send: %v", sendRes.Err)
	}

	n, err := alice.Mailbox.Count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 pending message, got %d", n)
	}
}

func TestReserveThenConflict(t *testing.T) {
	dir := t.TempDir()
	alice := newCoordinator(t, dir)
	bob := newCoordinator(t, dir)
	Dispatch(alice, JoinRequest{ExplicitName: "alice", SessionID: "s1"})
	Dispatch(bob, JoinRequest{ExplicitName: "bob", SessionID: "s2"})

	res := Dispatch(alice, ReserveRequest{Pattern: "src", Reason: "refactor"})
	if res.Err != nil {
		t.Fatalf("reserve: %v", res.Err)
	}

	conflicts, err := CheckConflict(bob, "src/main.go")
	if err != nil {
		t.Fatalf("checkConflict: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].Agent != "alice" {
		t.Fatalf("expected conflict from alice, got %+v", conflicts)
	}
}

func TestClaimAlreadyHaveClaim(t *testing.T) {
	dir := t.TempDir()
	alice := newCoordinator(t, dir)
	Dispatch(alice, JoinRequest{ExplicitName: "alice", SessionID: "s1"})

	res := Dispatch(alice, ClaimRequest{Spec: "spec.md", TaskID: "T-1"})
	if res.Err != nil {
		t.Fatalf("first claim: %v", res.Err)
	}
	res = Dispatch(alice, ClaimRequest{Spec: "spec.md", TaskID: "T-2"})
	if !resultkind.Is(res.Err, resultkind.AlreadyHaveClaim) {
		t.Fatalf("expected already_have_claim, got %v", res.Err)
	}
}
