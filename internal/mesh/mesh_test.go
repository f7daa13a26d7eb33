package mesh

import (
	"testing"

	"github.com/pimesh/messenger/internal/config"
	"github.com/pimesh/messenger/internal/inbox"
)

type recordingHandler struct {
	messages []inbox.Message
}

func (h *recordingHandler) HandleMessage(msg inbox.Message) {
	h.messages = append(h.messages, msg)
}

type recordingNotifier struct {
	notices []string
}

func (n *recordingNotifier) Notify(kind, text string) {
	n.notices = append(n.notices, kind+": "+text)
}

func TestJoinRenameSendDrain(t *testing.T) {
	dir := t.TempDir()
	handler := &recordingHandler{}
	notifier := &recordingNotifier{}

	alice := New(dir, "/work", config.Defaults(), handler, notifier)
	if _, err := alice.Join(JoinParams{ExplicitName: "alice", SessionID: "s1"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	bob := New(dir, "/work", config.Defaults(), handler, notifier)
	if _, err := bob.Join(JoinParams{ExplicitName: "bob", SessionID: "s2"}); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := bob.Send("alice", "hello alice", ""); err != nil {
		t.Fatalf("send: %v", err)
	}

	n, err := alice.Mailbox.Drain(alice.Deliver)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 message drained, got %d", n)
	}
	if len(handler.messages) != 1 || handler.messages[0].Text != "hello alice" {
		t.Fatalf("expected delivery to handler, got %+v", handler.messages)
	}

	if _, err := alice.Rename("alice2"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if alice.Registry.SelfName() != "alice2" {
		t.Fatalf("expected renamed to alice2, got %s", alice.Registry.SelfName())
	}

	if err := alice.Leave(); err != nil {
		t.Fatalf("leave: %v", err)
	}
}
