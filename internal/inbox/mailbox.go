package inbox

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pimesh/messenger/internal/resultkind"
)

// nowFunc is overridden in tests.
var nowFunc = time.Now

// Mailbox owns one agent's inbox directory and the send/list/drain
// operations over it. A Mailbox value holds no in-process singleton
// state beyond its own directory path, matching the coordinator
// pattern used across the module.
type Mailbox struct {
	baseDir string
	owner   string
}

// New returns a Mailbox for owner rooted at baseDir (the messenger
// base directory; the inbox itself lives at baseDir/inbox/<owner>).
func New(baseDir, owner string) *Mailbox {
	return &Mailbox{baseDir: baseDir, owner: owner}
}

func (m *Mailbox) Dir() string {
	return filepath.Join(m.baseDir, "inbox", m.owner)
}

func dirFor(baseDir, name string) string {
	return filepath.Join(baseDir, "inbox", name)
}

func randSuffix() string {
	buf := make([]byte, 4)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

// Send writes one message file into the recipient's inbox directory.
// The filename is a timestamp-plus-random suffix (§4.3) so a sorted
// directory listing approximates send order.
func Send(baseDir, from, to, text, replyTo string) (*Message, error) {
	msg := &Message{
		ID:        uuid.NewString(),
		From:      from,
		To:        to,
		Text:      text,
		Timestamp: nowFunc(),
		ReplyTo:   replyTo,
	}

	dir := dirFor(baseDir, to)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, resultkind.New(resultkind.IOFailure, err.Error())
	}

	name := fmt.Sprintf("%020d-%s.json", msg.Timestamp.UnixNano(), randSuffix())
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return nil, resultkind.New(resultkind.IOFailure, err.Error())
	}
	// Direct write: inbox messages are single-writer files (§5), one
	// file per sender-send, so there is no read-back race to guard.
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return nil, resultkind.New(resultkind.IOFailure, err.Error())
	}
	return msg, nil
}

// Broadcast sends text to every name in recipients, skipping from
// itself. It is a thin convenience over Send (§4.3); the caller
// supplies the recipient list (typically peers scoped to the same
// working directory).
func Broadcast(baseDir, from string, recipients []string, text string) []error {
	var errs []error
	for _, to := range recipients {
		if to == from {
			continue
		}
		if _, err := Send(baseDir, from, to, text, ""); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// listFiles returns sorted .json message file paths in dir.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// Drain processes every pending message in the owner's inbox: for each
// file (in sorted/send order), read, deliver, then delete. Delete
// happens whether or not delivery succeeded, and even on a read/parse
// failure — a poison message is dropped after one attempt rather than
// retried forever (§4.3, §7). Returns the number of messages processed.
func (m *Mailbox) Drain(deliver func(Message)) (int, error) {
	files, err := listFiles(m.Dir())
	if err != nil {
		return 0, resultkind.New(resultkind.IOFailure, err.Error())
	}
	count := 0
	for _, path := range files {
		data, rerr := os.ReadFile(path)
		if rerr == nil {
			var msg Message
			if perr := json.Unmarshal(data, &msg); perr == nil {
				deliver(msg)
				_ = m.appendToArchive(msg) // best-effort lookback log (§12), never blocks delivery
			}
		}
		_ = os.Remove(path)
		count++
	}
	return count, nil
}

// Peek returns pending messages without deleting them, for inspection
// (e.g. a `status` action showing unread count).
func (m *Mailbox) Peek() ([]Message, error) {
	files, err := listFiles(m.Dir())
	if err != nil {
		return nil, resultkind.New(resultkind.IOFailure, err.Error())
	}
	var out []Message
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// Count returns the number of pending messages without parsing them.
func (m *Mailbox) Count() (int, error) {
	files, err := listFiles(m.Dir())
	if err != nil {
		return 0, resultkind.New(resultkind.IOFailure, err.Error())
	}
	return len(files), nil
}

// Remove deletes the inbox directory of name entirely. The
// coordinator's Leave uses it so no files linger under an abandoned
// name; Rename moves the directory with Migrate instead.
func Remove(baseDir, name string) error {
	err := os.RemoveAll(dirFor(baseDir, name))
	if err != nil && !os.IsNotExist(err) {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	return nil
}

// Migrate moves the inbox directory from oldName to newName, creating
// the destination if needed. Used by Rename once the old inbox has
// been drained (§ S3 scenario: "inbox/Old is removed; inbox/New
// exists and is empty").
func Migrate(baseDir, oldName, newName string) error {
	oldDir := dirFor(baseDir, oldName)
	newDir := dirFor(baseDir, newName)
	if err := os.MkdirAll(filepath.Dir(newDir), 0755); err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	if _, err := os.Stat(oldDir); os.IsNotExist(err) {
		return os.MkdirAll(newDir, 0755)
	}
	if err := os.Rename(oldDir, newDir); err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	return nil
}
