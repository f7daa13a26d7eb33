package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pimesh/messenger/internal/liveness"
	"github.com/pimesh/messenger/internal/resultkind"
)

// FeedWriter is the minimal interface the registry needs to record
// join/leave events. internal/feed's Feed satisfies it.
type FeedWriter interface {
	Append(agent, kind string, fields map[string]any) error
}

var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName enforces §6: letters, digits, underscore, hyphen;
// non-empty; reasonable length.
func ValidateName(name string) error {
	if name == "" {
		return resultkind.New(resultkind.InvalidName, "name must not be empty")
	}
	if len(name) > 64 {
		return resultkind.New(resultkind.InvalidName, "name too long")
	}
	if !nameRe.MatchString(name) {
		return resultkind.New(resultkind.InvalidName, "name must contain only letters, digits, underscore, hyphen")
	}
	return nil
}

// Registry manages one agent's view of the presence directory rooted at
// baseDir/registry. A Registry value is the explicit coordinator object
// described in spec §9: no process-wide singleton, so tests can build
// independent instances against temp directories.
type Registry struct {
	baseDir  string
	selfName string
	pid      int
	feed     FeedWriter
	cache    cache
}

// New creates a Registry rooted at baseDir (the messenger base
// directory, not the registry subdirectory). selfName and pid identify
// the owning process once joined; they may be empty before Join.
func New(baseDir string, feed FeedWriter) *Registry {
	return &Registry{baseDir: baseDir, feed: feed}
}

func (r *Registry) dir() string {
	return filepath.Join(r.baseDir, "registry")
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.dir(), name+".json")
}

// SelfName returns the name this Registry joined as, or "" if unjoined.
func (r *Registry) SelfName() string {
	return r.selfName
}

func (r *Registry) logFeed(agent, kind string, fields map[string]any) {
	if r.feed == nil {
		return
	}
	_ = r.feed.Append(agent, kind, fields) // feed is advisory, not durable (§4.6)
}

// readRecord loads and parses a single registry file. A malformed file
// is treated as a poison registration and skipped by callers, never a
// fatal error (§7).
func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func writeRecord(path string, rec *Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	// Direct write, not write-temp-then-rename: registrations are
	// single-writer files (§5), and Join needs to read back the exact
	// bytes it just wrote to detect whether a concurrent writer won the
	// name race (§4.2), which a rename would obscure.
	return os.WriteFile(path, data, 0644)
}

// JoinOptions configures Join.
type JoinOptions struct {
	// Name is an explicit requested name (e.g. from PI_AGENT_NAME). If
	// empty, Base is used as an auto-generated base name with numeric
	// suffix probing.
	Name string
	Base string

	PID       int
	SessionID string
	Cwd       string
	Model     string
	GitBranch string
	IsHuman   bool
}

const maxAutoSuffix = 99
const maxAutoRetries = 3

// Join registers the calling agent, returning the Record it wrote.
func (r *Registry) Join(opts JoinOptions) (*Record, error) {
	if opts.Name != "" {
		rec, err := r.joinExplicit(opts)
		if err != nil {
			return nil, err
		}
		r.selfName = rec.Name
		r.pid = rec.PID
		r.cache.invalidate()
		r.logFeed(rec.Name, "join", nil)
		return rec, nil
	}

	if opts.Base == "" {
		return nil, resultkind.New(resultkind.InvalidName, "join requires Name or Base")
	}
	if err := ValidateName(opts.Base); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < maxAutoRetries; attempt++ {
		name, err := r.firstAvailableName(opts.Base)
		if err != nil {
			return nil, err
		}
		o := opts
		o.Name = name
		rec, err := r.joinExplicitNoOverwrite(o)
		if err != nil {
			if resultkind.Is(err, resultkind.RaceLost) {
				lastErr = err
				continue
			}
			return nil, err
		}
		r.selfName = rec.Name
		r.pid = rec.PID
		r.cache.invalidate()
		r.logFeed(rec.Name, "join", nil)
		return rec, nil
	}
	if lastErr == nil {
		lastErr = resultkind.New(resultkind.RaceLost, "exhausted auto-generated name attempts")
	}
	return nil, lastErr
}

// firstAvailableName probes base, base2, base3, ... up to 99, skipping
// records owned by a live PID.
func (r *Registry) firstAvailableName(base string) (string, error) {
	for i := 0; i < maxAutoSuffix; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s%d", base, i+1)
		}
		rec, err := readRecord(r.path(name))
		if err != nil {
			if os.IsNotExist(err) {
				return name, nil
			}
			// Unreadable/corrupt file: treat as available, same as a
			// poison registration skipped during list (§7).
			return name, nil
		}
		if !liveness.IsAlive(rec.PID) {
			return name, nil
		}
	}
	return "", resultkind.New(resultkind.NameTaken, "no available name for base "+base)
}

// joinExplicit handles a caller-requested explicit name: a live
// collision fails, a dead collision overwrites.
func (r *Registry) joinExplicit(opts JoinOptions) (*Record, error) {
	if err := ValidateName(opts.Name); err != nil {
		return nil, err
	}
	existing, err := readRecord(r.path(opts.Name))
	if err == nil && liveness.IsAlive(existing.PID) && existing.PID != opts.PID {
		return nil, resultkind.New(resultkind.NameTaken, "name "+opts.Name+" is held by a live agent")
	}
	return r.writeAndVerify(opts)
}

// joinExplicitNoOverwrite is used by the auto-name probe loop: it must
// not clobber a record another process just wrote for the same probed
// name, so it re-validates availability and then writes-and-verifies.
func (r *Registry) joinExplicitNoOverwrite(opts JoinOptions) (*Record, error) {
	if existing, err := readRecord(r.path(opts.Name)); err == nil && existing.PID != opts.PID && liveness.IsAlive(existing.PID) {
		return nil, resultkind.New(resultkind.RaceLost, "name "+opts.Name+" was taken before it could be written")
	}
	return r.writeAndVerify(opts)
}

// writeAndVerify implements the join-atomicity protocol from §4.2:
// write the record, then read it back and confirm the PID matches. If
// not, another process won the race for this name.
func (r *Registry) writeAndVerify(opts JoinOptions) (*Record, error) {
	now := timeNow()
	rec := &Record{
		Name:      opts.Name,
		PID:       opts.PID,
		SessionID: opts.SessionID,
		Cwd:       opts.Cwd,
		Model:     opts.Model,
		StartedAt: now,
		GitBranch: opts.GitBranch,
		IsHuman:   opts.IsHuman,
		Activity:  now,
	}

	path := r.path(opts.Name)
	if err := writeRecord(path, rec); err != nil {
		return nil, resultkind.New(resultkind.IOFailure, "writing registration: "+err.Error())
	}

	verify, err := readRecord(path)
	if err != nil {
		// Read-back failed at the I/O level: remove the file if it
		// still contains our PID, to avoid leaving an orphan record.
		if cur, rerr := readRecord(path); rerr == nil && cur.PID == opts.PID {
			_ = os.Remove(path)
		}
		return nil, resultkind.New(resultkind.IOFailure, "verifying registration: "+err.Error())
	}
	if verify.PID != opts.PID || verify.SessionID != opts.SessionID {
		return nil, resultkind.New(resultkind.RaceLost, "another process won the name race for "+opts.Name)
	}
	return rec, nil
}

// UpdateOptions carries the fields UpdateActivity may refresh.
type UpdateOptions struct {
	Reservations  []Reservation
	Spec          *string
	Session       *SessionCounters
	StatusMessage *string
}

// UpdateActivity writes the caller's current reservations, spec,
// session counters, activity timestamp, and status to disk. Callers
// wanting write coalescing should route calls through a Debouncer
// (see debounce.go); UpdateActivity itself always writes immediately.
func (r *Registry) UpdateActivity(opts UpdateOptions) error {
	if r.selfName == "" {
		return resultkind.New(resultkind.NotRegistered, "not registered")
	}
	path := r.path(r.selfName)
	rec, err := readRecord(path)
	if err != nil {
		return resultkind.New(resultkind.NotRegistered, "registration missing: "+err.Error())
	}
	rec.Activity = timeNow()
	if opts.Reservations != nil {
		rec.Reservations = opts.Reservations
	}
	if opts.Spec != nil {
		rec.Spec = *opts.Spec
	}
	if opts.Session != nil {
		rec.Session = *opts.Session
	}
	if opts.StatusMessage != nil {
		rec.StatusMessage = *opts.StatusMessage
	}
	if err := writeRecord(path, rec); err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	r.cache.invalidate()
	return nil
}

// List returns all live agents, evicting and logging a leave event for
// any record whose owning PID is dead. Results are cached for 1s keyed
// by (self-name, scopeToCwd, cwd).
func (r *Registry) List(excludeSelf bool, scopeToCwd bool, cwd string) ([]*Record, error) {
	key := cacheKey{selfName: r.selfName, scopeToCwd: scopeToCwd, cwd: cwd}
	if cached, ok := r.cache.get(key); ok {
		return filterExclude(cached, r.selfName, excludeSelf), nil
	}

	entries, err := os.ReadDir(r.dir())
	if err != nil {
		if os.IsNotExist(err) {
			r.cache.set(key, nil)
			return nil, nil
		}
		return nil, resultkind.New(resultkind.IOFailure, err.Error())
	}

	var live []*Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(r.dir(), entry.Name())
		rec, err := readRecord(path)
		if err != nil {
			continue // poison registration: skip (§7)
		}
		if !liveness.IsAlive(rec.PID) {
			_ = os.Remove(path)
			r.logFeed(rec.Name, "leave", map[string]any{"reason": "dead_pid"})
			continue
		}
		if scopeToCwd && cwd != "" && rec.Cwd != cwd {
			continue
		}
		live = append(live, rec)
	}

	r.cache.set(key, live)
	return filterExclude(live, r.selfName, excludeSelf), nil
}

func filterExclude(records []*Record, selfName string, excludeSelf bool) []*Record {
	if !excludeSelf || selfName == "" {
		return records
	}
	out := make([]*Record, 0, len(records))
	for _, rec := range records {
		if rec.Name == selfName {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// RenameResult reports the old and new names of a successful rename;
// failures are returned as a *resultkind.Error instead.
type RenameResult struct {
	OldName string
	NewName string
}

// Rename renames the calling agent. The caller is responsible for
// draining its own inbox before calling Rename (§4.2): this keeps the
// registry package free of an inbox dependency, avoiding an import
// cycle, while preserving the documented ordering guarantee.
func (r *Registry) Rename(newName string) (*RenameResult, error) {
	if r.selfName == "" {
		return nil, resultkind.New(resultkind.NotRegistered, "not registered")
	}
	if newName == r.selfName {
		return nil, resultkind.New(resultkind.SameName, "new name equals current name")
	}
	if err := ValidateName(newName); err != nil {
		return nil, err
	}

	old, err := readRecord(r.path(r.selfName))
	if err != nil {
		return nil, resultkind.New(resultkind.NotRegistered, err.Error())
	}

	if existing, err := readRecord(r.path(newName)); err == nil && liveness.IsAlive(existing.PID) {
		return nil, resultkind.New(resultkind.NameTaken, "name "+newName+" is held by a live agent")
	}

	old.Name = newName
	newPath := r.path(newName)
	if err := writeRecord(newPath, old); err != nil {
		return nil, resultkind.New(resultkind.IOFailure, err.Error())
	}
	verify, err := readRecord(newPath)
	if err != nil || verify.PID != old.PID || verify.SessionID != old.SessionID {
		_ = os.Remove(newPath)
		return nil, resultkind.New(resultkind.RaceLost, "rename race lost for "+newName)
	}

	oldPath := r.path(r.selfName)
	_ = os.Remove(oldPath)

	oldName := r.selfName
	r.selfName = newName
	r.cache.invalidate()
	r.logFeed(newName, "rename", map[string]any{"from": oldName})

	return &RenameResult{OldName: oldName, NewName: newName}, nil
}

// Leave removes the caller's registration.
func (r *Registry) Leave() error {
	if r.selfName == "" {
		return resultkind.New(resultkind.NotRegistered, "not registered")
	}
	name := r.selfName
	if err := os.Remove(r.path(name)); err != nil && !os.IsNotExist(err) {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	r.cache.invalidate()
	r.logFeed(name, "leave", map[string]any{"reason": "graceful"})
	r.selfName = ""
	return nil
}

// Get returns a single record by name, without liveness eviction.
func (r *Registry) Get(name string) (*Record, error) {
	rec, err := readRecord(r.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, resultkind.New(resultkind.TargetNotFound, "no such agent: "+name)
		}
		return nil, resultkind.New(resultkind.InvalidRegistration, err.Error())
	}
	return rec, nil
}
