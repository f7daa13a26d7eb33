package swarm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pimesh/messenger/internal/liveness"
	"github.com/pimesh/messenger/internal/resultkind"
	"github.com/pimesh/messenger/internal/util"
)

// timeNow is overridden in tests.
var timeNow = time.Now

// Store guards claims.json and completions.json under baseDir with
// swarm.lock. Every mutating method acquires the lock, reads both
// files, cleans stale claims, performs the requested mutation, and
// writes back — so a Store value holds no cached state of its own.
type Store struct {
	baseDir string
}

// New returns a Store rooted at baseDir.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) lockPath() string        { return filepath.Join(s.baseDir, "swarm.lock") }
func (s *Store) claimsPath() string      { return filepath.Join(s.baseDir, "claims.json") }
func (s *Store) completionsPath() string { return filepath.Join(s.baseDir, "completions.json") }

func readClaims(path string) (claimsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return claimsFile{}, nil
		}
		return nil, err
	}
	var cf claimsFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return claimsFile{}, nil // corrupt file treated as empty, not fatal
	}
	if cf == nil {
		cf = claimsFile{}
	}
	return cf, nil
}

func readCompletions(path string) (completionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return completionsFile{}, nil
		}
		return nil, err
	}
	var cf completionsFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return completionsFile{}, nil
	}
	if cf == nil {
		cf = completionsFile{}
	}
	return cf, nil
}

// sessionLookup resolves whether a claim's sessionId still matches a
// live registration for agent, so cleanupStale can detect an agent
// that restarted under the same name. Callers inject this to avoid an
// import cycle with the registry package.
type sessionLookup func(agent string) (sessionID string, found bool)

// cleanupStale removes claims whose PID is dead, whose agent has no
// matching registration, or whose registration's sessionId no longer
// matches the claim's (§3: claim staleness). It reports whether
// anything was removed, so the caller can decide whether to persist
// the cleaned structure even when the caller's own request fails
// (§4.5: "lazy garbage collection piggybacks on contention").
func cleanupStale(claims claimsFile, lookup sessionLookup) bool {
	changed := false
	for spec, tasks := range claims {
		for taskID, claim := range tasks {
			stale := !liveness.IsAlive(claim.PID)
			if !stale && lookup != nil {
				sid, found := lookup(claim.Agent)
				if !found || sid != claim.SessionID {
					stale = true
				}
			}
			if stale {
				delete(tasks, taskID)
				changed = true
			}
		}
		if len(tasks) == 0 {
			delete(claims, spec)
		}
	}
	return changed
}

func writeClaims(path string, cf claimsFile) error {
	return util.AtomicWriteJSON(path, cf)
}

func writeCompletions(path string, cf completionsFile) error {
	return util.AtomicWriteJSON(path, cf)
}

// withLock runs fn while holding swarm.lock, loading claims and
// completions beforehand and persisting claims afterward if fn or the
// stale-cleanup pass modified them. fn may also mutate the completions
// map in place and report completionsChanged to have it written
// (Complete does).
func (s *Store) withLock(lookup sessionLookup, fn func(claims claimsFile, completions completionsFile) (claimsChanged, completionsChanged bool, err error)) error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	fl, err := acquireLock(s.lockPath())
	if err != nil {
		return err
	}
	defer releaseLock(fl, s.lockPath())

	claims, err := readClaims(s.claimsPath())
	if err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	completions, err := readCompletions(s.completionsPath())
	if err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}

	staleRemoved := cleanupStale(claims, lookup)

	claimsChanged, completionsChanged, fnErr := fn(claims, completions)

	// Completions are written before claims so a failure between the
	// two writes leaves a stale claim (cleanable) rather than losing a
	// completion record (§4.5, S5).
	if completionsChanged {
		if werr := writeCompletions(s.completionsPath(), completions); werr != nil {
			return resultkind.New(resultkind.IOFailure, werr.Error())
		}
	}
	if staleRemoved || claimsChanged {
		if werr := writeClaims(s.claimsPath(), claims); werr != nil {
			return resultkind.New(resultkind.IOFailure, werr.Error())
		}
	}
	return fnErr
}

// ClaimResult carries the outcome of a successful Claim.
type ClaimResult struct {
	Spec   string
	TaskID string
}

// Claim attempts to claim (spec, taskId) for agent. It fails with
// already_have_claim (carrying the existing location) if agent already
// holds any non-stale claim anywhere, or already_claimed if the slot is
// taken by someone else, or already_completed if it was already
// finished.
func (s *Store) Claim(lookup sessionLookup, spec, taskID, agent, sessionID string, pid int, reason string) (*ClaimResult, error) {
	var result *ClaimResult
	err := s.withLock(lookup, func(claims claimsFile, completions completionsFile) (bool, bool, error) {
		if tasks, ok := completions[spec]; ok {
			if _, done := tasks[taskID]; done {
				return false, false, resultkind.New(resultkind.AlreadyCompleted, "task already completed")
			}
		}

		for s2, tasks := range claims {
			for t2, c := range tasks {
				if c.Agent == agent {
					return false, false, resultkind.WithDetails(resultkind.AlreadyHaveClaim,
						"agent already holds a claim", map[string]string{"spec": s2, "taskId": t2})
				}
			}
		}

		if tasks, ok := claims[spec]; ok {
			if _, taken := tasks[taskID]; taken {
				return false, false, resultkind.New(resultkind.AlreadyClaimed, "task already claimed")
			}
		}

		if claims[spec] == nil {
			claims[spec] = map[string]Claim{}
		}
		claims[spec][taskID] = Claim{
			Agent:     agent,
			SessionID: sessionID,
			PID:       pid,
			ClaimedAt: timeNow(),
			Reason:    reason,
		}
		result = &ClaimResult{Spec: spec, TaskID: taskID}
		return true, false, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Unclaim releases agent's claim on (spec, taskId).
func (s *Store) Unclaim(lookup sessionLookup, spec, taskID, agent string) error {
	return s.withLock(lookup, func(claims claimsFile, completions completionsFile) (bool, bool, error) {
		tasks, ok := claims[spec]
		if !ok {
			return false, false, resultkind.New(resultkind.NotClaimed, "task not claimed")
		}
		claim, ok := tasks[taskID]
		if !ok {
			return false, false, resultkind.New(resultkind.NotClaimed, "task not claimed")
		}
		if claim.Agent != agent {
			return false, false, resultkind.New(resultkind.NotYourClaim, "claim held by "+claim.Agent)
		}
		delete(tasks, taskID)
		if len(tasks) == 0 {
			delete(claims, spec)
		}
		return true, false, nil
	})
}

// Complete records completion of (spec, taskId) by agent, then removes
// the claim. The completion write happens before the claim removal (in
// the same locked section, but ordered so a caller inspecting results
// mid-failure never observes a completion missing a claim that in fact
// finished): §4.5 "writes the completion file before removing the
// claim, so an I/O failure between the two leaves a stale claim
// (cleanable) but never loses the completion record."
func (s *Store) Complete(lookup sessionLookup, spec, taskID, agent, notes string) error {
	return s.withLock(lookup, func(claims claimsFile, completions completionsFile) (bool, bool, error) {
		if tasks, ok := completions[spec]; ok {
			if _, done := tasks[taskID]; done {
				return false, false, resultkind.New(resultkind.AlreadyCompleted, "task already completed")
			}
		}

		tasks, ok := claims[spec]
		if !ok {
			return false, false, resultkind.New(resultkind.NotClaimed, "task not claimed")
		}
		claim, ok := tasks[taskID]
		if !ok {
			return false, false, resultkind.New(resultkind.NotClaimed, "task not claimed")
		}
		if claim.Agent != agent {
			return false, false, resultkind.New(resultkind.NotYourClaim, "claim held by "+claim.Agent)
		}

		if completions[spec] == nil {
			completions[spec] = map[string]Completion{}
		}
		completions[spec][taskID] = Completion{CompletedBy: agent, CompletedAt: timeNow(), Notes: notes}

		delete(tasks, taskID)
		if len(tasks) == 0 {
			delete(claims, spec)
		}
		return true, true, nil
	})
}

// Claims returns a snapshot of all current claims (after a stale
// cleanup pass), for status/listing actions.
func (s *Store) Claims(lookup sessionLookup) (claimsFile, error) {
	var out claimsFile
	err := s.withLock(lookup, func(claims claimsFile, completions completionsFile) (bool, bool, error) {
		out = claims
		return false, false, nil
	})
	return out, err
}
