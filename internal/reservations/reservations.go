// Package reservations implements path-pattern locks against
// concurrent edits across agents (§4.4). A reservation lives embedded
// in its owning agent's registry record, so this package never
// persists anything of its own: it only evaluates conflicts against
// records the caller supplies.
package reservations

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pimesh/messenger/internal/registry"
)

// Conflict describes a reservation that blocks a candidate path,
// naming the agent holding it and enough context to message the
// caller (§4.4: "blocked with a message naming the blocking agent, its
// pattern, and its cwd/branch").
type Conflict struct {
	Agent     string
	Pattern   string
	Reason    string
	Cwd       string
	GitBranch string
}

// Matches reports whether pattern conflicts with path: exact equality,
// or pattern names a directory that is a strict prefix of path.
func Matches(pattern, path string) bool {
	pattern = filepath.Clean(pattern)
	path = filepath.Clean(path)
	if pattern == path {
		return true
	}
	prefix := pattern
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// CheckConflict scans peer records for reservations that match path,
// excluding records owned by self. Read operations are never blocked
// by this package; it only reports conflicts, leaving write/edit
// policy to the caller (§4.4).
func CheckConflict(peers []*registry.Record, self string, path string) []Conflict {
	var conflicts []Conflict
	for _, rec := range peers {
		if rec.Name == self {
			continue
		}
		for _, res := range rec.Reservations {
			if Matches(res.Pattern, path) {
				conflicts = append(conflicts, Conflict{
					Agent:     rec.Name,
					Pattern:   res.Pattern,
					Reason:    res.Reason,
					Cwd:       rec.Cwd,
					GitBranch: rec.GitBranch,
				})
			}
		}
	}
	return conflicts
}

// Message renders a human-readable explanation of a conflict list,
// suitable for surfacing to an editor or CLI caller.
func Message(conflicts []Conflict) string {
	if len(conflicts) == 0 {
		return ""
	}
	c := conflicts[0]
	msg := fmt.Sprintf("blocked by %s (reserved %q", c.Agent, c.Pattern)
	if c.Reason != "" {
		msg += fmt.Sprintf(": %s", c.Reason)
	}
	msg += ")"
	if c.Cwd != "" {
		msg += fmt.Sprintf(" in %s", c.Cwd)
	}
	if c.GitBranch != "" {
		msg += fmt.Sprintf(" on %s", c.GitBranch)
	}
	return msg
}
