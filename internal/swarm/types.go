// Package swarm implements atomic single-claim-per-agent task
// assignment for shared specs (§4.5). Claims and completions are
// stored in two JSON files guarded by a single advisory lock; all
// mutations happen inside that lock.
package swarm

import "time"

// Claim is one agent's in-flight hold on (spec, taskId).
type Claim struct {
	Agent     string    `json:"agent"`
	SessionID string    `json:"sessionId"`
	PID       int       `json:"pid"`
	ClaimedAt time.Time `json:"claimedAt"`
	Reason    string    `json:"reason,omitempty"`
}

// Completion is an append-only record that a task finished.
// Re-completion of the same (spec, taskId) is rejected.
type Completion struct {
	CompletedBy string    `json:"completedBy"`
	CompletedAt time.Time `json:"completedAt"`
	Notes       string    `json:"notes,omitempty"`
}

// claimsFile is the on-disk shape of claims.json: spec path -> task id
// -> claim.
type claimsFile map[string]map[string]Claim

// completionsFile is the on-disk shape of completions.json, keyed
// identically to claimsFile.
type completionsFile map[string]map[string]Completion
