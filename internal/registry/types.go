// Package registry implements the agent presence registry: join,
// rename, leave, and peer discovery backed by one JSON file per live
// agent under <base>/registry/<name>.json.
package registry

import "time"

// SessionCounters holds cumulative per-session activity counters,
// reported by the owning agent on each UpdateActivity call.
type SessionCounters struct {
	ToolCalls     int `json:"toolCalls"`
	Tokens        int `json:"tokens"`
	FilesModified int `json:"filesModified"`
}

// Reservation is an agent's declared intent to exclusively edit files
// matching Pattern. It lives embedded in the owning agent's Record and
// is implicitly released when that Record is removed.
type Reservation struct {
	Pattern string `json:"pattern"`
	Reason  string `json:"reason,omitempty"`
}

// Record is one agent's registration. Filename is keyed by Name.
type Record struct {
	Name          string          `json:"name"`
	PID           int             `json:"pid"`
	SessionID     string          `json:"sessionId"`
	Cwd           string          `json:"cwd"`
	Model         string          `json:"model,omitempty"`
	StartedAt     time.Time       `json:"startedAt"`
	GitBranch     string          `json:"gitBranch,omitempty"`
	Spec          string          `json:"spec,omitempty"`
	IsHuman       bool            `json:"isHuman,omitempty"`
	Session       SessionCounters `json:"session"`
	Activity      time.Time       `json:"activity"`
	Reservations  []Reservation   `json:"reservations,omitempty"`
	StatusMessage string          `json:"statusMessage,omitempty"`
}
