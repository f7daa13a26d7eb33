// Package crewstore reads and writes Crew's plan, task, and block-context
// files as individual files under a per-project crew directory (§4.8).
// It is the on-disk representation layer only; scheduling lives in
// internal/scheduler.
package crewstore

import "time"

// Status is a task's position in its state machine (§4.7).
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
)

// Plan is the single planning artifact for a working directory.
type Plan struct {
	PRDPath   string    `json:"prdPath"`
	CreatedAt time.Time `json:"createdAt"`
	Progress  string    `json:"progress,omitempty"`
	Body      string    `json:"-"` // markdown body, stored alongside as plan.md
}

// Task is one node in the plan's dependency DAG, plus its markdown
// specification body (§3).
type Task struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Status        Status         `json:"status"`
	DependsOn     []string       `json:"dependsOn,omitempty"`
	AssignedTo    string         `json:"assignedTo,omitempty"`
	AttemptCount  int            `json:"attemptCount"`
	ReviewCount   int            `json:"reviewCount,omitempty"`
	LastReview    *ReviewVerdict `json:"lastReview,omitempty"`
	BlockedReason string         `json:"blockedReason,omitempty"`
	Summary       string         `json:"summary,omitempty"`
	Body          string         `json:"-"` // markdown specification
}

// Verdict is a reviewer's judgment on a completed task (§3, §4.9).
type Verdict string

const (
	VerdictShip         Verdict = "SHIP"
	VerdictNeedsWork    Verdict = "NEEDS_WORK"
	VerdictMajorRethink Verdict = "MAJOR_RETHINK"
)

// ReviewVerdict is the structured result of parsing a reviewer's
// markdown output.
type ReviewVerdict struct {
	Verdict     Verdict  `json:"verdict"`
	Summary     string   `json:"summary"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}
