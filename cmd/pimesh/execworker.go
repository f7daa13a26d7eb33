package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"time"

	"github.com/pimesh/messenger/internal/crewstore"
	"github.com/pimesh/messenger/internal/scheduler"
)

// execWorker runs one task by invoking an external command (the actual
// agent session) with the task's JSON encoding on stdin, in the same
// exec.CommandContext-with-timeout style as internal/gitinfo. The
// command's stdout must be one JSON object matching workerOutput; any
// other shape, a non-zero exit, or exceeding the timeout is reported as
// an OutcomeFailed result rather than propagated as a Go error, so the
// scheduler's retry/block bookkeeping (§4.7) stays in control.
type execWorker struct {
	command string
	args    []string
	timeout time.Duration
}

type workerInput struct {
	Task        *crewstore.Task `json:"task"`
	ReviewNotes string          `json:"reviewNotes,omitempty"`
}

type workerOutput struct {
	Outcome scheduler.Outcome `json:"outcome"`
	Summary string            `json:"summary,omitempty"`
	Reason  string            `json:"reason,omitempty"`
}

func (w *execWorker) Run(ctx context.Context, task *crewstore.Task, reviewNotes string) scheduler.Result {
	runCtx := ctx
	var cancel context.CancelFunc
	if w.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	in, err := json.Marshal(workerInput{Task: task, ReviewNotes: reviewNotes})
	if err != nil {
		return scheduler.Result{Outcome: scheduler.OutcomeFailed, Reason: err.Error()}
	}

	cmd := exec.CommandContext(runCtx, w.command, w.args...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return scheduler.Result{Outcome: scheduler.OutcomeFailed, Reason: "worker command failed: " + err.Error()}
	}

	var wo workerOutput
	if err := json.Unmarshal(out, &wo); err != nil {
		return scheduler.Result{Outcome: scheduler.OutcomeFailed, Reason: "worker emitted unparsable output: " + err.Error()}
	}
	switch wo.Outcome {
	case scheduler.OutcomeDone, scheduler.OutcomeBlocked, scheduler.OutcomeFailed:
	default:
		return scheduler.Result{Outcome: scheduler.OutcomeFailed, Reason: "worker emitted unknown outcome: " + string(wo.Outcome)}
	}
	return scheduler.Result{Outcome: wo.Outcome, Summary: wo.Summary, Reason: wo.Reason}
}

// execReviewer invokes an external reviewer command whose stdout is the
// reviewer's raw markdown verdict, parsed with crewstore.ParseVerdict
// (§4.9). A reviewer command is optional: reviewEnabled gates whether
// cmd/pimesh wires one in at all.
type execReviewer struct {
	command string
	args    []string
	timeout time.Duration
}

func (r *execReviewer) Review(ctx context.Context, task *crewstore.Task) *crewstore.ReviewVerdict {
	runCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	in, err := json.Marshal(task)
	if err != nil {
		return &crewstore.ReviewVerdict{Verdict: crewstore.VerdictNeedsWork, Summary: err.Error()}
	}
	cmd := exec.CommandContext(runCtx, r.command, r.args...)
	cmd.Stdin = bytes.NewReader(in)
	cmd.Stderr = os.Stderr
	out, err := cmd.Output()
	if err != nil {
		return &crewstore.ReviewVerdict{Verdict: crewstore.VerdictNeedsWork, Summary: "reviewer command failed: " + err.Error()}
	}
	return crewstore.ParseVerdict(string(out))
}
