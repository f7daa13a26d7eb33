// Package scheduler drives a Crew task DAG to completion with bounded
// parallelism (§4.7): wave selection, worker dispatch, retry and
// block-on-failure, reset-with-cascade, and autonomous multi-wave runs.
package scheduler

import (
	"context"
	"sort"
	"sync"

	"github.com/pimesh/messenger/internal/crewstore"
)

// Worker runs one task to completion (or failure) and reports the
// outcome. Concrete implementations spawn an actual worker session;
// tests supply a fake.
type Worker interface {
	// Run executes task, returning OutcomeDone with a summary,
	// OutcomeBlocked with a reason, or OutcomeFailed with a reason for
	// abnormal termination. Exactly one of summary/reason is meaningful
	// depending on the returned Outcome.
	Run(ctx context.Context, task *crewstore.Task, reviewNotes string) Result
}

// Outcome discriminates how a worker run ended.
type Outcome string

const (
	OutcomeDone    Outcome = "done"
	OutcomeBlocked Outcome = "blocked"
	OutcomeFailed  Outcome = "failed"
)

// Result is what a Worker reports back to the scheduler for one task.
type Result struct {
	Outcome Outcome
	Summary string // meaningful when Outcome == OutcomeDone
	Reason  string // meaningful when Outcome == OutcomeBlocked or OutcomeFailed
}

// Reviewer optionally judges a done task, producing a verdict that can
// revert it to todo or escalate it to blocked (§4.7 "review coupling").
type Reviewer interface {
	Review(ctx context.Context, task *crewstore.Task) *crewstore.ReviewVerdict
}

// Config bounds scheduler behavior, sourced from messenger config
// (§6: concurrency.workers, review.*, work.*).
type Config struct {
	Workers             int
	MaxAttemptsPerTask  int
	MaxWaves            int
	ReviewEnabled       bool
	ReviewMaxIterations int
	StopOnBlock         bool
}

const (
	defaultWorkers             = 2
	defaultMaxAttemptsPerTask  = 5
	defaultMaxWaves            = 50
	defaultReviewMaxIterations = 3
)

// DefaultConfig returns the spec's documented defaults (§6).
func DefaultConfig() Config {
	return Config{
		Workers:             defaultWorkers,
		MaxAttemptsPerTask:  defaultMaxAttemptsPerTask,
		MaxWaves:            defaultMaxWaves,
		ReviewEnabled:       true,
		ReviewMaxIterations: defaultReviewMaxIterations,
		StopOnBlock:         false,
	}
}

// Scheduler is the explicit coordinator driving one plan's tasks. It
// holds no process-wide state; callers construct one per plan/run.
type Scheduler struct {
	store    *crewstore.Store
	worker   Worker
	reviewer Reviewer
	cfg      Config
}

// New returns a Scheduler for the plan in store, dispatching work to
// worker and optionally reviewer.
func New(store *crewstore.Store, worker Worker, reviewer Reviewer, cfg Config) *Scheduler {
	return &Scheduler{store: store, worker: worker, reviewer: reviewer, cfg: cfg}
}

// readySet returns tasks with status todo whose dependsOn are all done,
// ordered ascending by numeric task id (§4.7 tie-break rule).
func readySet(tasks []*crewstore.Task) []*crewstore.Task {
	byID := make(map[string]*crewstore.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var ready []*crewstore.Task
	for _, t := range tasks {
		if t.Status != crewstore.StatusTodo {
			continue
		}
		if allDepsDone(t, byID) {
			ready = append(ready, t)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return taskNum(ready[i].ID) < taskNum(ready[j].ID) })
	return ready
}

func allDepsDone(t *crewstore.Task, byID map[string]*crewstore.Task) bool {
	for _, dep := range t.DependsOn {
		d, ok := byID[dep]
		if !ok || d.Status != crewstore.StatusDone {
			return false
		}
	}
	return true
}

func taskNum(id string) int {
	n := 0
	for _, c := range id {
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
		}
	}
	return n
}

// RunWave selects up to cfg.Workers ready tasks and runs them
// concurrently, waiting for every spawned worker to terminate before
// returning (§4.7: "the scheduler does not start wave N+1 until wave N
// is fully drained"). Returns the number of tasks it attempted.
func (s *Scheduler) RunWave(ctx context.Context) (int, error) {
	tasks, err := s.store.LoadAllTasks()
	if err != nil {
		return 0, err
	}
	ready := readySet(tasks)
	if len(ready) > s.cfg.Workers {
		ready = ready[:s.cfg.Workers]
	}
	if len(ready) == 0 {
		return 0, nil
	}

	var wg sync.WaitGroup
	for _, task := range ready {
		task := task
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.runTask(ctx, task)
		}()
	}
	wg.Wait()
	return len(ready), nil
}

// runTask executes the full worker-and-optional-review lifecycle for
// one task (§4.7 steps 1-4), persisting every state transition.
func (s *Scheduler) runTask(ctx context.Context, task *crewstore.Task) {
	task.Status = crewstore.StatusInProgress
	task.AssignedTo = "worker"
	task.AttemptCount++
	if err := s.store.SaveTask(task); err != nil {
		return
	}

	reviewNotes := ""
	if task.LastReview != nil {
		reviewNotes = task.LastReview.Summary
	}

	result := s.worker.Run(ctx, task, reviewNotes)

	switch result.Outcome {
	case OutcomeBlocked:
		task.Status = crewstore.StatusBlocked
		task.BlockedReason = result.Reason
		_ = s.store.SaveTask(task)
		return
	case OutcomeFailed:
		s.retryOrBlock(task)
		return
	case OutcomeDone:
		task.Summary = result.Summary
		if s.cfg.ReviewEnabled && s.reviewer != nil {
			s.runReview(ctx, task)
			return
		}
		task.Status = crewstore.StatusDone
		_ = s.store.SaveTask(task)
	}
}

func (s *Scheduler) retryOrBlock(task *crewstore.Task) {
	if task.AttemptCount < s.cfg.MaxAttemptsPerTask {
		task.Status = crewstore.StatusTodo
		task.AssignedTo = ""
	} else {
		task.Status = crewstore.StatusBlocked
		task.BlockedReason = "exceeded max attempts"
	}
	_ = s.store.SaveTask(task)
}

// runReview runs the review loop for a task the worker just declared
// done: SHIP confirms done, NEEDS_WORK reverts to todo with the
// verdict captured, MAJOR_RETHINK blocks. A task is reviewed at most
// cfg.ReviewMaxIterations times: a NEEDS_WORK verdict from the review
// that reaches that count blocks it rather than sending it back to todo
// again (§4.7).
func (s *Scheduler) runReview(ctx context.Context, task *crewstore.Task) {
	verdict := s.reviewer.Review(ctx, task)
	task.LastReview = verdict
	task.ReviewCount++
	switch {
	case verdict.Verdict == crewstore.VerdictShip:
		task.Status = crewstore.StatusDone
	case verdict.Verdict == crewstore.VerdictMajorRethink:
		task.Status = crewstore.StatusBlocked
		task.BlockedReason = verdict.Summary
	case task.ReviewCount >= s.cfg.ReviewMaxIterations:
		task.Status = crewstore.StatusBlocked
		task.BlockedReason = "exceeded max review iterations"
	default: // NEEDS_WORK, or an unparseable verdict defaulted to it
		task.Status = crewstore.StatusTodo
		task.AssignedTo = ""
	}
	_ = s.store.SaveTask(task)
}

// RunAutonomous repeatedly runs waves until no todo tasks remain, no
// remaining tasks are ready, or MaxWaves is reached (§4.7).
func (s *Scheduler) RunAutonomous(ctx context.Context) (int, error) {
	waves := 0
	for waves < s.cfg.MaxWaves {
		tasks, err := s.store.LoadAllTasks()
		if err != nil {
			return waves, err
		}
		if !anyTodo(tasks) {
			break
		}
		if s.cfg.StopOnBlock && anyBlocked(tasks) {
			break
		}
		if len(readySet(tasks)) == 0 {
			break
		}
		attempted, err := s.RunWave(ctx)
		if err != nil {
			return waves, err
		}
		waves++
		if attempted == 0 {
			break
		}
	}
	return waves, nil
}

func anyTodo(tasks []*crewstore.Task) bool {
	for _, t := range tasks {
		if t.Status == crewstore.StatusTodo {
			return true
		}
	}
	return false
}

func anyBlocked(tasks []*crewstore.Task) bool {
	for _, t := range tasks {
		if t.Status == crewstore.StatusBlocked {
			return true
		}
	}
	return false
}

// Reset reverts task id to todo, clearing attemptCount, assignedTo,
// summary, lastReview, blockedReason. With cascade, every transitive
// dependent of id is reset the same way, preserving edges (§4.7).
func Reset(store *crewstore.Store, id string, cascade bool) error {
	tasks, err := store.LoadAllTasks()
	if err != nil {
		return err
	}
	byID := make(map[string]*crewstore.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	if _, ok := byID[id]; !ok {
		return nil
	}

	toReset := map[string]bool{id: true}
	if cascade {
		dependents := dependentsOf(tasks, id)
		for _, d := range dependents {
			toReset[d] = true
		}
	}

	for resetID := range toReset {
		t := byID[resetID]
		if t == nil {
			continue
		}
		t.Status = crewstore.StatusTodo
		t.AttemptCount = 0
		t.ReviewCount = 0
		t.AssignedTo = ""
		t.Summary = ""
		t.LastReview = nil
		t.BlockedReason = ""
		if err := store.SaveTaskReset(t); err != nil {
			return err
		}
	}
	return nil
}

// dependentsOf returns every task id transitively depending on id.
func dependentsOf(tasks []*crewstore.Task, id string) []string {
	direct := map[string][]string{}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			direct[dep] = append(direct[dep], t.ID)
		}
	}
	seen := map[string]bool{}
	var out []string
	var visit func(string)
	visit = func(cur string) {
		for _, child := range direct[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			visit(child)
		}
	}
	visit(id)
	return out
}
