package crewstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pimesh/messenger/internal/resultkind"
	"github.com/pimesh/messenger/internal/util"
)

// Store reads and writes Crew's on-disk layout rooted at
// <cwd>/.pi/messenger/crew (§6).
type Store struct {
	dir string
}

// New returns a Store rooted at dir (the crew directory itself, not
// its parent).
func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) planJSONPath() string  { return filepath.Join(s.dir, "plan.json") }
func (s *Store) planMDPath() string    { return filepath.Join(s.dir, "plan.md") }
func (s *Store) progressPath() string  { return filepath.Join(s.dir, "planning-progress.md") }
func (s *Store) tasksDir() string      { return filepath.Join(s.dir, "tasks") }
func (s *Store) blocksDir() string     { return filepath.Join(s.dir, "blocks") }
func (s *Store) taskJSONPath(id string) string { return filepath.Join(s.tasksDir(), id+".json") }
func (s *Store) taskMDPath(id string) string   { return filepath.Join(s.tasksDir(), id+".md") }
func (s *Store) blockPath(id string) string     { return filepath.Join(s.blocksDir(), id+".md") }

// LoadPlan reads plan.json, plus plan.md and planning-progress.md when
// present, returning a resultkind.Error with Kind NoPlan if plan.json
// does not exist.
func (s *Store) LoadPlan() (*Plan, error) {
	data, err := os.ReadFile(s.planJSONPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, resultkind.New(resultkind.NoPlan, "no plan found")
		}
		return nil, resultkind.New(resultkind.IOFailure, err.Error())
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, resultkind.New(resultkind.IOFailure, "parsing plan.json: "+err.Error())
	}
	if body, err := os.ReadFile(s.planMDPath()); err == nil {
		plan.Body = string(body)
	}
	if progress, err := os.ReadFile(s.progressPath()); err == nil {
		plan.Progress = string(progress)
	}
	return &plan, nil
}

// SavePlan writes plan.json and plan.md atomically, and also writes
// planning-progress.md when Progress is non-empty. Progress is stored
// both inside plan.json and in that separate file; LoadPlan prefers the
// separate file when it exists.
func (s *Store) SavePlan(plan *Plan) error {
	if err := util.EnsureDirAndWriteJSON(s.planJSONPath(), plan); err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	if err := util.AtomicWriteFile(s.planMDPath(), []byte(plan.Body), 0644); err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	if plan.Progress == "" {
		return nil
	}
	return util.AtomicWriteFile(s.progressPath(), []byte(plan.Progress), 0644)
}

// NextTaskID scans the tasks directory and returns the next
// "task-<N>" id with N monotonically increasing (§4.8).
func (s *Store) NextTaskID() (string, error) {
	entries, err := os.ReadDir(s.tasksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return "task-1", nil
		}
		return "", resultkind.New(resultkind.IOFailure, err.Error())
	}
	max := 0
	re := regexp.MustCompile(`^task-(\d+)\.json$`)
	for _, e := range entries {
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("task-%d", max+1), nil
}

// LoadTask reads one task by id.
func (s *Store) LoadTask(id string) (*Task, error) {
	data, err := os.ReadFile(s.taskJSONPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, resultkind.New(resultkind.UnknownTask, "no such task: "+id)
		}
		return nil, resultkind.New(resultkind.IOFailure, err.Error())
	}
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, resultkind.New(resultkind.IOFailure, "parsing "+id+".json: "+err.Error())
	}
	if body, err := os.ReadFile(s.taskMDPath(id)); err == nil {
		task.Body = string(body)
	}
	return &task, nil
}

// LoadAllTasks returns every task in the plan, sorted by numeric id.
func (s *Store) LoadAllTasks() ([]*Task, error) {
	entries, err := os.ReadDir(s.tasksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, resultkind.New(resultkind.IOFailure, err.Error())
	}
	var ids []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".json") {
			ids = append(ids, strings.TrimSuffix(e.Name(), ".json"))
		}
	}
	sort.Slice(ids, func(i, j int) bool { return taskNum(ids[i]) < taskNum(ids[j]) })

	var tasks []*Task
	for _, id := range ids {
		task, err := s.LoadTask(id)
		if err != nil {
			continue // a poison task file is skipped rather than aborting the whole load
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func taskNum(id string) int {
	n, _ := strconv.Atoi(strings.TrimPrefix(id, "task-"))
	return n
}

// SaveTask validates invariants (§3: done requires summary, blocked
// requires blockedReason, attemptCount non-decreasing vs the current
// on-disk value) then writes the task's JSON and markdown files.
func (s *Store) SaveTask(task *Task) error {
	if existing, err := s.LoadTask(task.ID); err == nil && task.AttemptCount < existing.AttemptCount {
		return resultkind.New(resultkind.IOFailure, "attemptCount must not decrease")
	}
	return s.saveTask(task)
}

// SaveTaskReset writes task bypassing the attemptCount monotonicity
// check, for scheduler.Reset (§4.7), which intentionally zeroes
// attemptCount on a task that may have been attempted before.
func (s *Store) SaveTaskReset(task *Task) error {
	return s.saveTask(task)
}

func (s *Store) saveTask(task *Task) error {
	if task.Status == StatusDone && task.Summary == "" {
		return resultkind.New(resultkind.IOFailure, "done task requires a summary")
	}
	if task.Status == StatusBlocked && task.BlockedReason == "" {
		return resultkind.New(resultkind.IOFailure, "blocked task requires a blockedReason")
	}

	if err := util.EnsureDirAndWriteJSON(s.taskJSONPath(task.ID), task); err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	return util.AtomicWriteFile(s.taskMDPath(task.ID), []byte(task.Body), 0644)
}

// SaveBlockContext writes a block-explanation markdown file, separate
// from the task's blockedReason summary field, for longer-form context
// a human might want when triaging a blocked task.
func (s *Store) SaveBlockContext(id, markdown string) error {
	if err := os.MkdirAll(s.blocksDir(), 0755); err != nil {
		return resultkind.New(resultkind.IOFailure, err.Error())
	}
	return util.AtomicWriteFile(s.blockPath(id), []byte(markdown), 0644)
}

// ValidateGraph checks that every dependsOn id exists and the graph
// has no cycles (§3). `pimesh crew plan` runs it before saving any
// task; tasks loaded from disk are not checked again.
func ValidateGraph(tasks []*Task) error {
	byID := make(map[string]*Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			if _, ok := byID[dep]; !ok {
				return resultkind.New(resultkind.DependencyUnmet, t.ID+" depends on unknown task "+dep)
			}
		}
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(tasks))
	var visit func(id string) error
	visit = func(id string) error {
		switch color[id] {
		case gray:
			return resultkind.New(resultkind.CycleDetected, "dependency cycle involving "+id)
		case black:
			return nil
		}
		color[id] = gray
		for _, dep := range byID[id].DependsOn {
			if err := visit(dep); err != nil {
				return err
			}
		}
		color[id] = black
		return nil
	}
	for _, t := range tasks {
		if err := visit(t.ID); err != nil {
			return err
		}
	}
	return nil
}
