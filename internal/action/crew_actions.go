package action

import (
	"context"
	"path/filepath"

	"github.com/pimesh/messenger/internal/crewstore"
	"github.com/pimesh/messenger/internal/mesh"
	"github.com/pimesh/messenger/internal/resultkind"
	"github.com/pimesh/messenger/internal/scheduler"
)

// Crew requests. These are dispatched the same way as the core
// requests above; they are split into their own file because they
// carry a crewstore.Store derived from the coordinator's cwd rather
// than reaching through c.Swarm or c.Registry.

type TaskGetRequest struct{ ID string }

type TaskListRequest struct{}

type CrewResetRequest struct {
	ID      string
	Cascade bool
}

type CrewWorkRequest struct {
	Autonomous bool
}

func (TaskGetRequest) isRequest()   {}
func (TaskListRequest) isRequest()  {}
func (CrewResetRequest) isRequest() {}
func (CrewWorkRequest) isRequest()  {}

// CrewDir returns the per-project Crew directory for cwd (§6).
func CrewDir(cwd string) string {
	return filepath.Join(cwd, ".pi", "messenger", "crew")
}

// DispatchCrew handles the Crew-prefixed subset of the action surface
// (§6: "Crew (plan, work, task.*, review, crew.*)"). It is a second
// entry point rather than a case added to Dispatch's switch because
// Crew operations need a crewstore.Store and, for work, a
// scheduler.Worker the caller must supply — neither of which every
// Dispatch caller has in hand.
func DispatchCrew(c *mesh.Coordinator, store *crewstore.Store, worker scheduler.Worker, reviewer scheduler.Reviewer, cfg scheduler.Config, req Request) Result {
	switch r := req.(type) {
	case TaskGetRequest:
		task, err := store.LoadTask(r.ID)
		if err != nil {
			return fail("task.get", err)
		}
		return ok("task.get", task)

	case TaskListRequest:
		tasks, err := store.LoadAllTasks()
		if err != nil {
			return fail("task.list", err)
		}
		return ok("task.list", tasks)

	case CrewResetRequest:
		if err := scheduler.Reset(store, r.ID, r.Cascade); err != nil {
			return fail("crew.reset", err)
		}
		return ok("crew.reset", nil)

	case CrewWorkRequest:
		if worker == nil {
			return fail("work", resultkind.New(resultkind.NoPlan, "no worker configured"))
		}
		s := scheduler.New(store, worker, reviewer, cfg)
		if r.Autonomous {
			waves, err := s.RunAutonomous(context.Background())
			if err != nil {
				return fail("work", err)
			}
			return ok("work", map[string]any{"waves": waves})
		}
		attempted, err := s.RunWave(context.Background())
		if err != nil {
			return fail("work", err)
		}
		return ok("work", map[string]any{"attempted": attempted})

	default:
		return fail("unknown", resultkind.New(resultkind.UnknownTask, "unrecognized crew request"))
	}
}
