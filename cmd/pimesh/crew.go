package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pimesh/messenger/internal/action"
	"github.com/pimesh/messenger/internal/crewstore"
	"github.com/pimesh/messenger/internal/mesh"
	"github.com/pimesh/messenger/internal/render"
	"github.com/pimesh/messenger/internal/scheduler"
)

var crewCmd = &cobra.Command{
	Use:   "crew",
	Short: "Plan, schedule, and review a task DAG for the current project",
}

func crewStore() *crewstore.Store {
	cwd, _ := os.Getwd()
	return crewstore.New(action.CrewDir(cwd))
}

var planFromStdin bool

var crewPlanCmd = &cobra.Command{
	Use:   "plan [file]",
	Short: "Record a plan and its tasks from planner output (JSON block preferred, markdown fallback)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw []byte
		var err error
		switch {
		case planFromStdin || len(args) == 0:
			raw, err = io.ReadAll(os.Stdin)
		default:
			raw, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}

		plan, tasks, err := crewstore.ParsePlannerOutput(string(raw))
		if err != nil {
			return err
		}
		if err := crewstore.ValidateGraph(tasks); err != nil {
			return err
		}

		store := crewStore()
		if err := store.SavePlan(plan); err != nil {
			return err
		}
		for _, t := range tasks {
			if t.ID == "" {
				id, err := store.NextTaskID()
				if err != nil {
					return err
				}
				t.ID = id
			}
			t.Status = crewstore.StatusTodo
			if err := store.SaveTask(t); err != nil {
				return err
			}
		}
		fmt.Printf("recorded plan with %d task(s)\n", len(tasks))
		return nil
	},
}

var crewTaskGetCmd = &cobra.Command{
	Use:   "task-get [id]",
	Short: "Show one task's full record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator()
		if err != nil {
			return err
		}
		res := action.DispatchCrew(c, crewStore(), nil, nil, scheduler.DefaultConfig(), action.TaskGetRequest{ID: args[0]})
		if res.Err != nil {
			return res.Err
		}
		t := res.Payload.(*crewstore.Task)
		fmt.Printf("%s  %-12s %s\ndependsOn: %s\nassignedTo: %s\nattempts: %d\n",
			t.ID, t.Status, t.Title, strings.Join(t.DependsOn, ", "), t.AssignedTo, t.AttemptCount)
		if t.BlockedReason != "" {
			fmt.Println(render.Wrap("blocked: "+t.BlockedReason, 0))
		}
		return nil
	},
}

var crewTaskListCmd = &cobra.Command{
	Use:   "task-list",
	Short: "List every task in the current plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator()
		if err != nil {
			return err
		}
		res := action.DispatchCrew(c, crewStore(), nil, nil, scheduler.DefaultConfig(), action.TaskListRequest{})
		if res.Err != nil {
			return res.Err
		}
		tasks := res.Payload.([]*crewstore.Task)
		rows := make([][]string, 0, len(tasks))
		for _, t := range tasks {
			rows = append(rows, []string{t.ID, string(t.Status), t.Title, t.AssignedTo, strings.Join(t.DependsOn, ",")})
		}
		fmt.Print(render.Table([]string{"ID", "STATUS", "TITLE", "ASSIGNED", "DEPENDS ON"}, rows))
		return nil
	},
}

var (
	crewResetCascade bool
)

var crewResetCmd = &cobra.Command{
	Use:   "reset [id]",
	Short: "Reset a task to todo, optionally cascading to its transitive dependents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator()
		if err != nil {
			return err
		}
		res := action.DispatchCrew(c, crewStore(), nil, nil, scheduler.DefaultConfig(), action.CrewResetRequest{ID: args[0], Cascade: crewResetCascade})
		if res.Err != nil {
			return res.Err
		}
		fmt.Println("reset", args[0])
		return nil
	},
}

var (
	workAutonomous bool
	workCommand    string
	reviewCommand  string
	workTimeout    time.Duration
)

var crewWorkCmd = &cobra.Command{
	Use:   "work",
	Short: "Run one wave (or, with --autonomous, repeated waves) of ready tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		if workCommand == "" {
			return fmt.Errorf("--worker-cmd is required: an external command that executes one task per invocation")
		}
		c, err := newCoordinator()
		if err != nil {
			return err
		}

		worker := &execWorker{command: workCommand, timeout: workTimeout}
		var reviewer scheduler.Reviewer
		cfg := schedulerConfigFrom(c)
		if cfg.ReviewEnabled && reviewCommand != "" {
			reviewer = &execReviewer{command: reviewCommand, timeout: workTimeout}
		} else {
			cfg.ReviewEnabled = false
		}

		res := action.DispatchCrew(c, crewStore(), worker, reviewer, cfg, action.CrewWorkRequest{Autonomous: workAutonomous})
		if res.Err != nil {
			return res.Err
		}
		payload := res.Payload.(map[string]any)
		for k, v := range payload {
			fmt.Printf("%s: %v\n", k, v)
		}
		return nil
	},
}

// schedulerConfigFrom maps the coordinator's loaded crew config (§6:
// concurrency.workers, review.*, work.*) onto scheduler.Config.
func schedulerConfigFrom(c *mesh.Coordinator) scheduler.Config {
	crew := c.Config.Crew
	cfg := scheduler.DefaultConfig()
	if crew.Concurrency.Workers > 0 {
		cfg.Workers = crew.Concurrency.Workers
	}
	if crew.Work.MaxAttemptsPerTask > 0 {
		cfg.MaxAttemptsPerTask = crew.Work.MaxAttemptsPerTask
	}
	if crew.Work.MaxWaves > 0 {
		cfg.MaxWaves = crew.Work.MaxWaves
	}
	cfg.StopOnBlock = crew.Work.StopOnBlock
	cfg.ReviewEnabled = crew.Review.Enabled
	if crew.Review.MaxIterations > 0 {
		cfg.ReviewMaxIterations = crew.Review.MaxIterations
	}
	return cfg
}

func init() {
	crewPlanCmd.Flags().BoolVar(&planFromStdin, "stdin", false, "read planner output from stdin")
	crewResetCmd.Flags().BoolVar(&crewResetCascade, "cascade", false, "also reset transitive dependents")
	crewWorkCmd.Flags().BoolVar(&workAutonomous, "autonomous", false, "run waves repeatedly until done, blocked, or max-waves")
	crewWorkCmd.Flags().StringVar(&workCommand, "worker-cmd", "", "external command invoked once per task (task JSON on stdin, result JSON on stdout)")
	crewWorkCmd.Flags().StringVar(&reviewCommand, "review-cmd", "", "external command invoked to review a done task (task JSON on stdin, markdown verdict on stdout)")
	crewWorkCmd.Flags().DurationVar(&workTimeout, "timeout", 10*time.Minute, "per-invocation timeout for worker/review commands")

	crewCmd.AddCommand(crewPlanCmd, crewTaskGetCmd, crewTaskListCmd, crewResetCmd, crewWorkCmd)
	rootCmd.AddCommand(crewCmd)
}
