package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pimesh/messenger/internal/action"
	"github.com/pimesh/messenger/internal/registry"
	"github.com/pimesh/messenger/internal/render"
)

var (
	joinName  string
	joinModel string
	joinHuman bool
)

var joinCmd = &cobra.Command{
	Use:   "join",
	Short: "Register this process as an agent in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		name := joinName
		if name == "" {
			name = explicitName()
		}
		c, err := newCoordinator()
		if err != nil {
			return err
		}
		res := action.Dispatch(c, action.JoinRequest{
			ExplicitName: name,
			Base:         "cli",
			SessionID:    sessionID(),
			Model:        joinModel,
			IsHuman:      joinHuman,
		})
		if res.Err != nil {
			return res.Err
		}
		rec := res.Payload.(*registry.Record)
		fmt.Printf("joined as %s (pid %d)\n", rec.Name, rec.PID)
		return nil
	},
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Remove this agent's registration and inbox",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		if res := action.Dispatch(c, action.LeaveRequest{}); res.Err != nil {
			return res.Err
		}
		fmt.Println("left")
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename [new-name]",
	Short: "Drain mail and rename this agent, preserving its inbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		res := action.Dispatch(c, action.RenameRequest{NewName: args[0]})
		if res.Err != nil {
			return res.Err
		}
		rr := res.Payload.(*registry.RenameResult)
		fmt.Printf("renamed %s -> %s\n", rr.OldName, rr.NewName)
		return nil
	},
}

var (
	listExcludeSelf bool
	listScopeCwd    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List live agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator()
		if err != nil {
			return err
		}
		res := action.Dispatch(c, action.ListRequest{ExcludeSelf: listExcludeSelf, ScopeToCwd: listScopeCwd})
		if res.Err != nil {
			return res.Err
		}
		peers := res.Payload.([]*registry.Record)
		rows := make([][]string, 0, len(peers))
		for _, p := range peers {
			rows = append(rows, []string{p.Name, fmt.Sprint(p.PID), p.GitBranch, render.Age(p.Activity), p.StatusMessage})
		}
		fmt.Print(render.Table([]string{"NAME", "PID", "BRANCH", "ACTIVE", "STATUS"}, rows))
		return nil
	},
}

var whoisCmd = &cobra.Command{
	Use:   "whois [name]",
	Short: "Show one agent's full registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator()
		if err != nil {
			return err
		}
		res := action.Dispatch(c, action.WhoisRequest{Name: args[0]})
		if res.Err != nil {
			return res.Err
		}
		rec := res.Payload.(*registry.Record)
		fmt.Printf("name:      %s\npid:       %d\ncwd:       %s\nbranch:    %s\nmodel:     %s\nhuman:     %v\nactivity:  %s\nstatus:    %s\n",
			rec.Name, rec.PID, rec.Cwd, rec.GitBranch, rec.Model, rec.IsHuman, render.Age(rec.Activity), rec.StatusMessage)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show peer presence and this agent's pending mail count",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		res := action.Dispatch(c, action.StatusRequest{})
		if res.Err != nil {
			return res.Err
		}
		payload := res.Payload.(map[string]any)
		peers := payload["peers"].([]*registry.Record)
		fmt.Printf("%d peer(s), %d pending message(s)\n", len(peers), payload["pendingMail"])
		return nil
	},
}

var setStatusCmd = &cobra.Command{
	Use:   "set-status [message]",
	Short: "Set this agent's free-text status message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		if res := action.Dispatch(c, action.SetStatusRequest{Message: args[0]}); res.Err != nil {
			return res.Err
		}
		return nil
	},
}

func init() {
	joinCmd.Flags().StringVar(&joinName, "name", "", "explicit agent name (default: auto-generated)")
	joinCmd.Flags().StringVar(&joinModel, "model", "", "model identifier to record")
	joinCmd.Flags().BoolVar(&joinHuman, "human", false, "mark this registration as a human session")

	listCmd.Flags().BoolVar(&listExcludeSelf, "exclude-self", true, "omit this agent from the listing")
	listCmd.Flags().BoolVar(&listScopeCwd, "scope-cwd", false, "only list agents in the current working directory")

	rootCmd.AddCommand(joinCmd, leaveCmd, renameCmd, listCmd, whoisCmd, statusCmd, setStatusCmd)
}
