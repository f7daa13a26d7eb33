package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pimesh/messenger/internal/action"
	"github.com/pimesh/messenger/internal/swarm"
)

var swarmCmd = &cobra.Command{
	Use:   "swarm",
	Short: "Claim, release, and complete spec tasks against the shared swarm ledger",
}

var claimReason string

var claimCmd = &cobra.Command{
	Use:   "claim [spec] [task-id]",
	Short: "Claim task-id under spec for this agent",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		res := action.Dispatch(c, action.ClaimRequest{Spec: args[0], TaskID: args[1], Reason: claimReason})
		if res.Err != nil {
			return res.Err
		}
		cr := res.Payload.(*swarm.ClaimResult)
		fmt.Printf("claimed %s/%s\n", cr.Spec, cr.TaskID)
		return nil
	},
}

var unclaimCmd = &cobra.Command{
	Use:   "unclaim [spec] [task-id]",
	Short: "Release this agent's claim on task-id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		if res := action.Dispatch(c, action.UnclaimRequest{Spec: args[0], TaskID: args[1]}); res.Err != nil {
			return res.Err
		}
		fmt.Println("unclaimed")
		return nil
	},
}

var completeNotes string

var completeCmd = &cobra.Command{
	Use:   "complete [spec] [task-id]",
	Short: "Mark task-id complete, recording a durable completion entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		if res := action.Dispatch(c, action.CompleteRequest{Spec: args[0], TaskID: args[1], Notes: completeNotes}); res.Err != nil {
			return res.Err
		}
		fmt.Println("completed")
		return nil
	},
}

func init() {
	claimCmd.Flags().StringVar(&claimReason, "reason", "", "why this agent is claiming the task")
	completeCmd.Flags().StringVar(&completeNotes, "notes", "", "completion notes")
	swarmCmd.AddCommand(claimCmd, unclaimCmd, completeCmd)
	rootCmd.AddCommand(swarmCmd)
}
