package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pimesh/messenger/internal/action"
	"github.com/pimesh/messenger/internal/feed"
)

var reserveReason string

var reserveCmd = &cobra.Command{
	Use:   "reserve [pattern]",
	Short: "Declare intent to exclusively edit files matching pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		res := action.Dispatch(c, action.ReserveRequest{Pattern: args[0], Reason: reserveReason})
		if res.Err != nil {
			return res.Err
		}
		fmt.Printf("reserved %s\n", args[0])
		return nil
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release [pattern]",
	Short: "Release a previously declared reservation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		res := action.Dispatch(c, action.ReleaseRequest{Pattern: args[0]})
		if res.Err != nil {
			return res.Err
		}
		fmt.Printf("released %s\n", args[0])
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Check whether path conflicts with a peer's reservation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator()
		if err != nil {
			return err
		}
		conflicts, err := action.CheckConflict(c, args[0])
		if err != nil {
			return err
		}
		if len(conflicts) == 0 {
			fmt.Println("no conflicts")
			return nil
		}
		var who []string
		for _, cf := range conflicts {
			who = append(who, fmt.Sprintf("%s (%s)", cf.Agent, cf.Pattern))
		}
		fmt.Printf("conflicts: %s\n", strings.Join(who, ", "))
		return nil
	},
}

var feedLimit int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show recent activity feed events",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newCoordinator()
		if err != nil {
			return err
		}
		res := action.Dispatch(c, action.FeedRequest{Limit: feedLimit})
		if res.Err != nil {
			return res.Err
		}
		for _, ev := range res.Payload.([]feed.Event) {
			fmt.Printf("%s %-8s %s %v\n", ev.Timestamp.Format("15:04:05"), ev.Kind, ev.Agent, ev.Fields)
		}
		return nil
	},
}

func init() {
	reserveCmd.Flags().StringVar(&reserveReason, "reason", "", "human-readable reason for this reservation")
	feedCmd.Flags().IntVar(&feedLimit, "limit", 50, "maximum number of recent events to show")
	rootCmd.AddCommand(reserveCmd, releaseCmd, checkCmd, feedCmd)
}
