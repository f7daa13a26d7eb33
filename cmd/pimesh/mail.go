package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pimesh/messenger/internal/action"
	"github.com/pimesh/messenger/internal/inbox"
)

var sendReplyTo string

var sendCmd = &cobra.Command{
	Use:   "send [to] [text...]",
	Short: "Send a direct message to another agent",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		res := action.Dispatch(c, action.SendRequest{To: args[0], Text: text, ReplyTo: sendReplyTo})
		if res.Err != nil {
			return res.Err
		}
		msg := res.Payload.(*inbox.Message)
		fmt.Printf("sent %s -> %s\n", msg.From, msg.To)
		return nil
	},
}

var broadcastCmd = &cobra.Command{
	Use:   "broadcast [text...]",
	Short: "Send text to every live peer",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		text := strings.Join(args, " ")
		res := action.Dispatch(c, action.BroadcastRequest{Text: text})
		if res.Err != nil {
			return res.Err
		}
		names := res.Payload.([]string)
		fmt.Printf("broadcast to %d peer(s): %s\n", len(names), strings.Join(names, ", "))
		return nil
	},
}

var searchFrom string

var mailSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search pending and archived mail for text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := joinSelf("")
		if err != nil {
			return err
		}
		results, err := c.Mailbox.Search(inbox.SearchOptions{Query: args[0], From: searchFrom})
		if err != nil {
			return err
		}
		for _, msg := range results {
			fmt.Printf("%s  %-12s %s\n", msg.Timestamp.Format("2006-01-02 15:04:05"), msg.From, msg.Text)
		}
		return nil
	},
}

var mailCmd = &cobra.Command{
	Use:   "mail",
	Short: "Inspect and search this agent's mail history",
}

func init() {
	sendCmd.Flags().StringVar(&sendReplyTo, "reply-to", "", "id of the message this one replies to")
	mailSearchCmd.Flags().StringVar(&searchFrom, "from", "", "only match messages from this sender")
	mailCmd.AddCommand(mailSearchCmd)
	rootCmd.AddCommand(sendCmd, broadcastCmd, mailCmd)
}
