package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	queueCmd.AddCommand(queueListCmd, queueAddCmd, queueInitCmd)
	rootCmd.AddCommand(queueCmd)
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Manages the offer URL queue file.",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "Prints the valid URLs in the queue, in posting order.",
	RunE: func(cmd *cobra.Command, args []string) error {
		urls, err := cfg.Offers.Queue().Load()
		if err != nil {
			return err
		}
		for i, url := range urls {
			fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", i+1, url)
		}
		return nil
	},
}

var queueAddCmd = &cobra.Command{
	Use:   "add <url>...",
	Short: "Appends URLs to the end of the queue.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		queue := cfg.Offers.Queue()
		for _, url := range args {
			if err := queue.Add(url); err != nil {
				return err
			}
		}
		return nil
	},
}

var queueInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Creates the queue file with its header if it does not exist.",
	RunE: func(cmd *cobra.Command, args []string) error {
		queue := cfg.Offers.Queue()
		created, err := queue.Ensure()
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintln(cmd.OutOrStdout(), "created "+queue.Path)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), queue.Path+" already exists")
		}
		return nil
	},
}
