package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"jordanella.com/offer-story-go/internal/adb"
)

func init() {
	rootCmd.AddCommand(devicesCmd)
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Lists the devices adb can see.",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := adb.FindADB(cfg.ADB.Path)
		if err != nil {
			return err
		}
		devices, err := adb.ListDevices(cmd.Context(), adb.ExecRunner{}, path)
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no devices attached")
			return nil
		}
		for _, d := range devices {
			fmt.Fprintf(cmd.OutOrStdout(), "%-24s %-12s %s\n", d.Serial, d.State, d.Model)
		}
		return nil
	},
}
