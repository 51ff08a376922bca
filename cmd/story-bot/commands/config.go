package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jordanella.com/offer-story-go/internal/bot"
	"jordanella.com/offer-story-go/internal/config"
)

var configForce bool

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing file.")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manages the INI configuration file.",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Writes the default settings to the --config path.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !configForce {
			return fmt.Errorf("%s already exists, use --force to overwrite it", configPath)
		}
		if err := config.SaveToINI(bot.DefaultConfig(), configPath); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "wrote "+configPath)
		return nil
	},
}
