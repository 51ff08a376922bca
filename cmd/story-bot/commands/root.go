package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"jordanella.com/offer-story-go/internal/bot"
	"jordanella.com/offer-story-go/internal/config"
	"jordanella.com/offer-story-go/internal/logging"
)

var (
	configPath string
	logLevel   string

	// Loaded by the root pre-run for every subcommand
	cfg    *bot.Config
	logger *logging.Logger
	logOut io.Closer
)

var rootCmd = &cobra.Command{
	Use:           "story-bot",
	Short:         "story-bot posts offers from a URL queue as stories on an Android device.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Logging.Level = logLevel
		}
		cfg = loaded
		return setupLogger(cfg.Logging, cmd.ErrOrStderr())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logOut != nil {
			logOut.Close()
			logOut = nil
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.ini", "Path to the INI configuration file.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level.")
}

// setupLogger writes to console and, when a log folder is configured, to a file
func setupLogger(c bot.LoggingConfig, console io.Writer) error {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return err
	}
	logger = logging.NewLogger("story-bot").SetMinLevel(level).SetOutputs(console)
	if logOut != nil {
		logOut.Close()
		logOut = nil
	}

	if c.Dir == "" {
		return nil
	}
	f, err := logging.OpenLogFile(c.Dir, c.File)
	if err != nil {
		return err
	}
	logger.AddOutput(f)
	logOut = f
	return nil
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
