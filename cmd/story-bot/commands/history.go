package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"jordanella.com/offer-story-go/internal/database"
	"jordanella.com/offer-story-go/internal/offers"
)

var (
	historyLimit  int
	historyBackup string
	historyClear  bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show.")
	historyCmd.Flags().StringVar(&historyBackup, "backup", "", "Write a copy of the journal to this path first.")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Empty the journal, after the backup if one was requested.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [-n <count>] [--backup <file.db>] [--clear]",
	Short: "Shows the most recent entries of the post journal.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Database.Enabled {
			return errors.New("the post journal is disabled in the [Database] section")
		}
		db, err := database.OpenAndMigrate(cfg.Database.Path, logger.Child("database"))
		if err != nil {
			return err
		}
		defer db.Close()

		out := cmd.OutOrStdout()
		version, err := db.GetVersion()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "journal %s (schema v%d)\n", db.Path(), version)

		if historyBackup != "" {
			if err := db.Backup(historyBackup); err != nil {
				return err
			}
			fmt.Fprintln(out, "backup written to "+historyBackup)
		}
		if historyClear {
			if err := db.Reset(); err != nil {
				return err
			}
			fmt.Fprintln(out, "journal cleared")
		}

		posts, err := db.RecentPosts(historyLimit)
		if err != nil {
			return err
		}
		for _, p := range posts {
			fmt.Fprintf(out, "%s  %-6s  R$ %-10s  %s\n",
				p.CreatedAt.Format("2006-01-02 15:04"), p.Status, offers.FormatPrice(p.PriceNow), p.URL)
			if p.ErrorMessage != "" {
				fmt.Fprintln(out, "    "+p.ErrorMessage)
			}
		}

		counts, err := db.CountByStatus()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "posted %d, test %d, failed %d\n",
			counts[database.StatusPosted], counts[database.StatusTest], counts[database.StatusFailed])
		return nil
	},
}
