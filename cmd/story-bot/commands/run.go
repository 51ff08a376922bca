package commands

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"jordanella.com/offer-story-go/internal/bot"
	"jordanella.com/offer-story-go/internal/database"
	"jordanella.com/offer-story-go/internal/logging"
	"jordanella.com/offer-story-go/internal/poster"
	"jordanella.com/offer-story-go/internal/scraper"
)

var (
	runTest  bool
	runLimit int
)

func init() {
	runCmd.Flags().BoolVar(&runTest, "test", false, "Go through the story flow but stop before publishing.")
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "Publish at most this many offers; already posted offers that are skipped do not count. 0 means the whole queue.")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--test] [--limit <n>]",
	Short: "Publishes every offer in the queue, front to back.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		device, err := bot.Connect(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer closeDevice(ctx, device)
		publisher, err := bot.NewRoutinePublisher(device, cfg.Story, logger.Child("story"))
		if err != nil {
			return err
		}
		composer, err := newComposer()
		if err != nil {
			return err
		}

		opts := bot.Options{
			Queue:      cfg.Offers.Queue(),
			Source:     newScraper(),
			Composer:   composer,
			Publisher:  publisher,
			SkipPosted: cfg.Offers.SkipPosted,
			Serial:     device.Serial,
			Reporter:   newReporter(cmd.ErrOrStderr()),
			Logger:     logger,
		}
		if cfg.Database.Enabled {
			db, err := database.OpenAndMigrate(cfg.Database.Path, logger.Child("database"))
			if err != nil {
				return err
			}
			defer db.Close()
			opts.Journal = db
		}

		b, err := bot.New(opts)
		if err != nil {
			return err
		}
		summary, runErr := b.Run(ctx, bot.RunOptions{Test: runTest, Limit: runLimit})

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "queued %d, posted %d, skipped %d, failed %d\n",
			summary.Queued, summary.Posted, summary.Skipped, summary.Failed)
		for _, image := range summary.Images {
			fmt.Fprintln(out, "  "+image)
		}
		if runErr != nil {
			printReports(out, b.Reporter())
		}
		return runErr
	},
}

// newReporter echoes critical reports to w as they happen; they mean the
// queue file no longer matches what was posted
func newReporter(w io.Writer) *logging.ErrorReporter {
	reporter := logging.NewErrorReporter(logger)
	reporter.OnError(logging.ErrorSeverityCritical, func(r logging.ErrorReport) {
		fmt.Fprintf(w, "critical: %s: %v\n", r.Message, r.Err)
	})
	return reporter
}

// printReports summarises the failures of a run by category
func printReports(w io.Writer, reporter *logging.ErrorReporter) {
	stats := reporter.GetErrorStats()
	if stats["total"] == 0 {
		return
	}

	keys := make([]string, 0, len(stats))
	for k := range stats {
		if strings.HasPrefix(k, "category_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	fmt.Fprintf(w, "%d error(s) reported:", stats["total"])
	for _, k := range keys {
		fmt.Fprintf(w, " %s=%d", strings.TrimPrefix(k, "category_"), stats[k])
	}
	fmt.Fprintln(w)
	for _, r := range reporter.GetRecentErrors(5) {
		fmt.Fprintf(w, "  [%s] %s: %v\n", r.Severity, r.Message, r.Err)
	}
}

// closeDevice releases a network device even when ctx was cancelled
func closeDevice(ctx context.Context, device *bot.Device) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := device.Close(ctx); err != nil {
		logger.Warn("Failed to disconnect device: " + err.Error())
	}
}

func newScraper() *scraper.Scraper {
	return scraper.New(scraper.Options{
		TempDir:    cfg.Image.TempDir,
		UserAgent:  cfg.Scraper.UserAgent,
		Timeout:    cfg.Scraper.Timeout(),
		RetryCount: cfg.Scraper.Retries,
		Logger:     logger.Child("scraper"),
	})
}

func newComposer() (*poster.Composer, error) {
	fonts, err := poster.LoadFonts(cfg.Image.FontRegular, cfg.Image.FontBold)
	if err != nil {
		return nil, err
	}
	return &poster.Composer{
		TemplatePath: cfg.Image.Template,
		OverlayPath:  cfg.Image.Overlay,
		OutputDir:    cfg.Image.OutputDir,
		Fonts:        fonts,
		Logger:       logger.Child("poster"),
	}, nil
}
