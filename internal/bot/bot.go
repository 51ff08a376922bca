package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jordanella.com/offer-story-go/internal/database"
	"jordanella.com/offer-story-go/internal/logging"
	"jordanella.com/offer-story-go/internal/offers"
)

// OfferSource turns an offer URL into offer data with a local thumbnail.
// *scraper.Scraper satisfies it.
type OfferSource interface {
	Scrape(ctx context.Context, url string) (*offers.Offer, error)
}

// ImageComposer renders the story image. *poster.Composer satisfies it.
type ImageComposer interface {
	ComposeOffer(offer *offers.Offer, name string) (string, error)
}

// StoryPublisher puts a composed image on the account's story
type StoryPublisher interface {
	Publish(ctx context.Context, story Story) error
}

// Journal records what each run did. *database.DB satisfies it.
type Journal interface {
	RecordPost(p *database.Post) (int64, error)
	WasPosted(url string) (bool, error)
}

// RunOptions adjust a single run
type RunOptions struct {
	Test  bool // stop before the final publish tap
	Limit int  // max offers published; skipped offers do not count, 0 means no limit
}

// Summary counts what a run did
type Summary struct {
	Queued  int
	Posted  int
	Skipped int
	Failed  int
	Images  []string
}

// Bot scrapes, composes and publishes the offers in the queue, one by one
type Bot struct {
	queue      *offers.Queue
	source     OfferSource
	composer   ImageComposer
	publisher  StoryPublisher
	journal    Journal // optional
	skipPosted bool
	serial     string
	reporter   *logging.ErrorReporter
	logger     *logging.Logger
}

// Options are the collaborators of a Bot
type Options struct {
	Queue      *offers.Queue
	Source     OfferSource
	Composer   ImageComposer
	Publisher  StoryPublisher
	Journal    Journal
	SkipPosted bool
	Serial     string // device serial stored with each journal entry
	Reporter   *logging.ErrorReporter
	Logger     *logging.Logger
}

func New(opts Options) (*Bot, error) {
	switch {
	case opts.Queue == nil:
		return nil, errors.New("bot needs an offer queue")
	case opts.Source == nil:
		return nil, errors.New("bot needs an offer source")
	case opts.Composer == nil:
		return nil, errors.New("bot needs an image composer")
	case opts.Publisher == nil:
		return nil, errors.New("bot needs a story publisher")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	reporter := opts.Reporter
	if reporter == nil {
		reporter = logging.NewErrorReporter(logger)
	}
	return &Bot{
		queue:      opts.Queue,
		source:     opts.Source,
		composer:   opts.Composer,
		publisher:  opts.Publisher,
		journal:    opts.Journal,
		skipPosted: opts.SkipPosted,
		serial:     opts.Serial,
		reporter:   reporter,
		logger:     logger,
	}, nil
}

// Run processes the queue front to back. A URL leaves the queue only after
// its story was published. The first failure is journaled and ends the run
// with that URL still queued.
func (b *Bot) Run(ctx context.Context, opts RunOptions) (Summary, error) {
	var summary Summary
	b.logger.Info("Bot run start")

	created, err := b.queue.Ensure()
	if err != nil {
		return summary, err
	}
	if created {
		b.logger.Infof("Created %s, add offer URLs to it and run again", b.queue.Path)
	}

	urls, err := b.queue.Load()
	if err != nil {
		return summary, err
	}
	if len(urls) == 0 {
		return summary, fmt.Errorf("%s: %w", b.queue.Path, offers.ErrNoValidURLs)
	}
	summary.Queued = len(urls)

	for i, url := range urls {
		if opts.Limit > 0 && summary.Posted >= opts.Limit {
			b.logger.Infof("Reached limit of %d offers", opts.Limit)
			break
		}
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if b.skipPosted && b.alreadyPosted(url) {
			b.logger.Infof("Skipping offer already posted: %s", url)
			if err := b.dequeue(url); err != nil {
				return summary, err
			}
			summary.Skipped++
			continue
		}

		b.logger.Infof("Processing offer # %d of %d", i+1, len(urls))
		post, err := b.processOffer(ctx, i, url, opts.Test)
		b.record(post)
		if err != nil {
			summary.Failed++
			return summary, fmt.Errorf("offer %s: %w", url, err)
		}

		if err := b.dequeue(url); err != nil {
			return summary, err
		}
		summary.Posted++
		summary.Images = append(summary.Images, post.ImagePath)
	}

	b.logger.InfoWithContext("Bot run finish", map[string]interface{}{
		"posted":  summary.Posted,
		"skipped": summary.Skipped,
		"queued":  summary.Queued,
	})
	return summary, nil
}

// Reporter holds the failures reported during runs
func (b *Bot) Reporter() *logging.ErrorReporter {
	return b.reporter
}

// processOffer runs the three stages for one URL. The returned post is
// always filled in, with the error message on failure.
func (b *Bot) processOffer(ctx context.Context, index int, url string, test bool) (*database.Post, error) {
	start := time.Now()
	post := &database.Post{URL: url, Status: database.StatusFailed, DeviceSerial: b.serial}
	fail := func(category logging.ErrorCategory, err error) (*database.Post, error) {
		post.ErrorMessage = err.Error()
		post.Duration = time.Since(start)
		b.reporter.ReportErrorWithContext(category, logging.ErrorSeverityHigh, "Offer failed", err, map[string]interface{}{
			"url":   url,
			"index": index,
		})
		return post, err
	}

	offer, err := b.source.Scrape(ctx, url)
	if err != nil {
		return fail(logging.ErrorCategoryScrape, fmt.Errorf("scrape failed: %w", err))
	}
	post.Title = offer.Title
	post.PriceNow = offer.PriceNow
	post.PriceBefore = offer.PriceBefore
	post.DiscountRate = offer.DiscountRate

	name := fmt.Sprintf("%d-%s.png", index, offer.ShortName())
	imagePath, err := b.composer.ComposeOffer(offer, name)
	if err != nil {
		return fail(logging.ErrorCategoryCompose, fmt.Errorf("compose failed: %w", err))
	}
	post.ImagePath = imagePath

	story := Story{ImagePath: imagePath, LinkURL: offer.URL, Test: test}
	if err := b.publisher.Publish(ctx, story); err != nil {
		return fail(logging.ErrorCategoryPublish, fmt.Errorf("publish failed: %w", err))
	}

	post.Status = database.StatusPosted
	if test {
		post.Status = database.StatusTest
	}
	post.Duration = time.Since(start)
	b.logger.Infof("Offer done in %v: %s", post.Duration.Round(time.Millisecond), offer)
	return post, nil
}

// dequeue drops url from the front of the queue file
func (b *Bot) dequeue(url string) error {
	popped, err := b.queue.Pop()
	if err != nil {
		err = fmt.Errorf("failed to update queue: %w", err)
		b.reporter.ReportError(logging.ErrorCategoryQueue, logging.ErrorSeverityCritical, "Queue not updated", err)
		return err
	}
	if popped != url {
		b.logger.Warn(fmt.Sprintf("Queue changed during the run: expected %s, removed %s", url, popped))
	}
	return nil
}

func (b *Bot) alreadyPosted(url string) bool {
	if b.journal == nil {
		return false
	}
	posted, err := b.journal.WasPosted(url)
	if err != nil {
		b.reporter.ReportError(logging.ErrorCategoryJournal, logging.ErrorSeverityMedium, "Failed to check journal", err)
		return false
	}
	return posted
}

// record journals post; a journal failure never fails the run
func (b *Bot) record(post *database.Post) {
	if b.journal == nil || post == nil {
		return
	}
	if _, err := b.journal.RecordPost(post); err != nil {
		b.reporter.ReportError(logging.ErrorCategoryJournal, logging.ErrorSeverityMedium, "Failed to record post", err)
	}
}
