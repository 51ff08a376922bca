package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	_ "golang.org/x/image/webp"

	"jordanella.com/offer-story-go/internal/logging"
	"jordanella.com/offer-story-go/internal/offers"
)

// ErrMissingElement is returned when a required part of the product page is absent
var ErrMissingElement = errors.New("required element missing from page")

const (
	selectorTitle       = "#productTitle"
	selectorThumbnail   = "#imgTagWrapperId img"
	selectorPriceBlock  = "#corePriceDisplay_desktop_feature_div"
	selectorPriceWhole  = ".a-price-whole"
	selectorPriceFrac   = ".a-price-fraction"
	selectorPriceBefore = ".a-spacing-small .a-text-price"
	selectorSavings     = ".savingsPercentage"
)

const (
	defaultUserAgent     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultTimeout       = 30 * time.Second
	defaultThumbnailName = "thumbnail.png"
)

// Options configures a Scraper. Zero values use the defaults.
type Options struct {
	TempDir       string // Where the thumbnail is written
	ThumbnailName string
	UserAgent     string
	Timeout       time.Duration
	RetryCount    int
	Client        *resty.Client // Optional: preconfigured client
	Logger        *logging.Logger
}

// Scraper fetches product pages and turns them into offers
type Scraper struct {
	client        *resty.Client
	tempDir       string
	thumbnailName string
	logger        *logging.Logger
}

func New(opts Options) *Scraper {
	client := opts.Client
	if client == nil {
		client = resty.New()
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client.
		SetTimeout(timeout).
		SetRetryCount(opts.RetryCount).
		SetHeader("User-Agent", userAgent).
		SetHeader("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	s := &Scraper{
		client:        client,
		tempDir:       opts.TempDir,
		thumbnailName: opts.ThumbnailName,
		logger:        opts.Logger,
	}
	if s.tempDir == "" {
		s.tempDir = os.TempDir()
	}
	if s.thumbnailName == "" {
		s.thumbnailName = defaultThumbnailName
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	return s
}

// Scrape loads the page at pageURL, parses the offer and downloads its thumbnail
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*offers.Offer, error) {
	s.logger.Infof("Visiting offer page %s", pageURL)

	res, err := s.client.R().
		SetContext(ctx).
		Get(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("failed to fetch %s: status %d", pageURL, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}

	offer, thumbURL, err := ParseOffer(doc, pageURL)
	if err != nil {
		return nil, err
	}

	// Relative image paths are resolved against the final page URL
	base := pageURL
	if res.RawResponse != nil && res.RawResponse.Request != nil {
		base = res.RawResponse.Request.URL.String()
	}
	if resolved, err := resolveURL(base, thumbURL); err == nil {
		thumbURL = resolved
	}

	offer.Thumbnail, err = s.downloadThumbnail(ctx, thumbURL)
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithContext("Scraped offer", map[string]interface{}{
		"title":    offer.Title,
		"now":      offer.PriceNow,
		"before":   offer.PriceBefore,
		"discount": offer.DiscountRate,
	})
	return offer, nil
}

// ParseOffer extracts the offer fields from a product page.
// It returns the thumbnail URL as found in the page; Thumbnail is left empty.
func ParseOffer(doc *goquery.Document, pageURL string) (*offers.Offer, string, error) {
	title := strings.Join(strings.Fields(doc.Find(selectorTitle).First().Text()), " ")
	if title == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrMissingElement, selectorTitle)
	}

	img := doc.Find(selectorThumbnail).First()
	thumbURL, _ := img.Attr("src")
	if thumbURL == "" || strings.HasPrefix(thumbURL, "data:") {
		thumbURL, _ = img.Attr("data-old-hires")
	}
	if thumbURL == "" {
		return nil, "", fmt.Errorf("%w: %s", ErrMissingElement, selectorThumbnail)
	}

	block := doc.Find(selectorPriceBlock).First()
	whole := block.Find(selectorPriceWhole).First().Text()
	if strings.TrimSpace(whole) == "" {
		return nil, "", fmt.Errorf("%w: %s %s", ErrMissingElement, selectorPriceBlock, selectorPriceWhole)
	}
	now, err := parseSplitPrice(whole, block.Find(selectorPriceFrac).First().Text())
	if err != nil {
		return nil, "", fmt.Errorf("invalid current price: %w", err)
	}

	offer := &offers.Offer{URL: pageURL, Title: title, PriceNow: now}

	// The list price and saving are optional
	if before := block.Find(selectorPriceBefore).First(); before.Length() > 0 {
		text := before.Find(".a-offscreen").First().Text()
		if strings.TrimSpace(text) == "" {
			text = before.Text()
		}
		if value, err := ParsePrice(text); err == nil {
			offer.PriceBefore = value
		}
	}
	if savings := block.Find(selectorSavings).First(); savings.Length() > 0 {
		if rate, err := parseDiscount(savings.Text()); err == nil {
			offer.DiscountRate = rate
		}
	}

	return offer, thumbURL, nil
}

// downloadThumbnail fetches the image, checks it decodes and stores it as PNG
func (s *Scraper) downloadThumbnail(ctx context.Context, thumbURL string) (string, error) {
	s.logger.Debugf("Downloading thumbnail %s", thumbURL)

	res, err := s.client.R().
		SetContext(ctx).
		Get(thumbURL)
	if err != nil {
		return "", fmt.Errorf("failed to download thumbnail: %w", err)
	}
	if res.IsError() {
		return "", fmt.Errorf("failed to download thumbnail: status %d", res.StatusCode())
	}

	img, format, err := image.Decode(bytes.NewReader(res.Body()))
	if err != nil {
		return "", fmt.Errorf("thumbnail is not an image: %w", err)
	}

	if err := os.MkdirAll(s.tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp folder: %w", err)
	}
	path := filepath.Join(s.tempDir, s.thumbnailName)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create thumbnail file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", fmt.Errorf("failed to write thumbnail: %w", err)
	}

	s.logger.Debugf("Saved %s thumbnail to %s", format, path)
	return path, nil
}

func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}
