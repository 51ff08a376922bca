package scraper

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

const discountedPage = `<html><body>
<span id="productTitle">
   Fone de Ouvido Bluetooth   JBL Tune 510BT
</span>
<div id="imgTagWrapperId"><img src="/images/thumb.png" alt="fone"></div>
<div id="corePriceDisplay_desktop_feature_div">
  <span class="savingsPercentage">-37%</span>
  <span class="a-price"><span class="a-price-whole">1.299<span class="a-price-decimal">,</span></span><span class="a-price-fraction">90</span></span>
  <div class="a-spacing-small">
    <span class="a-price a-text-price"><span class="a-offscreen">R$&nbsp;2.062,00</span><span aria-hidden="true">R$2.062,00</span></span>
  </div>
</div>
</body></html>`

const plainPage = `<html><body>
<span id="productTitle">Cabo USB-C</span>
<div id="imgTagWrapperId"><img src="data:image/gif;base64,R0lGOD" data-old-hires="/images/thumb.png"></div>
<div id="corePriceDisplay_desktop_feature_div">
  <span class="a-price-whole">49,</span><span class="a-price-fraction">99</span>
</div>
</body></html>`

const noTitlePage = `<html><body>
<div id="imgTagWrapperId"><img src="/images/thumb.png"></div>
<div id="corePriceDisplay_desktop_feature_div"><span class="a-price-whole">10</span></div>
</body></html>`

func thumbnailPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(3, 3, color.RGBA{R: 200, A: 255})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func fixtureServer(t *testing.T) *httptest.Server {
	t.Helper()
	thumb := thumbnailPNG(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/dp/discounted", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(discountedPage))
	})
	mux.HandleFunc("/dp/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(plainPage))
	})
	mux.HandleFunc("/dp/notitle", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(noTitlePage))
	})
	mux.HandleFunc("/dp/broken-image", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Replace(discountedPage, "/images/thumb.png", "/images/not-an-image", 1)))
	})
	mux.HandleFunc("/images/thumb.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(thumb)
	})
	mux.HandleFunc("/images/not-an-image", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>captcha</html>"))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestScrapeDiscountedOffer(t *testing.T) {
	srv := fixtureServer(t)
	dir := t.TempDir()
	s := New(Options{TempDir: dir})

	offer, err := s.Scrape(context.Background(), srv.URL+"/dp/discounted")
	require.NoError(t, err)

	require.Equal(t, srv.URL+"/dp/discounted", offer.URL)
	require.Equal(t, "Fone de Ouvido Bluetooth JBL Tune 510BT", offer.Title)
	require.InDelta(t, 1299.90, offer.PriceNow, 1e-9)
	require.InDelta(t, 2062.00, offer.PriceBefore, 1e-9)
	require.InDelta(t, 0.37, offer.DiscountRate, 1e-9)
	require.True(t, offer.HasDiscount())

	f, err := os.Open(offer.Thumbnail)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	require.Equal(t, 8, img.Bounds().Dx())
}

func TestScrapePlainOffer(t *testing.T) {
	srv := fixtureServer(t)
	s := New(Options{TempDir: t.TempDir(), ThumbnailName: "cabo.png"})

	offer, err := s.Scrape(context.Background(), srv.URL+"/dp/plain")
	require.NoError(t, err)
	require.Equal(t, "Cabo USB-C", offer.Title)
	require.InDelta(t, 49.99, offer.PriceNow, 1e-9)
	require.Zero(t, offer.PriceBefore)
	require.Zero(t, offer.DiscountRate)
	require.False(t, offer.HasDiscount())
	require.True(t, strings.HasSuffix(offer.Thumbnail, "cabo.png"))
}

func TestScrapeFailures(t *testing.T) {
	srv := fixtureServer(t)
	s := New(Options{TempDir: t.TempDir()})
	ctx := context.Background()

	_, err := s.Scrape(ctx, srv.URL+"/dp/notitle")
	require.ErrorIs(t, err, ErrMissingElement)

	_, err = s.Scrape(ctx, srv.URL+"/dp/broken-image")
	require.ErrorContains(t, err, "thumbnail is not an image")

	_, err = s.Scrape(ctx, srv.URL+"/dp/missing")
	require.ErrorContains(t, err, "status 404")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.Scrape(cancelled, srv.URL+"/dp/plain")
	require.Error(t, err)
}

func TestParseOfferMissingPrice(t *testing.T) {
	html := `<span id="productTitle">X</span><div id="imgTagWrapperId"><img src="a.png"></div>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	_, _, err = ParseOffer(doc, "https://amzn.to/x")
	require.ErrorIs(t, err, ErrMissingElement)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"R$ 1.299,90", 1299.90, false},
		{"R$ 2.062,00", 2062, false},
		{"1.299,", 1299, false},
		{"1299.", 1299, false},
		{"90", 90, false},
		{"12.50", 12.5, false},
		{"1.299", 1299, false},
		{"49,99", 49.99, false},
		{"R$", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := ParsePrice(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParsePrice(%q) expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParsePrice(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("ParsePrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseDiscount(t *testing.T) {
	rate, err := parseDiscount(" -15% ")
	require.NoError(t, err)
	require.InDelta(t, 0.15, rate, 1e-9)

	_, err = parseDiscount("%")
	require.Error(t, err)
}
