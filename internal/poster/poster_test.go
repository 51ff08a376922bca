package poster

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"jordanella.com/offer-story-go/internal/cv"
	"jordanella.com/offer-story-go/internal/offers"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

var white = color.RGBA{255, 255, 255, 255}

func TestWrapText(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		width    int
		maxLines int
		want     string
	}{
		{"fits", "Cabo USB-C", 30, 2, "Cabo USB-C"},
		{"two lines", "Fone de Ouvido Bluetooth JBL Tune 510BT Preto com microfone", 30, 2,
			"Fone de Ouvido Bluetooth JBL\nTune 510BT Preto com microfone"},
		{"truncated", "Fone de Ouvido Bluetooth JBL Tune 510BT Preto com microfone sem fio", 30, 2,
			"Fone de Ouvido Bluetooth JBL\nTune 510BT Preto com [...]"},
		{"long word", "abcdefghij", 4, 0, "abcd\nefgh\nij"},
		{"long word after short", "ab cdefgh", 4, 0, "ab c\ndefg\nh"},
		{"whitespace collapsed", "  a \t b\n c ", 10, 0, "a b c"},
		{"empty", "   ", 10, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, WrapText(tt.text, tt.width, tt.maxLines, " [...]"))
		})
	}
}

func TestPasteScalesIntoRect(t *testing.T) {
	s := NewSessionFromImage(solid(100, 100, white), nil)
	s.Paste(solid(10, 10, color.RGBA{0, 0, 255, 255}), image.Rect(20, 20, 60, 60), false)

	require.Equal(t, color.RGBA{0, 0, 255, 255}, s.Canvas().RGBAAt(40, 40))
	require.Equal(t, white, s.Canvas().RGBAAt(10, 10))
	require.Equal(t, white, s.Canvas().RGBAAt(60, 60))
}

func TestPasteWithAlphaKeepsBackground(t *testing.T) {
	s := NewSessionFromImage(solid(50, 50, white), nil)
	overlay := image.NewRGBA(image.Rect(0, 0, 50, 50)) // fully transparent
	s.Paste(overlay, image.Rect(0, 0, 50, 50), true)
	require.Equal(t, white, s.Canvas().RGBAAt(25, 25))

	s.Paste(overlay, image.Rect(0, 0, 50, 50), false)
	require.Equal(t, color.RGBA{}, s.Canvas().RGBAAt(25, 25))
}

func countDark(img *image.RGBA, r image.Rectangle) int {
	n := 0
	r = r.Intersect(img.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if img.RGBAAt(x, y).R < 128 {
				n++
			}
		}
	}
	return n
}

func TestTextDrawsInsideReturnedBounds(t *testing.T) {
	s := NewSessionFromImage(solid(400, 200, white), nil)

	bounds, err := s.Text(TextBox{Text: "R$199,90", X: 200, Y: 50, Anchor: AnchorMiddle, Size: 40, Color: color.Black, Bold: true})
	require.NoError(t, err)
	require.False(t, bounds.Empty())

	inside := countDark(s.Canvas(), bounds)
	require.Greater(t, inside, 0)
	require.Equal(t, countDark(s.Canvas(), bounds.Inset(-2)), countDark(s.Canvas(), s.Canvas().Bounds()), "no glyph pixels outside the bounds")

	center := (bounds.Min.X + bounds.Max.X) / 2
	require.InDelta(t, 200, center, 2)
	require.GreaterOrEqual(t, bounds.Min.Y, 50)
}

func TestTextMultilineAndStrike(t *testing.T) {
	s := NewSessionFromImage(solid(400, 300, white), nil)

	one, err := s.Text(TextBox{Text: "linha", X: 10, Y: 10, Size: 30})
	require.NoError(t, err)
	two, err := s.Text(TextBox{Text: "linha\nlinha", X: 10, Y: 100, Size: 30})
	require.NoError(t, err)
	require.Greater(t, two.Dy(), one.Dy()*3/2)

	s = NewSessionFromImage(solid(400, 100, white), nil)
	struck, err := s.Text(TextBox{Text: "R$299,90", X: 10, Y: 10, Size: 40, Strikethrough: true})
	require.NoError(t, err)
	mid := struck.Min.Y + struck.Dy()/2
	// The strike line covers the whole row, including the gaps between glyphs
	for x := struck.Min.X; x < struck.Max.X; x++ {
		if s.Canvas().RGBAAt(x, mid).R >= 128 {
			t.Fatalf("strike line missing at x=%d", x)
		}
	}

	_, err = s.Text(TextBox{Text: "x", Size: 0})
	require.Error(t, err)
}

func TestLoadFonts(t *testing.T) {
	fs, err := LoadFonts("", "")
	require.NoError(t, err)
	face, err := fs.Face(20, false)
	require.NoError(t, err)
	again, err := fs.Face(20, false)
	require.NoError(t, err)
	require.Same(t, face, again)

	_, err = LoadFonts(filepath.Join(t.TempDir(), "missing.ttf"), "")
	require.Error(t, err)

	bogus := filepath.Join(t.TempDir(), "bogus.ttf")
	require.NoError(t, os.WriteFile(bogus, []byte("not a font"), 0644))
	_, err = LoadFonts("", bogus)
	require.Error(t, err)
}

func composeFixture(t *testing.T) (*Composer, string) {
	t.Helper()
	dir := t.TempDir()

	template := filepath.Join(dir, "template.png")
	writePNG(t, template, solid(720, 1280, white))

	thumb := filepath.Join(dir, "thumb.png")
	writePNG(t, thumb, solid(64, 64, color.RGBA{0, 0, 255, 255}))

	overlay := filepath.Join(dir, "boom.png")
	boom := image.NewRGBA(image.Rect(0, 0, 70, 49))
	for x := 0; x < 70; x++ {
		boom.SetRGBA(x, 48, color.RGBA{255, 0, 0, 255})
	}
	writePNG(t, overlay, boom)

	return &Composer{
		TemplatePath: template,
		OverlayPath:  overlay,
		OutputDir:    filepath.Join(dir, "out"),
	}, thumb
}

func TestComposeOffer(t *testing.T) {
	c, thumb := composeFixture(t)

	discounted := &offers.Offer{Title: "Fone de Ouvido Bluetooth JBL", Thumbnail: thumb, PriceNow: 199.9, PriceBefore: 299.9, DiscountRate: 0.33}
	path, err := c.ComposeOffer(discounted, "0-Fone.png")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(c.OutputDir, "0-Fone.png"), path)

	img, err := cv.LoadRaster(path)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 720, 1280), img.Bounds())
	require.Equal(t, color.RGBA{0, 0, 255, 255}, img.RGBAAt(360, 423), "thumbnail centre")
	require.Equal(t, white, img.RGBAAt(5, 5), "template corner untouched")
	require.Greater(t, countDark(img, image.Rect(0, 740, 720, 840)), 0, "title drawn")
	require.Greater(t, countDark(img, image.Rect(beforeLabelX, beforeRowY, 720, beforeRowY+60)), 0, "before price row drawn")

	plain := &offers.Offer{Title: "Cabo", Thumbnail: thumb, PriceNow: 10}
	path, err = c.ComposeOffer(plain, "1-Cabo.png")
	require.NoError(t, err)
	img, err = cv.LoadRaster(path)
	require.NoError(t, err)
	require.Zero(t, countDark(img, image.Rect(0, 950, 720, 990)), "no before price row")
}

func TestComposeOfferErrors(t *testing.T) {
	c, thumb := composeFixture(t)

	_, err := c.ComposeOffer(nil, "x.png")
	require.Error(t, err)

	_, err = c.ComposeOffer(&offers.Offer{Title: "x", PriceNow: 1}, "x.png")
	require.ErrorContains(t, err, "no thumbnail")

	_, err = c.ComposeOffer(&offers.Offer{Title: "x", PriceNow: 1, Thumbnail: thumb + ".missing"}, "x.png")
	require.ErrorContains(t, err, "failed to paste thumbnail")

	c.TemplatePath = ""
	_, err = c.ComposeOffer(&offers.Offer{Title: "x", PriceNow: 1, Thumbnail: thumb}, "x.png")
	require.ErrorContains(t, err, "failed to load template")
}
