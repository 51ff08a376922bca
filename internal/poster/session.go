package poster

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"jordanella.com/offer-story-go/internal/cv"
)

// Anchor is the horizontal reference of a TextBox position
type Anchor int

const (
	AnchorLeft   Anchor = iota // X is the left edge of each line
	AnchorMiddle               // X is the centre of each line
)

// lineSpacing is the extra gap between wrapped lines
const lineSpacing = 4

// TextBox describes one block of text. Y is the top of the first line.
type TextBox struct {
	Text          string
	X, Y          int
	Anchor        Anchor
	Size          float64
	Color         color.Color
	Bold          bool
	Strikethrough bool
	Underline     bool
}

// Session owns one canvas being composed
type Session struct {
	canvas *image.RGBA
	fonts  *FontSet
}

// NewSession starts from a copy of the template image
func NewSession(templatePath string, fonts *FontSet) (*Session, error) {
	img, err := cv.LoadRaster(templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}
	return NewSessionFromImage(img, fonts), nil
}

// NewSessionFromImage composes on img directly
func NewSessionFromImage(img *image.RGBA, fonts *FontSet) *Session {
	if fonts == nil {
		fonts = DefaultFonts()
	}
	return &Session{canvas: img, fonts: fonts}
}

func (s *Session) Canvas() *image.RGBA {
	return s.canvas
}

// Paste scales src into rect. With alpha the source is blended over the
// canvas, otherwise it replaces the pixels.
func (s *Session) Paste(src image.Image, rect image.Rectangle, withAlpha bool) {
	op := xdraw.Src
	if withAlpha {
		op = xdraw.Over
	}
	xdraw.CatmullRom.Scale(s.canvas, rect, src, src.Bounds(), op, nil)
}

// PasteFile loads an image file and pastes it
func (s *Session) PasteFile(path string, rect image.Rectangle, withAlpha bool) error {
	img, err := cv.LoadRaster(path)
	if err != nil {
		return err
	}
	s.Paste(img, rect, withAlpha)
	return nil
}

// Text draws box and returns the rectangle covered by the glyphs
func (s *Session) Text(box TextBox) (image.Rectangle, error) {
	if box.Size <= 0 {
		return image.Rectangle{}, fmt.Errorf("text size %v must be positive", box.Size)
	}
	face, err := s.fonts.Face(box.Size, box.Bold)
	if err != nil {
		return image.Rectangle{}, err
	}

	fill := box.Color
	if fill == nil {
		fill = color.Black
	}

	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := metrics.Height.Ceil() + lineSpacing
	drawer := &font.Drawer{Dst: s.canvas, Src: image.NewUniform(fill), Face: face}

	var covered image.Rectangle
	for i, line := range strings.Split(box.Text, "\n") {
		width := drawer.MeasureString(line).Ceil()
		x := box.X
		if box.Anchor == AnchorMiddle {
			x -= width / 2
		}
		top := box.Y + i*lineHeight
		drawer.Dot = fixed.P(x, top+ascent)
		drawer.DrawString(line)

		lineRect := image.Rect(x, top, x+width, top+metrics.Ascent.Ceil()+metrics.Descent.Ceil())
		covered = covered.Union(lineRect)

		thickness := max(1, int(box.Size/10))
		if box.Strikethrough {
			mid := top + (lineRect.Dy())/2
			s.hline(x, x+width, mid-thickness/2, thickness, fill)
		}
		if box.Underline {
			s.hline(x, x+width, lineRect.Max.Y-thickness, thickness, fill)
		}
	}
	return covered, nil
}

func (s *Session) hline(x0, x1, y, thickness int, c color.Color) {
	rect := image.Rect(x0, y, x1, y+thickness)
	xdraw.Draw(s.canvas, rect, image.NewUniform(c), image.Point{}, xdraw.Over)
}

// Save writes the canvas as PNG, creating the folder if needed
func (s *Session) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output folder: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, s.canvas); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
