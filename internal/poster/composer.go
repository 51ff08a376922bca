package poster

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path/filepath"

	"jordanella.com/offer-story-go/internal/logging"
	"jordanella.com/offer-story-go/internal/offers"
)

// Layout of the 720x1280 offer template
var (
	thumbnailRect = image.Rect(109, 172, 109+502, 172+502)
	overlayRect   = image.Rect(10, 620, 10+700, 620+489)
)

const (
	canvasCenterX = 720 / 2

	titleY        = 745
	titleSize     = 35
	titleWidth    = 30
	titleMaxLines = 2
	titleEllipsis = " [...]"

	discountX     = 132
	priceNowX     = 132 + 150
	discountRowY  = 850
	discountSize  = 60
	beforeLabelX  = 131
	beforePriceX  = 207
	beforeRowY    = 920
	beforeSize    = 40
	plainPriceY   = 858
	plainPriceSz  = 70
	currencyLabel = "R$"
)

var (
	discountColor = color.RGBA{R: 255, A: 255}
	mutedColor    = color.RGBA{R: 84, G: 84, B: 84, A: 255}
)

// Composer renders story images for offers
type Composer struct {
	TemplatePath string
	OverlayPath  string // Optional price "boom" drawn over the thumbnail
	OutputDir    string
	Fonts        *FontSet
	Logger       *logging.Logger
}

// ComposeOffer renders offer onto the template and saves it as OutputDir/name.
// It returns the written path.
func (c *Composer) ComposeOffer(offer *offers.Offer, name string) (string, error) {
	if offer == nil {
		return "", errors.New("offer is nil")
	}
	if offer.Thumbnail == "" {
		return "", errors.New("offer has no thumbnail")
	}
	logger := c.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	logger.Debug("Creating post image from template")
	session, err := NewSession(c.TemplatePath, c.Fonts)
	if err != nil {
		return "", err
	}

	logger.Debug("Adding product thumbnail")
	if err := session.PasteFile(offer.Thumbnail, thumbnailRect, false); err != nil {
		return "", fmt.Errorf("failed to paste thumbnail: %w", err)
	}

	if c.OverlayPath != "" {
		logger.Debug("Adding price overlay")
		if err := session.PasteFile(c.OverlayPath, overlayRect, true); err != nil {
			return "", fmt.Errorf("failed to paste overlay: %w", err)
		}
	}

	if err := DrawOffer(session, offer); err != nil {
		return "", err
	}

	path := filepath.Join(c.OutputDir, name)
	logger.Debugf("Saving post image to %s", path)
	if err := session.Save(path); err != nil {
		return "", err
	}
	return path, nil
}

// DrawOffer writes the title and price rows
func DrawOffer(session *Session, offer *offers.Offer) error {
	boxes := []TextBox{{
		Text:   WrapText(offer.Title, titleWidth, titleMaxLines, titleEllipsis),
		X:      canvasCenterX,
		Y:      titleY,
		Anchor: AnchorMiddle,
		Size:   titleSize,
		Color:  color.Black,
	}}

	if offer.HasDiscount() {
		boxes = append(boxes,
			TextBox{Text: "-" + offer.DiscountLabel(), X: discountX, Y: discountRowY, Size: discountSize, Color: discountColor},
			TextBox{Text: currencyLabel + offers.FormatPrice(offer.PriceNow), X: priceNowX, Y: discountRowY, Size: discountSize, Color: color.Black, Bold: true},
			TextBox{Text: "De:", X: beforeLabelX, Y: beforeRowY, Size: beforeSize, Color: mutedColor},
			TextBox{Text: currencyLabel + offers.FormatPrice(offer.PriceBefore), X: beforePriceX, Y: beforeRowY, Size: beforeSize, Color: mutedColor, Strikethrough: true},
		)
	} else {
		boxes = append(boxes, TextBox{
			Text:   currencyLabel + offers.FormatPrice(offer.PriceNow),
			X:      canvasCenterX,
			Y:      plainPriceY,
			Anchor: AnchorMiddle,
			Size:   plainPriceSz,
			Color:  color.Black,
			Bold:   true,
		})
	}

	for _, box := range boxes {
		if _, err := session.Text(box); err != nil {
			return fmt.Errorf("failed to draw %q: %w", box.Text, err)
		}
	}
	return nil
}
