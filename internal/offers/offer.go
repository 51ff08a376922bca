package offers

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Offer is one scraped product page
type Offer struct {
	URL          string
	Title        string
	Thumbnail    string  // Local path of the downloaded product image
	PriceNow     float64
	PriceBefore  float64 // 0 when the page shows no list price
	DiscountRate float64 // 0.37 for 37%; 0 when absent
}

// HasDiscount reports whether the page showed both a list price and a saving
func (o *Offer) HasDiscount() bool {
	return o.PriceBefore > 0 && o.DiscountRate > 0
}

// DiscountLabel formats the rate as a whole percentage, e.g. "37%"
func (o *Offer) DiscountLabel() string {
	return fmt.Sprintf("%d%%", int(math.Round(o.DiscountRate*100)))
}

// ShortName is the first word of the title, safe to use in a file name
func (o *Offer) ShortName() string {
	first, _, _ := strings.Cut(strings.TrimSpace(o.Title), " ")
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			return r
		}
		return -1
	}, first)
	if name == "" {
		return "offer"
	}
	return name
}

func (o *Offer) String() string {
	if o.HasDiscount() {
		return fmt.Sprintf("%s: R$%s (was R$%s, -%s)", o.Title, FormatPrice(o.PriceNow), FormatPrice(o.PriceBefore), o.DiscountLabel())
	}
	return fmt.Sprintf("%s: R$%s", o.Title, FormatPrice(o.PriceNow))
}

// FormatPrice renders a price the Brazilian way: 1234.5 -> "1.234,50"
func FormatPrice(value float64) string {
	cents := int64(math.Round(math.Abs(value) * 100))
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	if value < 0 && cents > 0 {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	fmt.Fprintf(&b, ",%02d", cents%100)
	return b.String()
}
