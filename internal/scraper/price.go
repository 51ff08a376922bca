package scraper

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ParsePrice reads the price formats product pages use:
// "R$ 1.299,90", "1.299,", "1299.", "90", "12.50".
func ParsePrice(text string) (float64, error) {
	s := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) || r == '.' || r == ',' || r == '-' {
			return r
		}
		return -1
	}, text)
	s = strings.TrimRight(s, ".,")
	if s == "" || s == "-" {
		return 0, fmt.Errorf("no price in %q", text)
	}

	hasDot, hasComma := strings.Contains(s, "."), strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		// 1.299,90: dots group thousands
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	case hasDot:
		// 1.299 groups thousands, 12.50 is a decimal
		last := s[strings.LastIndex(s, ".")+1:]
		if len(last) == 3 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", text, err)
	}
	return value, nil
}

// parseSplitPrice joins Amazon's whole and fraction spans
func parseSplitPrice(whole, fraction string) (float64, error) {
	digits := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsDigit(r) {
				return r
			}
			return -1
		}, s)
	}

	w := digits(whole)
	if w == "" {
		return 0, fmt.Errorf("no whole price in %q", whole)
	}
	f := digits(fraction)
	if f == "" {
		f = "0"
	}
	return strconv.ParseFloat(w+"."+f, 64)
}

// parseDiscount turns "-37%" into 0.37
func parseDiscount(text string) (float64, error) {
	s := strings.TrimSpace(strings.NewReplacer("-", "", "%", "", " ", "").Replace(text))
	if s == "" {
		return 0, fmt.Errorf("no discount in %q", text)
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid discount %q: %w", text, err)
	}
	return value / 100, nil
}
