package cv

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	xdraw "golang.org/x/image/draw"
)

// MatchResult contains template matching results.
// When Found is false the Region is zero; Confidence still holds the best
// score seen so callers can log how close the match came.
type MatchResult struct {
	Found      bool
	Region     Region
	Confidence float64
}

// Matcher finds a needle image inside a haystack image
type Matcher interface {
	Match(needle, haystack *image.RGBA, confidence float64) (MatchResult, error)
}

// MatchMethod defines template matching algorithm
type MatchMethod int

const (
	// MatchMethodSAD - Sum of Absolute Differences (fastest)
	MatchMethodSAD MatchMethod = iota
	// MatchMethodSSD - Sum of Squared Differences (balanced)
	MatchMethodSSD
	// MatchMethodNCC - Normalized Cross-Correlation (most accurate)
	MatchMethodNCC
)

func (m MatchMethod) String() string {
	switch m {
	case MatchMethodSAD:
		return "sad"
	case MatchMethodSSD:
		return "ssd"
	case MatchMethodNCC:
		return "ncc"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMatchMethod parses "sad", "ssd" or "ncc"
func ParseMatchMethod(s string) (MatchMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sad":
		return MatchMethodSAD, nil
	case "ssd":
		return MatchMethodSSD, nil
	case "ncc", "":
		return MatchMethodNCC, nil
	default:
		return MatchMethodNCC, fmt.Errorf("unknown match method %q", s)
	}
}

// TemplateMatcher is the pixel-scanning Matcher.
//
// Pyramid > 1 enables a coarse pass on images downscaled by that factor,
// followed by a full-resolution pass in a small window around the coarse
// hit. It trades exhaustiveness for speed on full-screen captures.
type TemplateMatcher struct {
	Method    MatchMethod
	Grayscale bool
	Pyramid   int
}

// DefaultMatcher returns recommended settings
func DefaultMatcher() *TemplateMatcher {
	return &TemplateMatcher{Method: MatchMethodNCC}
}

// Match scans haystack for needle and reports the best position if its
// score reaches confidence. Ties resolve to the top-most, then left-most
// position. Malformed input is a *ConfigurationError; a miss is not an error.
func (m *TemplateMatcher) Match(needle, haystack *image.RGBA, confidence float64) (MatchResult, error) {
	if err := validateImages(needle, haystack); err != nil {
		return MatchResult{}, err
	}
	if !validConfidence(confidence) {
		return MatchResult{}, configError("", fmt.Errorf("%w: got %v", ErrInvalidConfidence, confidence))
	}

	if m.Grayscale {
		needle = toGrayscale(needle)
		haystack = toGrayscale(haystack)
	}

	var (
		loc   image.Point
		score float64
		ok    bool
	)
	if m.Pyramid > 1 {
		loc, score, ok = m.coarseToFine(needle, haystack)
	} else {
		loc, score, ok = bestMatch(haystack, needle, haystack.Bounds(), m.Method)
	}

	if !ok || score < confidence {
		return MatchResult{Confidence: score}, nil
	}

	nb := needle.Bounds()
	return MatchResult{
		Found:      true,
		Region:     Region{Left: loc.X, Top: loc.Y, Width: nb.Dx(), Height: nb.Dy()},
		Confidence: score,
	}, nil
}

func validConfidence(c float64) bool {
	return !math.IsNaN(c) && c > 0 && c <= 1
}

func validateImages(needle, haystack *image.RGBA) error {
	if needle == nil || needle.Bounds().Empty() {
		return configError("", fmt.Errorf("%w: needle is empty", ErrInvalidImage))
	}
	if haystack == nil || haystack.Bounds().Empty() {
		return configError("", fmt.Errorf("%w: haystack is empty", ErrInvalidImage))
	}
	nb, hb := needle.Bounds(), haystack.Bounds()
	if nb.Dx() > hb.Dx() || nb.Dy() > hb.Dy() {
		return configError("", fmt.Errorf("%w: needle %dx%d, haystack %dx%d",
			ErrTemplateTooLarge, nb.Dx(), nb.Dy(), hb.Dx(), hb.Dy()))
	}
	return nil
}

// coarseToFine locates the needle on downscaled copies, then refines the
// hit at full resolution inside a window of two coarse pixels around it.
func (m *TemplateMatcher) coarseToFine(needle, haystack *image.RGBA) (image.Point, float64, bool) {
	k := m.Pyramid
	nb, hb := needle.Bounds(), haystack.Bounds()

	// Too small to survive downscaling; scan everything
	if nb.Dx()/k < 4 || nb.Dy()/k < 4 {
		return bestMatch(haystack, needle, hb, m.Method)
	}

	smallHay := downscale(haystack, k)
	smallNeedle := downscale(needle, k)
	coarse, _, ok := bestMatch(smallHay, smallNeedle, smallHay.Bounds(), m.Method)
	if !ok {
		return bestMatch(haystack, needle, hb, m.Method)
	}

	x := hb.Min.X + coarse.X*k
	y := hb.Min.Y + coarse.Y*k
	window := image.Rect(x-2*k, y-2*k, x+nb.Dx()+2*k, y+nb.Dy()+2*k).Intersect(hb)
	return bestMatch(haystack, needle, window, m.Method)
}

func downscale(src *image.RGBA, factor int) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, max(1, b.Dx()/factor), max(1, b.Dy()/factor)))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}

// bestMatch scans every needle position fully inside search and returns the
// top-left corner with the highest score. ok is false when the needle does
// not fit inside search.
func bestMatch(haystack, needle *image.RGBA, search image.Rectangle, method MatchMethod) (image.Point, float64, bool) {
	nb := needle.Bounds()
	search = search.Intersect(haystack.Bounds())

	// IMPORTANT: Use <= for max, positions are top-left corners
	maxY := search.Max.Y - nb.Dy()
	maxX := search.Max.X - nb.Dx()
	if maxY < search.Min.Y || maxX < search.Min.X {
		return image.Point{}, 0, false
	}

	var stats needleStats
	if method == MatchMethodNCC {
		stats = computeNeedleStats(needle)
		if stats.constant() {
			// Correlation is undefined for a flat needle
			method = MatchMethodSSD
		}
	}

	best := image.Point{X: search.Min.X, Y: search.Min.Y}
	bestScore := -1.0
	for y := search.Min.Y; y <= maxY; y++ {
		for x := search.Min.X; x <= maxX; x++ {
			var score float64
			switch method {
			case MatchMethodSAD:
				score = matchSAD(haystack, needle, x, y, bestScore)
			case MatchMethodNCC:
				score = matchNCC(haystack, needle, x, y, stats)
			default:
				score = matchSSD(haystack, needle, x, y, bestScore)
			}

			if score > bestScore {
				bestScore = score
				best = image.Point{X: x, Y: y}
			}
		}
	}

	return best, bestScore, true
}

// matchSAD - Sum of Absolute Differences, normalised to 0-1.
// Stops early once the position cannot beat floor.
func matchSAD(haystack, needle *image.RGBA, x, y int, floor float64) float64 {
	w, h := needle.Bounds().Dx(), needle.Bounds().Dy()
	maxSAD := float64(w * h * 3 * 255)
	limit := uint64(math.MaxUint64)
	if floor >= 0 {
		limit = uint64((1 - floor) * maxSAD)
	}

	var sad uint64
	for ny := 0; ny < h; ny++ {
		hRow := haystack.PixOffset(x, y+ny)
		nRow := needle.PixOffset(needle.Rect.Min.X, needle.Rect.Min.Y+ny)
		for nx := 0; nx < w; nx++ {
			hIdx, nIdx := hRow+nx*4, nRow+nx*4
			sad += uint64(abs(int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])))
			sad += uint64(abs(int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])))
			sad += uint64(abs(int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])))
		}
		if sad > limit {
			return 0
		}
	}

	return 1.0 - float64(sad)/maxSAD
}

// matchSSD - Sum of Squared Differences, normalised to 0-1
func matchSSD(haystack, needle *image.RGBA, x, y int, floor float64) float64 {
	w, h := needle.Bounds().Dx(), needle.Bounds().Dy()
	maxSSD := float64(w * h * 3 * 255 * 255)
	limit := uint64(math.MaxUint64)
	if floor >= 0 {
		limit = uint64((1 - floor) * maxSSD)
	}

	var ssd uint64
	for ny := 0; ny < h; ny++ {
		hRow := haystack.PixOffset(x, y+ny)
		nRow := needle.PixOffset(needle.Rect.Min.X, needle.Rect.Min.Y+ny)
		for nx := 0; nx < w; nx++ {
			hIdx, nIdx := hRow+nx*4, nRow+nx*4
			dr := int(haystack.Pix[hIdx]) - int(needle.Pix[nIdx])
			dg := int(haystack.Pix[hIdx+1]) - int(needle.Pix[nIdx+1])
			db := int(haystack.Pix[hIdx+2]) - int(needle.Pix[nIdx+2])
			ssd += uint64(dr*dr + dg*dg + db*db)
		}
		if ssd > limit {
			return 0
		}
	}

	return 1.0 - float64(ssd)/maxSSD
}

type needleStats struct {
	sum, sumSq, count float64
}

func computeNeedleStats(needle *image.RGBA) needleStats {
	b := needle.Bounds()
	var s needleStats
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := needle.PixOffset(b.Min.X, y)
		for nx := 0; nx < b.Dx(); nx++ {
			for c := 0; c < 3; c++ {
				v := float64(needle.Pix[row+nx*4+c])
				s.sum += v
				s.sumSq += v * v
			}
		}
	}
	s.count = float64(b.Dx() * b.Dy() * 3)
	return s
}

func (s needleStats) variance() float64 {
	return s.sumSq - s.sum*s.sum/s.count
}

func (s needleStats) constant() bool {
	return s.variance() <= 1e-9
}

// matchNCC - Normalized Cross-Correlation. The coefficient is clipped to
// [0, 1]; anti-correlated windows score 0.
func matchNCC(haystack, needle *image.RGBA, x, y int, stats needleStats) float64 {
	w, h := needle.Bounds().Dx(), needle.Bounds().Dy()
	var sumH, sumHN, sumHH float64

	for ny := 0; ny < h; ny++ {
		hRow := haystack.PixOffset(x, y+ny)
		nRow := needle.PixOffset(needle.Rect.Min.X, needle.Rect.Min.Y+ny)
		for nx := 0; nx < w; nx++ {
			for c := 0; c < 3; c++ {
				hv := float64(haystack.Pix[hRow+nx*4+c])
				nv := float64(needle.Pix[nRow+nx*4+c])
				sumH += hv
				sumHN += hv * nv
				sumHH += hv * hv
			}
		}
	}

	numerator := sumHN - sumH*stats.sum/stats.count
	denomH := sumHH - sumH*sumH/stats.count
	if denomH <= 1e-9 {
		return 0
	}

	corr := numerator / math.Sqrt(denomH*stats.variance())
	switch {
	case corr >= 1-1e-9:
		return 1
	case corr < 0:
		return 0
	default:
		return corr
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// toGrayscale converts RGBA to grayscale, keeping the RGBA layout
func toGrayscale(img *image.RGBA) *image.RGBA {
	bounds := img.Bounds()
	gray := image.NewRGBA(bounds)

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		src := img.PixOffset(bounds.Min.X, y)
		dst := gray.PixOffset(bounds.Min.X, y)
		for x := 0; x < bounds.Dx(); x++ {
			i, j := src+x*4, dst+x*4
			// Luminance formula
			v := uint8((int(img.Pix[i])*299 + int(img.Pix[i+1])*587 + int(img.Pix[i+2])*114) / 1000)
			gray.Pix[j] = v
			gray.Pix[j+1] = v
			gray.Pix[j+2] = v
			gray.Pix[j+3] = 255
		}
	}

	return gray
}

// DebugMatch returns a copy of haystack with region outlined in red
func DebugMatch(haystack *image.RGBA, region Region) *image.RGBA {
	debug := image.NewRGBA(haystack.Bounds())
	xdraw.Draw(debug, debug.Bounds(), haystack, haystack.Bounds().Min, xdraw.Src)

	rect := region.Rectangle().Intersect(debug.Bounds())
	if rect.Empty() {
		return debug
	}

	col := color.RGBA{R: 255, A: 255}
	for x := rect.Min.X; x < rect.Max.X; x++ {
		debug.SetRGBA(x, rect.Min.Y, col)
		debug.SetRGBA(x, rect.Max.Y-1, col)
	}
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		debug.SetRGBA(rect.Min.X, y, col)
		debug.SetRGBA(rect.Max.X-1, y, col)
	}
	return debug
}
